package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-tavern/nlp/internal/model/chat"
	"github.com/zhouzirui/z-tavern/nlp/internal/store"
)

var (
	historySession string
	historyLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the stored turns of a session",
	Long: `Reads the chat history database directly and prints the turns of one
session, oldest first.

Example:
  chatmemd history --session session-gentle-1 --limit 20`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historySession, "session", "", "session id (defaults to DEFAULT_SESSION_ID)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", store.DefaultHistoryLimit, "maximum number of turns")
}

func runHistory(cmd *cobra.Command, args []string) error {
	sessionID := historySession
	if sessionID == "" {
		sessionID = cfg.Session.DefaultSessionID
	}

	db, err := store.Open(cmd.Context(), cfg.Storage.ChatHistoryDBPath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	messages, err := store.NewHistoryStore(db).List(cmd.Context(), sessionID, historyLimit)
	if err != nil {
		return err
	}
	return printHistory(cmd, sessionID, messages)
}

func printHistory(cmd *cobra.Command, sessionID string, messages []chat.Message) error {
	out := cmd.OutOrStdout()
	if len(messages) == 0 {
		_, err := fmt.Fprintf(out, "no turns stored for session %s\n", sessionID)
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, entry := range chat.Entries(messages) {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.CreatedAt, entry.Sender, entry.Content)
	}
	return tw.Flush()
}
