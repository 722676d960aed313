package chat

import "time"

// NoMemorySummary is the memory_summary value when nothing was injected.
const NoMemorySummary = "（无记忆）"

// UnknownPersona is reported in Meta when generation did not run.
const UnknownPersona = "unknown"

// Meta describes how a reply was produced.
type Meta struct {
	Persona            string   `json:"persona"`
	UsedMemory         bool     `json:"used_memory"`
	InjectionMemoryIDs []string `json:"injection_memory_ids"`
	MemorySummary      string   `json:"memory_summary"`
	Timestamp          string   `json:"timestamp"`
}

// Reply is the envelope returned by session chat.
type Reply struct {
	Reply string `json:"reply"`
	Meta  Meta   `json:"meta"`
}

// FallbackMeta returns the metadata used when a turn could not be generated.
func FallbackMeta(now time.Time) Meta {
	return Meta{
		Persona:            UnknownPersona,
		UsedMemory:         false,
		InjectionMemoryIDs: []string{},
		MemorySummary:      NoMemorySummary,
		Timestamp:          FormatTimestamp(now),
	}
}
