package chat

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	cause := errors.New("disk full")

	storageErr := StorageError("insert message", cause)
	assert.ErrorIs(t, storageErr, ErrStorage)
	assert.ErrorIs(t, storageErr, cause)
	assert.False(t, IsValidation(storageErr))

	adapterErr := AdapterError("memory", cause)
	assert.ErrorIs(t, adapterErr, ErrAdapter)
	assert.NotErrorIs(t, adapterErr, ErrStorage)

	assert.True(t, IsValidation(Required("sender")))
	assert.Equal(t, "sender is required", Required("sender").Error())
}

func TestSenderValid(t *testing.T) {
	assert.True(t, SenderUser.Valid())
	assert.True(t, SenderAI.Valid())
	assert.False(t, Sender("assistant").Valid())
	assert.False(t, Sender("").Valid())
}

func TestFormatTimestampSortsLexically(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	earlier := FormatTimestamp(base.Add(900 * time.Millisecond))
	later := FormatTimestamp(base.Add(time.Second))

	assert.Less(t, earlier, later)
	assert.Equal(t, len(earlier), len(later))
}

func TestFallbackMeta(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 30, 0, 120000000, time.UTC)
	meta := FallbackMeta(now)

	assert.Equal(t, UnknownPersona, meta.Persona)
	assert.False(t, meta.UsedMemory)
	assert.NotNil(t, meta.InjectionMemoryIDs)
	assert.Empty(t, meta.InjectionMemoryIDs)
	assert.Equal(t, NoMemorySummary, meta.MemorySummary)
	assert.Equal(t, "2024-05-01T08:30:00.120000000Z", meta.Timestamp)
	assert.Len(t, meta.Timestamp, len(FormatTimestamp(time.Now())))
}
