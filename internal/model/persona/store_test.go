package persona

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStoreListIsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())
	list := store.List()
	list[0].Name = "mutated"

	got, ok := store.FindByID(DefaultID)
	assert.True(t, ok)
	assert.NotEqual(t, "mutated", got.Name)
}

func TestResolve(t *testing.T) {
	store := NewMemoryStore(Seed())

	assert.Equal(t, "socrates", Resolve(store, "socrates").ID)
	assert.Equal(t, DefaultID, Resolve(store, "").ID)

	unknown := Resolve(store, "pirate")
	assert.Equal(t, "pirate", unknown.ID)
	assert.Equal(t, "pirate", unknown.Name)

	empty := Resolve(NewMemoryStore(nil), "")
	assert.Equal(t, DefaultID, empty.ID)
}
