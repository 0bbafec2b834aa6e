package testsupport

import (
	"testing"

	"deckhand/internal/config"
	"deckhand/internal/disccache"
)

// MustOpenCache opens a disccache.Store for tests and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config) *disccache.Store {
	t.Helper()

	store, err := disccache.Open(cfg.Cache)
	if err != nil {
		t.Fatalf("disccache.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
