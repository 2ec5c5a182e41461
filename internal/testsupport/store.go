package testsupport

import (
	"context"
	"testing"

	"parley/internal/config"
	"parley/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewRecording registers a recording for tests using the provided store.
func NewRecording(t testing.TB, st *store.Store, title, source string) *store.Recording {
	t.Helper()

	rec, err := st.NewRecording(context.Background(), title, source)
	if err != nil {
		t.Fatalf("store.NewRecording: %v", err)
	}
	return rec
}
