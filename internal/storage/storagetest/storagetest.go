// Package storagetest открывает временное хранилище для тестов пакетов-сервисов.
package storagetest

import (
	"context"
	"path/filepath"
	"testing"

	"serotonyl.ru/souls/internal/storage"
	"serotonyl.ru/souls/internal/storage/sqlite"
)

// New открывает SQLite-хранилище в t.TempDir() и закрывает его по окончании теста.
func New(t testing.TB) storage.Store {
	t.Helper()

	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "souls.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close sqlite store: %v", err)
		}
	})
	return store
}
