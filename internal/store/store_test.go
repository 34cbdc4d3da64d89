package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	var name string
	err := s.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='settings'",
	).Scan(&name)
	if err != nil {
		t.Errorf("settings table should exist after migrations: %v", err)
	}
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Settings().Set("pinch_threshold", "0.06"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	st, err := s.Settings().Get("pinch_threshold")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if st.Value != "0.06" {
		t.Errorf("value = %q, want 0.06", st.Value)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}
	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestSettings_SetGetOverwrite(t *testing.T) {
	repo := newTestStore(t).Settings()

	if err := repo.Set("coordinate_scale", "1000"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	first, err := repo.Get("coordinate_scale")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if first.Value != "1000" || first.UpdatedAt.IsZero() {
		t.Errorf("unexpected setting %+v", first)
	}

	if err := repo.Set("coordinate_scale", "800"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	second, err := repo.Get("coordinate_scale")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if second.Value != "800" {
		t.Errorf("value = %q, want 800", second.Value)
	}
}

func TestSettings_GetMissing(t *testing.T) {
	repo := newTestStore(t).Settings()

	if _, err := repo.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestSettings_ListAndMap(t *testing.T) {
	repo := newTestStore(t).Settings()

	for k, v := range map[string]string{"rotation_scale": "0.001", "camera_id": "1", "pinch_threshold": "0.07"} {
		if err := repo.Set(k, v); err != nil {
			t.Fatalf("Set(%s) failed: %v", k, err)
		}
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	wantOrder := []string{"camera_id", "pinch_threshold", "rotation_scale"}
	if len(list) != len(wantOrder) {
		t.Fatalf("got %d settings, want %d", len(list), len(wantOrder))
	}
	for i, k := range wantOrder {
		if list[i].Key != k {
			t.Errorf("setting %d = %s, want %s", i, list[i].Key, k)
		}
	}

	m, err := repo.Map()
	if err != nil {
		t.Fatalf("Map failed: %v", err)
	}
	if m["rotation_scale"] != "0.001" || len(m) != 3 {
		t.Errorf("unexpected map %v", m)
	}
}

func TestSettings_Delete(t *testing.T) {
	repo := newTestStore(t).Settings()

	if err := repo.Set("camera_id", "1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := repo.Delete("camera_id"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete("camera_id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
	if _, err := repo.Get("camera_id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete error = %v, want ErrNotFound", err)
	}
}
