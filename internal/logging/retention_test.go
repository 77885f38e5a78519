package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPruneLogDirRemovesOldFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old := now.AddDate(0, 0, -10)

	write := func(name string, mod time.Time) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := os.Chtimes(path, mod, mod); err != nil {
			t.Fatalf("chtimes %s: %v", name, err)
		}
		return path
	}
	stale := write("codesummary-2026-01-01.log", old)
	active := write(LogFileName, old)
	fresh := write("recent.log", now)
	other := write("notes.txt", old)

	if removed := PruneLogDir(NewNop(), dir, 7, now); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale log removed, stat err=%v", err)
	}
	for _, keep := range []string{active, fresh, other} {
		if _, err := os.Stat(keep); err != nil {
			t.Fatalf("expected %s kept: %v", keep, err)
		}
	}
}

func TestPruneLogDirDisabled(t *testing.T) {
	if removed := PruneLogDir(nil, t.TempDir(), 0, time.Now()); removed != 0 {
		t.Fatalf("removed = %d", removed)
	}
}
