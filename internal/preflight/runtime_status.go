package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"codesummary/internal/checkpoint"
)

// DocsProbe reports what previous runs left in a docs root.
type DocsProbe struct {
	Root       string
	Exists     bool
	Checkpoint bool
	Locked     bool
	Modified   time.Time
}

// ProbeDocs inspects docsRoot without modifying it. The lock is only tested
// when its file already exists.
func ProbeDocs(docsRoot string) DocsProbe {
	probe := DocsProbe{Root: docsRoot}
	info, err := os.Stat(docsRoot)
	if err != nil || !info.IsDir() {
		return probe
	}
	probe.Exists = true
	if cp, err := os.Stat(filepath.Join(docsRoot, checkpoint.FileName)); err == nil {
		probe.Checkpoint = true
		probe.Modified = cp.ModTime()
	}
	lockPath := filepath.Join(docsRoot, checkpoint.LockFileName)
	if _, err := os.Stat(lockPath); err != nil {
		return probe
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return probe
	}
	if ok {
		_ = lock.Unlock()
		return probe
	}
	probe.Locked = true
	return probe
}

// Detail renders a display-friendly summary for status output.
func (p DocsProbe) Detail() string {
	switch {
	case !p.Exists:
		return fmt.Sprintf("%s (not created yet)", p.Root)
	case p.Locked:
		return fmt.Sprintf("%s (analysis in progress)", p.Root)
	case !p.Checkpoint:
		return fmt.Sprintf("%s (no checkpoint)", p.Root)
	default:
		return fmt.Sprintf("%s (checkpoint updated %s)", p.Root, p.Modified.Format(time.DateTime))
	}
}
