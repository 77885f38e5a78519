package incremental

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sort"

	"codesummary/internal/fileutil"
	"codesummary/internal/logging"
	"codesummary/internal/tree"
)

// ChangeType classifies a file difference between runs.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// Change is one file-level difference.
type Change struct {
	Path string
	Type ChangeType
	Old  *Fingerprint
	New  *Fingerprint
}

// Plan lists what must be regenerated after a set of changes.
type Plan struct {
	Changes []Change
	// StaleFiles are modified or deleted file keys whose documents are outdated.
	StaleFiles []string
	// StaleDirs are ancestor directory keys of any changed file, root included.
	StaleDirs []string
	// HasPrevious is false when no usable fingerprint state existed.
	HasPrevious bool
}

// Empty reports whether nothing changed.
func (p Plan) Empty() bool { return len(p.Changes) == 0 }

// Count returns the number of changes of the given type.
func (p Plan) Count(kind ChangeType) int {
	n := 0
	for _, c := range p.Changes {
		if c.Type == kind {
			n++
		}
	}
	return n
}

// Detector compares a scanned tree with stored fingerprints.
type Detector struct {
	store  *Store
	logger *slog.Logger
}

// NewDetector wraps store.
func NewDetector(store *Store, logger *slog.Logger) *Detector {
	return &Detector{store: store, logger: logging.NewComponentLogger(logger, "incremental")}
}

// Compute returns the fingerprint of a file node.
func Compute(node *tree.Node) (Fingerprint, error) {
	info, err := os.Stat(node.Path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("stat %s: %w", node.Key(), err)
	}
	hash, err := fileutil.HashFile(node.Path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("hash %s: %w", node.Key(), err)
	}
	return Fingerprint{Path: node.Key(), Size: info.Size(), ModTime: info.ModTime(), Hash: hash}, nil
}

// Detect compares the tree rooted at root with the stored state. When the
// store has no state, or state recorded for a different source root, every
// file is reported as added and HasPrevious is false. Files whose size and
// modification time are unchanged are not re-hashed.
func (d *Detector) Detect(ctx context.Context, root *tree.Node) (Plan, error) {
	recordedRoot, err := d.store.SourceRoot(ctx)
	if err != nil {
		return Plan{}, err
	}
	previous, err := d.store.All(ctx)
	if err != nil {
		return Plan{}, err
	}
	plan := Plan{HasPrevious: recordedRoot != ""}
	if recordedRoot != "" && recordedRoot != root.Path {
		logging.WarnWithContext(d.logger, "fingerprint state belongs to another source root; treating all files as new", "incremental_root_mismatch",
			logging.String("recorded", recordedRoot),
			logging.String("current", root.Path),
			logging.String(logging.FieldErrorHint, "use a separate docs directory per source tree"),
			logging.String(logging.FieldImpact, "no files are invalidated by change detection"),
		)
		previous = nil
		plan.HasPrevious = false
	}

	current := make(map[string]*tree.Node)
	for _, node := range root.AllFiles() {
		current[node.Key()] = node
	}

	for key, node := range current {
		if err := ctx.Err(); err != nil {
			return Plan{}, err
		}
		old, known := previous[key]
		if !known {
			plan.Changes = append(plan.Changes, Change{Path: key, Type: ChangeAdded})
			continue
		}
		info, err := os.Stat(node.Path)
		if err != nil {
			return Plan{}, fmt.Errorf("stat %s: %w", key, err)
		}
		if info.Size() == old.Size && info.ModTime().Equal(old.ModTime) {
			continue
		}
		fp, err := Compute(node)
		if err != nil {
			return Plan{}, err
		}
		if fp.Hash == old.Hash {
			continue
		}
		oldCopy := old
		plan.Changes = append(plan.Changes, Change{Path: key, Type: ChangeModified, Old: &oldCopy, New: &fp})
	}
	for key, old := range previous {
		if _, ok := current[key]; ok {
			continue
		}
		oldCopy := old
		plan.Changes = append(plan.Changes, Change{Path: key, Type: ChangeDeleted, Old: &oldCopy})
	}
	sort.Slice(plan.Changes, func(i, j int) bool { return plan.Changes[i].Path < plan.Changes[j].Path })

	dirs := make(map[string]struct{})
	for _, change := range plan.Changes {
		if change.Type != ChangeAdded {
			plan.StaleFiles = append(plan.StaleFiles, change.Path)
		}
		// A new file also changes what its parents summarize.
		if plan.HasPrevious {
			for _, dir := range ancestorKeys(change.Path) {
				dirs[dir] = struct{}{}
			}
		}
	}
	for dir := range dirs {
		plan.StaleDirs = append(plan.StaleDirs, dir)
	}
	sort.Strings(plan.StaleDirs)

	d.logger.Info("change detection complete",
		logging.Int("added", plan.Count(ChangeAdded)),
		logging.Int("modified", plan.Count(ChangeModified)),
		logging.Int("deleted", plan.Count(ChangeDeleted)),
		logging.Int("stale_dirs", len(plan.StaleDirs)),
		logging.String(logging.FieldEventType, "incremental_plan"),
	)
	return plan, nil
}

// Record stores fingerprints for every file in the tree.
func (d *Detector) Record(ctx context.Context, root *tree.Node) error {
	files := root.AllFiles()
	fps := make([]Fingerprint, 0, len(files))
	for _, node := range files {
		fp, err := Compute(node)
		if err != nil {
			logging.WarnWithContext(d.logger, "fingerprint failed; file will be treated as new next run", "fingerprint_failed",
				logging.String(logging.FieldNode, node.Key()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check file permissions"),
			)
			continue
		}
		fps = append(fps, fp)
	}
	return d.store.Replace(ctx, root.Path, fps)
}

// ancestorKeys returns the directory keys above a file key, nearest first,
// ending with the root key.
func ancestorKeys(key string) []string {
	var out []string
	dir := path.Dir(key)
	for dir != "." && dir != "/" && dir != "" {
		out = append(out, dir)
		dir = path.Dir(dir)
	}
	return append(out, tree.RootKey)
}
