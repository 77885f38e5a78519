package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"codesummary/internal/docgen"
	"codesummary/internal/fileutil"
	"codesummary/internal/logging"
	"codesummary/internal/tree"
)

// Store is the durable record of a run's progress. All methods are safe for
// concurrent use; every mutation flushes the whole checkpoint before it
// returns.
type Store struct {
	mu         sync.Mutex
	path       string
	sourceRoot string
	layout     docgen.Layout
	state      state
	loaded     bool
	logger     *slog.Logger
	now        func() time.Time
}

// Open loads the checkpoint for sourceRoot from the docs root described by
// layout. A missing file, an unreadable file, or a checkpoint recorded for a
// different source root all yield an empty store; only the latter two are
// logged.
func Open(layout docgen.Layout, sourceRoot string, logger *slog.Logger) *Store {
	s := &Store{
		path:       filepath.Join(layout.Root, FileName),
		sourceRoot: sourceRoot,
		layout:     layout,
		state:      newState(),
		logger:     logging.NewComponentLogger(logger, "checkpoint"),
		now:        time.Now,
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("no checkpoint found; starting fresh", logging.String("path", s.path))
		return
	}
	if err != nil {
		logging.WarnWithContext(s.logger, "checkpoint unreadable; starting fresh", "checkpoint_unreadable",
			logging.String("path", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "completed work is rediscovered from existing documents"),
		)
		return
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		logging.WarnWithContext(s.logger, "checkpoint corrupt; starting fresh", "checkpoint_corrupt",
			logging.String("path", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the checkpoint file if the problem persists"),
			logging.String(logging.FieldImpact, "completed work is rediscovered from existing documents"),
		)
		return
	}
	if rec.SourceRoot != "" && rec.SourceRoot != s.sourceRoot {
		logging.WarnWithContext(s.logger, "checkpoint belongs to another source root; starting fresh", "checkpoint_root_mismatch",
			logging.String("recorded", rec.SourceRoot),
			logging.String("current", s.sourceRoot),
			logging.String(logging.FieldErrorHint, "use a separate docs directory per source tree"),
		)
		return
	}
	from := rec.Version
	rec.migrate()
	if from != SchemaVersion {
		s.logger.Info("checkpoint upgraded",
			logging.String("from", from),
			logging.String("to", SchemaVersion),
		)
	}
	s.state = stateFromRecord(rec)
	s.loaded = true
	s.logger.Info("checkpoint loaded",
		logging.Int("completed_files", len(s.state.completedFiles)),
		logging.Int("completed_dirs", len(s.state.completedDirs)),
		logging.Int("failed", len(s.state.failed)),
		logging.Int("api_files", len(s.state.apiFiles)),
	)
}

// Loaded reports whether usable state was read from disk by Open.
func (s *Store) Loaded() bool { return s.loaded }

// Path returns the checkpoint file location.
func (s *Store) Path() string { return s.path }

// flush writes the checkpoint. Callers hold s.mu. Failures are logged and
// swallowed: losing one flush costs at most one mutation on the next run.
func (s *Store) flush() {
	s.state.updatedAt = s.now().UTC()
	data, err := json.MarshalIndent(s.state.toRecord(s.sourceRoot, s.layout.Root), "", "  ")
	if err == nil {
		err = fileutil.WriteFileAtomic(s.path, data, 0o644)
	}
	if err != nil {
		logging.ErrorWithContext(s.logger, "checkpoint flush failed", "checkpoint_flush_failed",
			logging.String("path", s.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the docs directory"),
		)
	}
}

// Save flushes the checkpoint explicitly.
func (s *Store) Save() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flush()
}

func (s *Store) completedSet(kind tree.Kind) map[string]struct{} {
	if kind == tree.KindDirectory {
		return s.state.completedDirs
	}
	return s.state.completedFiles
}

// IsCompleted reports whether node is recorded complete and its document
// still exists as a regular file.
func (s *Store) IsCompleted(node *tree.Node) bool {
	s.mu.Lock()
	_, done := s.completedSet(node.Kind)[node.Key()]
	s.mu.Unlock()
	return done && fileutil.IsRegularFile(s.layout.NodePath(node))
}

// MarkCompleted records node as done with its document path and clears any
// earlier failure.
func (s *Store) MarkCompleted(node *tree.Node, docPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := node.Key()
	s.completedSet(node.Kind)[key] = struct{}{}
	s.state.docPaths[key] = docPath
	delete(s.state.failed, key)
	s.flush()
}

// MarkFailed records a failure for node.
func (s *Store) MarkFailed(node *tree.Node, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := node.Key()
	s.state.failed[key] = message
	delete(s.completedSet(node.Kind), key)
	s.flush()
}

// Failed returns failed keys with their error messages.
func (s *Store) Failed() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.state.failed)
}

type foundDoc struct {
	key  string
	kind tree.Kind
	path string
}

// ScanExistingDocs walks the docs root and records every document whose
// name follows the layout convention as complete. It returns the number of
// newly discovered completions.
func (s *Store) ScanExistingDocs() (int, error) {
	var found []foundDoc
	err := filepath.WalkDir(s.layout.Root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == s.layout.Root && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(s.layout.Root, p)
		if err != nil {
			return nil
		}
		if key, kind, ok := s.layout.Classify(rel); ok {
			found = append(found, foundDoc{key: key, kind: kind, path: p})
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan docs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	added := 0
	for _, doc := range found {
		set := s.completedSet(doc.kind)
		if _, ok := set[doc.key]; ok {
			continue
		}
		set[doc.key] = struct{}{}
		s.state.docPaths[doc.key] = doc.path
		delete(s.state.failed, doc.key)
		added++
	}
	if added > 0 {
		s.flush()
	}
	s.logger.Info("existing documents scanned",
		logging.Int("documents", len(found)),
		logging.Int("newly_recorded", added),
	)
	return added, nil
}

// MarkHasAPI records that a fresh analysis of the file at node exposes
// interfaces, storing its endpoint digest. Detail caches extracted from an
// earlier analysis of the same key are dropped. Completed API documents are
// invalidated when the key is new or its digest changed, so published output
// never lags the interfaces. It reports whether the key was new.
func (s *Store) MarkHasAPI(node *tree.Node, info string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := node.Key()
	previous := s.state.apiInfo[key]
	_, known := s.state.apiSet[key]
	if !known {
		s.state.apiSet[key] = struct{}{}
		s.state.apiFiles = append(s.state.apiFiles, key)
	}
	s.state.apiInfo[key] = info
	delete(s.state.apiDetails, key)
	delete(s.state.usageDetails, key)
	switch {
	case !known:
		s.invalidateAPIDocs(key, "new API file invalidates final document")
	case previous != info:
		s.invalidateAPIDocs(key, "changed interfaces invalidate final document")
	}
	s.flush()
	return !known
}

// ClearAPI forgets that node exposes interfaces, dropping its digest and
// detail caches. Completed API documents are invalidated because they still
// list the removed interfaces.
func (s *Store) ClearAPI(node *tree.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := node.Key()
	if _, known := s.state.apiSet[key]; !known {
		return
	}
	s.dropAPI(key)
	s.invalidateAPIDocs(key, "removed interfaces invalidate final document")
	s.flush()
}

// PruneAPI forgets API-bearing keys that no longer name a file of root and
// invalidates completed API documents when any were dropped. It returns the
// dropped keys.
func (s *Store) PruneAPI(root *tree.Node) []string {
	present := make(map[string]bool)
	for _, node := range root.AllFiles() {
		present[node.Key()] = true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var dropped []string
	for _, key := range slices.Clone(s.state.apiFiles) {
		if present[key] {
			continue
		}
		s.dropAPI(key)
		s.invalidateAPIDocs(key, "deleted API file invalidates final document")
		dropped = append(dropped, key)
	}
	if len(dropped) > 0 {
		s.flush()
	}
	return dropped
}

func (s *Store) invalidateAPIDocs(key, msg string) {
	for _, doc := range []docgen.FinalDoc{docgen.FinalAPIDoc, docgen.FinalAPIUsageDoc} {
		if s.state.final[doc] {
			s.state.final[doc] = false
			s.logger.Info(msg,
				logging.String(logging.FieldNode, key),
				logging.String("document", string(doc)),
			)
		}
	}
}

func (s *Store) dropAPI(key string) {
	delete(s.state.apiSet, key)
	s.state.apiFiles = slices.DeleteFunc(s.state.apiFiles, func(k string) bool { return k == key })
	delete(s.state.apiInfo, key)
	delete(s.state.apiDetails, key)
	delete(s.state.usageDetails, key)
}

// APIFiles returns API-bearing keys in the order they were first marked.
func (s *Store) APIFiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.apiFiles)
}

// APIInfo returns a copy of the per-file endpoint digests.
func (s *Store) APIInfo() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.state.apiInfo)
}

// SaveAPIDetails caches the stage-1 extraction for the API reference.
func (s *Store) SaveAPIDetails(key, details string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.apiDetails[key] = details
	s.flush()
}

// APIDetails returns a copy of the stage-1 API reference cache.
func (s *Store) APIDetails() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.state.apiDetails)
}

// SaveUsageDetails caches the stage-1 extraction for the usage guide.
func (s *Store) SaveUsageDetails(key, details string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.usageDetails[key] = details
	s.flush()
}

// UsageDetails returns a copy of the stage-1 usage cache.
func (s *Store) UsageDetails() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.state.usageDetails)
}

// FinalCompleted reports whether a project-level document is recorded as
// complete and still present on disk.
func (s *Store) FinalCompleted(doc docgen.FinalDoc) bool {
	s.mu.Lock()
	done := s.state.final[doc]
	s.mu.Unlock()
	return done && fileutil.IsRegularFile(s.layout.FinalPath(doc))
}

// MarkFinalCompleted records a project-level document as complete.
func (s *Store) MarkFinalCompleted(doc docgen.FinalDoc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.final[doc] = true
	s.flush()
}

// ScanFinalDocs marks the README and reading guide as complete when they
// exist on disk. API documents are never adopted this way: their flags may
// have been cleared by MarkHasAPI, and regenerating them from cached
// extractions is cheap.
func (s *Store) ScanFinalDocs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	marked := 0
	for _, doc := range []docgen.FinalDoc{docgen.FinalReadme, docgen.FinalReadingGuide} {
		if s.state.final[doc] || !fileutil.IsRegularFile(s.layout.FinalPath(doc)) {
			continue
		}
		s.state.final[doc] = true
		marked++
	}
	if marked > 0 {
		s.flush()
	}
	return marked
}

// Invalidate forgets the given file and directory keys: completion,
// failures, API flags and detail caches. All final documents are
// invalidated as well.
func (s *Store) Invalidate(files, dirs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range files {
		delete(s.state.completedFiles, key)
		delete(s.state.failed, key)
		delete(s.state.docPaths, key)
		s.dropAPI(key)
	}
	for _, key := range dirs {
		delete(s.state.completedDirs, key)
		delete(s.state.failed, key)
		delete(s.state.docPaths, key)
	}
	clear(s.state.final)
	s.flush()
}

// Reset discards all recorded progress.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	runID := s.state.lastRunID
	s.state = newState()
	s.state.lastRunID = runID
	s.flush()
}

// SetRunID records the identifier of the current run.
func (s *Store) SetRunID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.lastRunID = id
	s.flush()
}

// Stats is a point-in-time summary of the checkpoint.
type Stats struct {
	CompletedFiles int
	CompletedDirs  int
	Failed         int
	APIFiles       int
	APIDetails     int
	UsageDetails   int
	FinalDocs      map[docgen.FinalDoc]bool
	LastRunID      string
	UpdatedAt      time.Time
}

// Stats returns counts of recorded progress. Counts reflect the checkpoint
// only; they are not re-verified against disk.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		CompletedFiles: len(s.state.completedFiles),
		CompletedDirs:  len(s.state.completedDirs),
		Failed:         len(s.state.failed),
		APIFiles:       len(s.state.apiFiles),
		APIDetails:     len(s.state.apiDetails),
		UsageDetails:   len(s.state.usageDetails),
		FinalDocs:      maps.Clone(s.state.final),
		LastRunID:      s.state.lastRunID,
		UpdatedAt:      s.state.updatedAt,
	}
}

// UpdateNodeStatus marks every node verified complete as Completed with its
// document path, and restores API flags on file nodes. It returns the number
// of nodes updated.
func (s *Store) UpdateNodeStatus(root *tree.Node) int {
	updated := 0
	root.Walk(func(node *tree.Node) {
		if !s.IsCompleted(node) {
			return
		}
		node.Status = tree.StatusCompleted
		node.DocPath = s.layout.NodePath(node)
		node.Error = ""
		if node.IsFile() {
			s.mu.Lock()
			_, hasAPI := s.state.apiSet[node.Key()]
			node.APIInfo = s.state.apiInfo[node.Key()]
			s.mu.Unlock()
			node.HasAPI = hasAPI
		}
		updated++
	})
	return updated
}

// MissingNodes returns files and directories that are not verified complete.
func (s *Store) MissingNodes(root *tree.Node) (files, dirs []*tree.Node) {
	root.Walk(func(node *tree.Node) {
		if s.IsCompleted(node) {
			return
		}
		if node.IsDir() {
			dirs = append(dirs, node)
		} else {
			files = append(files, node)
		}
	})
	return files, dirs
}
