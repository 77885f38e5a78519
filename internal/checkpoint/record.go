package checkpoint

import (
	"maps"
	"sort"
	"time"

	"codesummary/internal/docgen"
	"codesummary/internal/tree"
)

// FileName is the checkpoint file written inside the docs root.
const FileName = ".checkpoint.json"

// SchemaVersion is written to every checkpoint. Older versions are upgraded
// on load; missing fields take their zero values.
const SchemaVersion = "2.0"

// record is the on-disk shape.
type record struct {
	Version               string            `json:"version"`
	SourceRoot            string            `json:"source_root"`
	DocsRoot              string            `json:"docs_root"`
	CompletedFiles        []string          `json:"completed_files"`
	CompletedDirs         []string          `json:"completed_dirs"`
	FailedFiles           []string          `json:"failed_files"`
	FailedErrors          map[string]string `json:"failed_errors,omitempty"`
	DocPaths              map[string]string `json:"doc_paths,omitempty"`
	ReadmeCompleted       bool              `json:"readme_completed"`
	ReadingGuideCompleted bool              `json:"reading_guide_completed"`
	APIDocCompleted       bool              `json:"api_doc_completed"`
	APIUsageDocCompleted  bool              `json:"api_usage_doc_completed"`
	APIFiles              []string          `json:"api_files"`
	APIInfoMap            map[string]string `json:"api_info_map"`
	APIDetailsMap         map[string]string `json:"api_details_map"`
	APIUsageDetailsMap    map[string]string `json:"api_usage_details_map"`
	LastRunID             string            `json:"last_run_id,omitempty"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// state is the in-memory form of a record.
type state struct {
	completedFiles map[string]struct{}
	completedDirs  map[string]struct{}
	failed         map[string]string
	docPaths       map[string]string
	final          map[docgen.FinalDoc]bool
	apiFiles       []string
	apiSet         map[string]struct{}
	apiInfo        map[string]string
	apiDetails     map[string]string
	usageDetails   map[string]string
	lastRunID      string
	updatedAt      time.Time
}

func newState() state {
	return state{
		completedFiles: map[string]struct{}{},
		completedDirs:  map[string]struct{}{},
		failed:         map[string]string{},
		docPaths:       map[string]string{},
		final:          map[docgen.FinalDoc]bool{},
		apiSet:         map[string]struct{}{},
		apiInfo:        map[string]string{},
		apiDetails:     map[string]string{},
		usageDetails:   map[string]string{},
	}
}

// migrate upgrades older checkpoint shapes in place. Version 1 keyed the
// root directory with an empty string.
func (r *record) migrate() {
	if r.Version == SchemaVersion {
		return
	}
	for i, dir := range r.CompletedDirs {
		if dir == "" {
			r.CompletedDirs[i] = tree.RootKey
		}
	}
	for i, key := range r.FailedFiles {
		if key == "" {
			r.FailedFiles[i] = tree.RootKey
		}
	}
	r.Version = SchemaVersion
}

func stateFromRecord(r record) state {
	s := newState()
	for _, key := range r.CompletedFiles {
		s.completedFiles[key] = struct{}{}
	}
	for _, key := range r.CompletedDirs {
		s.completedDirs[key] = struct{}{}
	}
	for _, key := range r.FailedFiles {
		s.failed[key] = r.FailedErrors[key]
	}
	maps.Copy(s.docPaths, r.DocPaths)
	s.final[docgen.FinalReadme] = r.ReadmeCompleted
	s.final[docgen.FinalReadingGuide] = r.ReadingGuideCompleted
	s.final[docgen.FinalAPIDoc] = r.APIDocCompleted
	s.final[docgen.FinalAPIUsageDoc] = r.APIUsageDocCompleted
	for _, key := range r.APIFiles {
		if _, dup := s.apiSet[key]; dup {
			continue
		}
		s.apiSet[key] = struct{}{}
		s.apiFiles = append(s.apiFiles, key)
	}
	maps.Copy(s.apiInfo, r.APIInfoMap)
	maps.Copy(s.apiDetails, r.APIDetailsMap)
	maps.Copy(s.usageDetails, r.APIUsageDetailsMap)
	s.lastRunID = r.LastRunID
	s.updatedAt = r.UpdatedAt
	return s
}

func (s state) toRecord(sourceRoot, docsRoot string) record {
	failedKeys := sortedKeys(s.failed)
	failedErrors := make(map[string]string, len(s.failed))
	for key, msg := range s.failed {
		if msg != "" {
			failedErrors[key] = msg
		}
	}
	return record{
		Version:               SchemaVersion,
		SourceRoot:            sourceRoot,
		DocsRoot:              docsRoot,
		CompletedFiles:        sortedSet(s.completedFiles),
		CompletedDirs:         sortedSet(s.completedDirs),
		FailedFiles:           failedKeys,
		FailedErrors:          failedErrors,
		DocPaths:              s.docPaths,
		ReadmeCompleted:       s.final[docgen.FinalReadme],
		ReadingGuideCompleted: s.final[docgen.FinalReadingGuide],
		APIDocCompleted:       s.final[docgen.FinalAPIDoc],
		APIUsageDocCompleted:  s.final[docgen.FinalAPIUsageDoc],
		APIFiles:              append([]string{}, s.apiFiles...),
		APIInfoMap:            s.apiInfo,
		APIDetailsMap:         s.apiDetails,
		APIUsageDetailsMap:    s.usageDetails,
		LastRunID:             s.lastRunID,
		UpdatedAt:             s.updatedAt,
	}
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for key := range m {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
