package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang/snappy"

	"github.com/dd0wney/cluso-tara/pkg/logging"
	"github.com/dd0wney/cluso-tara/pkg/metrics"
	"github.com/dd0wney/cluso-tara/pkg/model"
)

// DefaultMaxArchives is the number of archived revisions kept per
// project when the config does not say otherwise.
const DefaultMaxArchives = 10

// FileStoreConfig configures a FileStore.
type FileStoreConfig struct {
	// DataDir is the root directory for snapshots and archives.
	DataDir string
	// MaxArchives is the number of archived revisions kept per project
	// (0 = DefaultMaxArchives).
	MaxArchives int
	// Registry receives store metrics when set.
	Registry *metrics.Registry
}

// DefaultFileStoreConfig returns the default file store configuration
func DefaultFileStoreConfig(dataDir string) FileStoreConfig {
	return FileStoreConfig{
		DataDir:     dataDir,
		MaxArchives: DefaultMaxArchives,
	}
}

// FileStore keeps one JSON snapshot file per project under
// <dataDir>/projects, with the previous revision of each project
// compressed into <dataDir>/archive/<id> on every save. All snapshots
// are loaded at open; reads are served from memory.
type FileStore struct {
	dataDir     string
	maxArchives int
	reg         *metrics.Registry
	log         logging.Logger
	projects    map[string]*StoredProject
	sizes       map[string]int64
	mu          sync.RWMutex
}

// NewFileStore opens a file store, creating the directory layout and
// loading any existing snapshots.
func NewFileStore(config FileStoreConfig) (*FileStore, error) {
	if config.MaxArchives <= 0 {
		config.MaxArchives = DefaultMaxArchives
	}

	s := &FileStore{
		dataDir:     config.DataDir,
		maxArchives: config.MaxArchives,
		reg:         config.Registry,
		log:         logging.DefaultLogger().With(logging.Component("store")),
		projects:    make(map[string]*StoredProject),
		sizes:       make(map[string]int64),
	}

	if err := os.MkdirAll(s.projectsDir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	s.log.Info("file store opened",
		logging.Path(s.dataDir),
		logging.Count(len(s.projects)))
	s.updateGauges()

	return s, nil
}

// Save upserts a recalculated snapshot. The previous snapshot on disk,
// if any, is compressed into the project's archive before being
// replaced.
func (s *FileStore) Save(ctx context.Context, project *model.Project) (stored *StoredProject, err error) {
	defer func(start time.Time) { record(s.reg, "save", start, err) }(time.Now())

	if project == nil {
		return nil, model.ErrNilProject
	}
	if err := checkID(project.ID); err != nil {
		return nil, model.NewError("store.save").Project(project.ID).Cause(err).Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	clone := project.Clone()
	revision := int64(1)
	if prev, ok := s.projects[project.ID]; ok {
		revision = prev.Revision + 1
	}

	snapshot, err := json.Marshal(clone)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project: %w", err)
	}

	doc := &StoredProject{
		Project:     clone,
		Revision:    revision,
		Fingerprint: Fingerprint(snapshot),
		SavedAt:     time.Now().UTC(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if revision > 1 {
		s.archiveCurrent(project.ID, revision-1)
	}

	path := s.projectPath(project.ID)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return nil, fmt.Errorf("failed to replace snapshot: %w", err)
	}

	s.projects[project.ID] = doc
	s.sizes[project.ID] = int64(len(data))
	s.updateGauges()

	return copyStored(doc), nil
}

// Get retrieves the stored snapshot for the given project id
func (s *FileStore) Get(ctx context.Context, id string) (stored *StoredProject, err error) {
	defer func(start time.Time) { record(s.reg, "get", start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.projects[id]
	if !ok {
		return nil, model.NotFoundError("store.get", model.EntityProject, id)
	}

	return copyStored(doc), nil
}

// Delete removes the project snapshot and its archives
func (s *FileStore) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { record(s.reg, "delete", start, err) }(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[id]; !ok {
		return model.NotFoundError("store.delete", model.EntityProject, id)
	}

	if err := os.Remove(s.projectPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	if err := os.RemoveAll(s.archiveDir(id)); err != nil {
		s.log.Warn("failed to remove archives",
			logging.ProjectID(id), logging.Error(err))
	}

	delete(s.projects, id)
	delete(s.sizes, id)
	s.updateGauges()

	return nil
}

// List returns summaries of all stored projects, most recently saved
// first.
func (s *FileStore) List(ctx context.Context) (summaries []*ProjectSummary, err error) {
	defer func(start time.Time) { record(s.reg, "list", start, err) }(time.Now())

	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries = make([]*ProjectSummary, 0, len(s.projects))
	for _, doc := range s.projects {
		summaries = append(summaries, &ProjectSummary{
			ID:        doc.Project.ID,
			Title:     doc.Project.Title,
			Revision:  doc.Revision,
			Threats:   len(doc.Project.Threats),
			Scenarios: len(doc.Project.Scenarios),
			SavedAt:   doc.SavedAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].SavedAt.Equal(summaries[j].SavedAt) {
			return summaries[i].SavedAt.After(summaries[j].SavedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})

	return summaries, nil
}

// ListArchives returns the archived revisions of a project, oldest
// first.
func (s *FileStore) ListArchives(ctx context.Context, id string) ([]int64, error) {
	entries, err := os.ReadDir(s.archiveDir(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var revisions []int64
	for _, entry := range entries {
		var rev int64
		if _, err := fmt.Sscanf(entry.Name(), "rev-%d.json.sz", &rev); err == nil {
			revisions = append(revisions, rev)
		}
	}
	sort.Slice(revisions, func(i, j int) bool { return revisions[i] < revisions[j] })

	return revisions, nil
}

// GetArchive retrieves an archived revision of a project
func (s *FileStore) GetArchive(ctx context.Context, id string, revision int64) (*StoredProject, error) {
	compressed, err := os.ReadFile(s.archivePath(id, revision))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.NewError("store.archive").Project(id).
				Context(fmt.Sprintf("revision %d", revision)).
				Cause(model.ErrNotFound).Err()
		}
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	data, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress archive: %w", err)
	}

	doc := &StoredProject{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal archive: %w", err)
	}

	return doc, nil
}

// Ping checks that the data directory is still accessible
func (s *FileStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.dataDir); err != nil {
		return fmt.Errorf("store directory unavailable: %w", err)
	}
	return nil
}

// Close is a no-op for the file store
func (s *FileStore) Close() error {
	return nil
}

// archiveCurrent compresses the on-disk snapshot into the project's
// archive under its current revision and prunes old archives. Failures
// are logged, not fatal: losing an archive must not block the save.
func (s *FileStore) archiveCurrent(id string, revision int64) {
	data, err := os.ReadFile(s.projectPath(id))
	if err != nil {
		s.log.Warn("failed to read snapshot for archiving",
			logging.ProjectID(id), logging.Error(err))
		return
	}

	if err := os.MkdirAll(s.archiveDir(id), 0755); err != nil {
		s.log.Warn("failed to create archive directory",
			logging.ProjectID(id), logging.Error(err))
		return
	}

	compressed := snappy.Encode(nil, data)
	if err := os.WriteFile(s.archivePath(id, revision), compressed, 0600); err != nil {
		s.log.Warn("failed to write archive",
			logging.ProjectID(id), logging.Error(err))
		return
	}

	s.pruneArchives(id)
}

// pruneArchives removes the oldest archives beyond the configured limit
func (s *FileStore) pruneArchives(id string) {
	revisions, err := s.ListArchives(context.Background(), id)
	if err != nil {
		return
	}

	for len(revisions) > s.maxArchives {
		if err := os.Remove(s.archivePath(id, revisions[0])); err != nil {
			return
		}
		revisions = revisions[1:]
	}
}

// load reads all snapshots from disk into memory
func (s *FileStore) load() error {
	entries, err := os.ReadDir(s.projectsDir())
	if err != nil {
		return fmt.Errorf("failed to read store directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(s.projectsDir(), entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read snapshot %s: %w", entry.Name(), err)
		}

		doc := &StoredProject{}
		if err := json.Unmarshal(data, doc); err != nil {
			return fmt.Errorf("failed to unmarshal snapshot %s: %w", entry.Name(), err)
		}
		if doc.Project == nil {
			return fmt.Errorf("snapshot %s holds no project", entry.Name())
		}

		s.projects[doc.Project.ID] = doc
		s.sizes[doc.Project.ID] = int64(len(data))
	}

	return nil
}

// updateGauges refreshes the store gauges. Callers hold the lock.
func (s *FileStore) updateGauges() {
	if s.reg == nil {
		return
	}
	s.reg.StoreProjectsTotal.Set(float64(len(s.projects)))

	var total int64
	for _, size := range s.sizes {
		total += size
	}
	s.reg.StoreSnapshotBytes.Set(float64(total))
}

func (s *FileStore) projectsDir() string {
	return filepath.Join(s.dataDir, "projects")
}

func (s *FileStore) projectPath(id string) string {
	return filepath.Join(s.projectsDir(), id+".json")
}

func (s *FileStore) archiveDir(id string) string {
	return filepath.Join(s.dataDir, "archive", id)
}

func (s *FileStore) archivePath(id string, revision int64) string {
	return filepath.Join(s.archiveDir(id), fmt.Sprintf("rev-%06d.json.sz", revision))
}

// copyStored returns a StoredProject whose Project is a deep copy, so
// callers can never mutate the cached snapshot.
func copyStored(doc *StoredProject) *StoredProject {
	return &StoredProject{
		Project:     doc.Project.Clone(),
		Revision:    doc.Revision,
		Fingerprint: doc.Fingerprint,
		SavedAt:     doc.SavedAt,
	}
}

// checkID rejects ids that cannot serve as file names. The API layer
// validates ids properly; this guard only keeps a hostile id from
// escaping the data directory.
func checkID(id string) error {
	if id == "" {
		return model.ErrEmptyID
	}
	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return fmt.Errorf("id %q is not a valid file name", id)
	}
	return nil
}
