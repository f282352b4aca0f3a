package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dd0wney/cluso-tara/pkg/model"
)

func testProject(id, title string) *model.Project {
	p := model.NewProject(id, title)
	p.Threats = append(p.Threats, &model.Threat{
		ID:    "THR_001",
		Title: "Spoofed diagnostic session",
	})
	p.Scenarios = append(p.Scenarios, &model.ThreatScenario{
		ID:       "TS_001",
		ThreatID: "THR_001",
		Title:    "Diagnostic spoofing via OBD port",
	})
	return p
}

func TestNewFileStore(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(dir string)
		wantErr bool
	}{
		{
			name: "create store in empty directory",
		},
		{
			name: "create store in existing layout",
			setup: func(dir string) {
				os.MkdirAll(filepath.Join(dir, "projects"), 0755)
			},
		},
		{
			name: "load existing snapshot",
			setup: func(dir string) {
				os.MkdirAll(filepath.Join(dir, "projects"), 0755)
				doc := &StoredProject{
					Project:     model.NewProject("PRJ_001", "Loaded"),
					Revision:    3,
					Fingerprint: "abc",
					SavedAt:     time.Now().UTC(),
				}
				data, _ := json.MarshalIndent(doc, "", "  ")
				os.WriteFile(filepath.Join(dir, "projects", "PRJ_001.json"), data, 0600)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.setup != nil {
				tt.setup(dir)
			}

			s, err := NewFileStore(DefaultFileStoreConfig(dir))
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFileStore() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && s == nil {
				t.Fatal("NewFileStore() returned nil store")
			}
		})
	}
}

func TestFileStore_LoadedSnapshotKeepsRevision(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := NewFileStore(DefaultFileStoreConfig(dir))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := s1.Save(ctx, testProject("PRJ_001", "Vehicle gateway")); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	// A fresh instance must continue the revision sequence
	s2, err := NewFileStore(DefaultFileStoreConfig(dir))
	if err != nil {
		t.Fatalf("NewFileStore() reopen error = %v", err)
	}

	stored, err := s2.Save(ctx, testProject("PRJ_001", "Vehicle gateway"))
	if err != nil {
		t.Fatalf("Save() after reopen error = %v", err)
	}
	if stored.Revision != 4 {
		t.Errorf("revision after reopen = %d, want 4", stored.Revision)
	}
}

func TestFileStore_SaveGet(t *testing.T) {
	s, err := NewFileStore(DefaultFileStoreConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	stored, err := s.Save(ctx, testProject("PRJ_001", "Vehicle gateway"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if stored.Revision != 1 {
		t.Errorf("first save revision = %d, want 1", stored.Revision)
	}
	if stored.Fingerprint == "" {
		t.Error("fingerprint not set")
	}

	got, err := s.Get(ctx, "PRJ_001")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Project.Title != "Vehicle gateway" {
		t.Errorf("title = %q, want %q", got.Project.Title, "Vehicle gateway")
	}
	if len(got.Project.Threats) != 1 {
		t.Errorf("threats = %d, want 1", len(got.Project.Threats))
	}

	// Mutating a returned snapshot must not touch the stored one
	got.Project.Title = "mutated"
	again, err := s.Get(ctx, "PRJ_001")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.Project.Title != "Vehicle gateway" {
		t.Error("stored snapshot was mutated through a returned copy")
	}
}

func TestFileStore_RevisionIncrements(t *testing.T) {
	s, err := NewFileStore(DefaultFileStoreConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		stored, err := s.Save(ctx, testProject("PRJ_001", "Vehicle gateway"))
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if stored.Revision != want {
			t.Errorf("revision = %d, want %d", stored.Revision, want)
		}
	}
}

func TestFileStore_Fingerprint(t *testing.T) {
	s, err := NewFileStore(DefaultFileStoreConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	first, err := s.Save(ctx, testProject("PRJ_001", "Vehicle gateway"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// Same content, new revision: fingerprint must not move
	second, err := s.Save(ctx, testProject("PRJ_001", "Vehicle gateway"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if first.Fingerprint != second.Fingerprint {
		t.Errorf("fingerprint changed for identical content: %s != %s", first.Fingerprint, second.Fingerprint)
	}

	changed, err := s.Save(ctx, testProject("PRJ_001", "Renamed gateway"))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if changed.Fingerprint == first.Fingerprint {
		t.Error("fingerprint did not change for changed content")
	}
}

func TestFileStore_Archives(t *testing.T) {
	config := DefaultFileStoreConfig(t.TempDir())
	config.MaxArchives = 2

	s, err := NewFileStore(config)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	titles := []string{"First", "Second", "Third", "Fourth"}
	for _, title := range titles {
		if _, err := s.Save(ctx, testProject("PRJ_001", title)); err != nil {
			t.Fatalf("Save(%s) error = %v", title, err)
		}
	}

	// Four saves archive revisions 1..3; the limit of 2 prunes revision 1
	revisions, err := s.ListArchives(ctx, "PRJ_001")
	if err != nil {
		t.Fatalf("ListArchives() error = %v", err)
	}
	if len(revisions) != 2 || revisions[0] != 2 || revisions[1] != 3 {
		t.Fatalf("archived revisions = %v, want [2 3]", revisions)
	}

	archived, err := s.GetArchive(ctx, "PRJ_001", 3)
	if err != nil {
		t.Fatalf("GetArchive() error = %v", err)
	}
	if archived.Revision != 3 {
		t.Errorf("archived revision = %d, want 3", archived.Revision)
	}
	if archived.Project.Title != "Third" {
		t.Errorf("archived title = %q, want %q", archived.Project.Title, "Third")
	}

	if _, err := s.GetArchive(ctx, "PRJ_001", 1); !model.IsNotFound(err) {
		t.Errorf("GetArchive(pruned) error = %v, want not found", err)
	}
}

func TestFileStore_Delete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(DefaultFileStoreConfig(dir))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	s.Save(ctx, testProject("PRJ_001", "Vehicle gateway"))
	s.Save(ctx, testProject("PRJ_001", "Vehicle gateway v2"))

	if err := s.Delete(ctx, "PRJ_001"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := s.Get(ctx, "PRJ_001"); !model.IsNotFound(err) {
		t.Errorf("Get() after delete error = %v, want not found", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "projects", "PRJ_001.json")); !os.IsNotExist(err) {
		t.Error("snapshot file still exists after delete")
	}
	if _, err := os.Stat(filepath.Join(dir, "archive", "PRJ_001")); !os.IsNotExist(err) {
		t.Error("archive directory still exists after delete")
	}

	if err := s.Delete(ctx, "PRJ_001"); !model.IsNotFound(err) {
		t.Errorf("second Delete() error = %v, want not found", err)
	}
}

func TestFileStore_List(t *testing.T) {
	s, err := NewFileStore(DefaultFileStoreConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	summaries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("List() on empty store = %d entries, want 0", len(summaries))
	}

	for _, id := range []string{"PRJ_001", "PRJ_002", "PRJ_003"} {
		if _, err := s.Save(ctx, testProject(id, "Project "+id)); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	summaries, err = s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("List() = %d entries, want 3", len(summaries))
	}

	// Most recently saved first
	if summaries[0].ID != "PRJ_003" || summaries[2].ID != "PRJ_001" {
		t.Errorf("List() order = [%s %s %s], want most recent first",
			summaries[0].ID, summaries[1].ID, summaries[2].ID)
	}
	if summaries[0].Threats != 1 || summaries[0].Scenarios != 1 {
		t.Errorf("summary counts = %d threats, %d scenarios, want 1/1",
			summaries[0].Threats, summaries[0].Scenarios)
	}
}

func TestFileStore_LoadCorruptedJSON(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "projects"), 0755)
	os.WriteFile(filepath.Join(dir, "projects", "bad.json"), []byte(`{"invalid": json}`), 0600)

	if _, err := NewFileStore(DefaultFileStoreConfig(dir)); err == nil {
		t.Error("NewFileStore() expected error with corrupted JSON, got nil")
	}
}

func TestFileStore_RejectsUnsafeIDs(t *testing.T) {
	s, err := NewFileStore(DefaultFileStoreConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	for _, id := range []string{"", "../escape", "a/b", `a\b`} {
		if _, err := s.Save(ctx, model.NewProject(id, "Bad")); err == nil {
			t.Errorf("Save(%q) expected error, got nil", id)
		}
	}
}

func TestFileStore_ConcurrentAccess(t *testing.T) {
	s, err := NewFileStore(DefaultFileStoreConfig(t.TempDir()))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()

	if _, err := s.Save(ctx, testProject("PRJ_000", "Seed")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var wg sync.WaitGroup
	writeErrors := make(chan error, 20)
	readErrors := make(chan error, 50)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := "PRJ_" + string(rune('A'+n))
			if _, err := s.Save(ctx, testProject(id, "Concurrent")); err != nil {
				writeErrors <- err
			}
		}(i)
	}

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Get(ctx, "PRJ_000"); err != nil {
				readErrors <- err
			}
		}()
	}

	wg.Wait()
	close(writeErrors)
	close(readErrors)

	for err := range writeErrors {
		t.Errorf("concurrent Save() error = %v", err)
	}
	for err := range readErrors {
		t.Errorf("concurrent Get() error = %v", err)
	}

	summaries, _ := s.List(ctx)
	if len(summaries) != 21 {
		t.Errorf("List() = %d entries, want 21", len(summaries))
	}
}

func TestFileStore_FilePermissions(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(DefaultFileStoreConfig(dir))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if _, err := s.Save(context.Background(), testProject("PRJ_001", "Vehicle gateway")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, "projects", "PRJ_001.json"))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != os.FileMode(0600) {
		t.Errorf("file permissions = %v, want 0600", info.Mode().Perm())
	}
}

func TestFileStore_PingClose(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(DefaultFileStoreConfig(dir))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v, want nil", err)
	}

	os.RemoveAll(dir)
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping() after removing data dir expected error, got nil")
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("snapshot-a"))
	b := Fingerprint([]byte("snapshot-b"))

	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}
	if a == b {
		t.Error("different content produced identical fingerprints")
	}
	if a != Fingerprint([]byte("snapshot-a")) {
		t.Error("fingerprint not deterministic")
	}
}

func BenchmarkFileStore_Save(b *testing.B) {
	s, err := NewFileStore(DefaultFileStoreConfig(b.TempDir()))
	if err != nil {
		b.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()
	project := testProject("PRJ_BENCH", "Benchmark")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Save(ctx, project); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFileStore_Get(b *testing.B) {
	s, err := NewFileStore(DefaultFileStoreConfig(b.TempDir()))
	if err != nil {
		b.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()
	s.Save(ctx, testProject("PRJ_BENCH", "Benchmark"))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Get(ctx, "PRJ_BENCH"); err != nil {
			b.Fatal(err)
		}
	}
}
