package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"groundwork/internal/filestore"
	"groundwork/internal/identity"
	"groundwork/internal/progress"
	"groundwork/internal/source"
)

// memStorage serves a fixed entity list; only the read side matters here.
type memStorage struct {
	entities []map[string]any
}

func (m *memStorage) FindMany(_ context.Context, _, _ any, take, skip *int) ([]map[string]any, error) {
	items := m.entities
	if skip != nil {
		if *skip >= len(items) {
			return nil, nil
		}
		items = items[*skip:]
	}
	if take != nil && *take < len(items) {
		items = items[:*take]
	}
	return items, nil
}

func (m *memStorage) FindUnique(_ context.Context, _ string) (map[string]any, error) {
	return nil, source.ErrNotFound
}

func (m *memStorage) FindFirst(_ context.Context, _ any) (map[string]any, error) {
	return nil, source.ErrNotFound
}

func (m *memStorage) Count(_ context.Context, _ any) (int, error) {
	return len(m.entities), nil
}

func (m *memStorage) Create(_ context.Context, payload map[string]any) (map[string]any, error) {
	return payload, nil
}

func (m *memStorage) Update(_ context.Context, _ string, payload map[string]any) (map[string]any, error) {
	return payload, nil
}

func (m *memStorage) Delete(_ context.Context, _ []string) ([]map[string]any, error) {
	return nil, nil
}

func entities(prefix string, n int) []map[string]any {
	out := make([]map[string]any, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, map[string]any{"id": fmt.Sprintf("%s%d", prefix, i)})
	}
	return out
}

func TestRunProducesArchive(t *testing.T) {
	widgets := source.MustNew(source.Config{
		Name:    "widget",
		Storage: &memStorage{entities: entities("w", 3)},
		ACL:     source.DefaultACL("widget"),
	})

	job := progress.NewJob("u1", nil)
	svc := New(Config{
		Version:  "1.2.3",
		Sources:  []*source.Source{widgets},
		Files:    filestore.NewLocal(t.TempDir(), nil),
		Progress: job,
		Identity: identity.New("u1", "widget.read"),
		Temp:     t.TempDir(),
		PageSize: 2,
	})

	file, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if file.Size == 0 {
		t.Fatal("expected the artifact size to be refreshed")
	}

	summary := job.Snapshot()
	// 3 entities plus the manifest.
	if summary.Total != 4 || summary.Success != 4 || summary.Failure != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	archive, err := zip.OpenReader(file.Location)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer archive.Close()

	names := map[string]bool{}
	for _, entry := range archive.File {
		names[entry.Name] = true
	}
	for _, want := range []string{
		"meta.json",
		"source/widget/w1.json",
		"source/widget/w2.json",
		"source/widget/w3.json",
	} {
		if !names[want] {
			t.Fatalf("expected archive entry %s, have %v", want, names)
		}
	}

	manifest := readManifest(t, &archive.Reader)
	if manifest.Version != "1.2.3" {
		t.Fatalf("unexpected manifest version %q", manifest.Version)
	}
	if len(manifest.Sources) != 1 || manifest.Sources[0] != "widget" {
		t.Fatalf("unexpected manifest sources %v", manifest.Sources)
	}
}

func TestEntityFailureDoesNotAbortTheRun(t *testing.T) {
	widgets := source.MustNew(source.Config{
		Name:    "widget",
		Storage: &memStorage{entities: entities("w", 3)},
		Backup: func(_ context.Context, entity map[string]any) (map[string]any, error) {
			if entity["id"] == "w2" {
				return nil, errors.New("corrupt attachment")
			}
			return entity, nil
		},
	})
	orders := source.MustNew(source.Config{
		Name:    "order",
		Storage: &memStorage{entities: entities("o", 2)},
	})

	job := progress.NewJob("", nil)
	svc := New(Config{
		Sources:  []*source.Source{widgets, orders},
		Files:    filestore.NewLocal(t.TempDir(), nil),
		Progress: job,
		Temp:     t.TempDir(),
	})

	file, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	summary := job.Snapshot()
	// 5 entities plus the manifest, one entity broken.
	if summary.Total != 6 || summary.Failure != 1 || summary.Success != 5 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Total != summary.Success+summary.Failure+summary.Skip {
		t.Fatalf("summary does not add up: %+v", summary)
	}

	archive, err := zip.OpenReader(file.Location)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer archive.Close()

	names := map[string]bool{}
	for _, entry := range archive.File {
		names[entry.Name] = true
	}
	if names["source/widget/w2.json"] {
		t.Fatal("expected the broken entity to be absent")
	}
	for _, want := range []string{
		"source/widget/w1.json",
		"source/widget/w3.json",
		"source/order/o1.json",
		"source/order/o2.json",
	} {
		if !names[want] {
			t.Fatalf("expected archive entry %s, have %v", want, names)
		}
	}
}

func TestLargeRunSurvivesOneBrokenEntity(t *testing.T) {
	widgets := source.MustNew(source.Config{
		Name:    "widget",
		Storage: &memStorage{entities: entities("w", 100)},
		Backup: func(_ context.Context, entity map[string]any) (map[string]any, error) {
			if entity["id"] == "w37" {
				return nil, errors.New("unreadable")
			}
			return entity, nil
		},
	})

	job := progress.NewJob("", nil)
	svc := New(Config{
		Sources:  []*source.Source{widgets},
		Files:    filestore.NewLocal(t.TempDir(), nil),
		Progress: job,
		Temp:     t.TempDir(),
		PageSize: 10,
	})

	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	summary := job.Snapshot()
	if summary.Total != 101 || summary.Failure != 1 || summary.Success != 100 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestRunFailsWithoutReadAccess(t *testing.T) {
	widgets := source.MustNew(source.Config{
		Name:    "widget",
		Storage: &memStorage{entities: entities("w", 1)},
		ACL:     source.DefaultACL("widget"),
	})

	svc := New(Config{
		Sources:  []*source.Source{widgets},
		Files:    filestore.NewLocal(t.TempDir(), nil),
		Progress: progress.NewJob("", nil),
		Identity: identity.Anonymous(),
		Temp:     t.TempDir(),
	})

	_, err := svc.Run(context.Background())
	var denied *identity.AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected access denied, got %v", err)
	}
}

func readManifest(t *testing.T, archive *zip.Reader) Manifest {
	t.Helper()
	for _, entry := range archive.File {
		if entry.Name != "meta.json" {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			t.Fatalf("open meta.json: %v", err)
		}
		defer rc.Close()
		var manifest Manifest
		if err := json.NewDecoder(rc).Decode(&manifest); err != nil {
			t.Fatalf("decode meta.json: %v", err)
		}
		return manifest
	}
	t.Fatal("meta.json not found in archive")
	return Manifest{}
}
