// Package backup streams every entity of the registered sources into a
// per-entity file layout, then packages one archive per run. A broken
// entity or a broken source never aborts the rest of the backup.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"groundwork/internal/filestore"
	"groundwork/internal/identity"
	"groundwork/internal/progress"
	"groundwork/internal/query"
	"groundwork/internal/source"
)

// Manifest describes one backup run. Written once as meta.json at the
// archive root, immutable after creation.
type Manifest struct {
	Version string   `json:"version"`
	Sources []string `json:"sources"`
}

const defaultPageSize = 250

// Config wires a backup service.
type Config struct {
	Version  string
	Sources  []*source.Source
	Files    filestore.Store
	Progress progress.Reporter
	Identity *identity.Identity
	Logger   *zap.Logger
	Temp     string
	PageSize int
}

type Service struct {
	version  string
	sources  []*source.Source
	files    filestore.Store
	progress progress.Reporter
	ident    *identity.Identity
	logger   *zap.Logger
	temp     string
	pageSize int
}

func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	temp := cfg.Temp
	if temp == "" {
		temp = os.TempDir()
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	ident := cfg.Identity
	if ident == nil {
		ident = identity.Anonymous()
	}
	return &Service{
		version:  cfg.Version,
		sources:  cfg.Sources,
		files:    cfg.Files,
		progress: cfg.Progress,
		ident:    ident,
		logger:   logger,
		temp:     temp,
		pageSize: pageSize,
	}
}

// Run executes one full backup: stage, count, export every source
// concurrently, archive the staging tree, store the artifact and drop
// the staging directory. Archiving failures are fatal; per-source and
// per-entity failures are not.
func (s *Service) Run(ctx context.Context) (*filestore.File, error) {
	stamp := time.Now().Format("2006-01-02")
	staging := filepath.Join(s.temp, "backup", stamp)

	file, err := s.files.Store(ctx, filestore.Request{
		Path:    "/backup",
		Name:    fmt.Sprintf("Backup-%s.zip", stamp),
		Replace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("reserve backup artifact: %w", err)
	}

	if err := os.MkdirAll(staging, 0755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := s.writeManifest(staging); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		src.WithIdentity(s.ident)
		names = append(names, src.Name())
	}

	// The manifest itself is one unit of work; entity counts follow.
	s.progress.SetTotal(1)
	total := 0
	for _, src := range s.sources {
		count, err := src.Count(ctx, query.Query{})
		if err != nil {
			return nil, fmt.Errorf("count [%s]: %w", src.Name(), err)
		}
		total += count
	}
	s.progress.SetTotal(total + 1)
	s.progress.OnSuccess()
	s.logger.Info("backup started", zap.Strings("sources", names), zap.Int("entities", total))

	g, gctx := errgroup.WithContext(ctx)
	for _, src := range s.sources {
		src := src
		g.Go(func() error {
			// A broken source is isolated; siblings keep exporting.
			if err := s.export(gctx, staging, src); err != nil {
				s.logger.Error("source export failed", zap.String("source", src.Name()), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := zipDir(staging, file.Location); err != nil {
		return nil, fmt.Errorf("archive backup: %w", err)
	}
	if err := s.files.Refresh(ctx, file.ID); err != nil {
		return nil, fmt.Errorf("finalize backup artifact: %w", err)
	}
	s.logger.Info("backup finished", zap.String("location", file.Location))
	return file, nil
}

func (s *Service) writeManifest(staging string) error {
	names := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		names = append(names, src.Name())
	}
	payload, err := json.Marshal(Manifest{Version: s.version, Sources: names})
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, "meta.json"), payload, 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// export streams one source page by page, writing one file per entity.
// Pages are strictly sequential per source; a single entity failure is
// counted and the loop continues.
func (s *Service) export(ctx context.Context, staging string, src *source.Source) error {
	dir := filepath.Join(staging, "source", src.Name())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create source dir: %w", err)
	}

	count, err := src.Count(ctx, query.Query{})
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}
	pages := (count + s.pageSize - 1) / s.pageSize

	for page := 0; page <= pages; page++ {
		entities, err := src.Query(ctx, query.Paged(page, s.pageSize))
		if err != nil {
			return fmt.Errorf("query page %d: %w", page, err)
		}
		for _, entity := range entities {
			if err := s.exportEntity(ctx, dir, src, entity); err != nil {
				s.progress.OnFailure()
				s.logger.Error("entity export failed", zap.String("source", src.Name()), zap.Error(err))
				continue
			}
			s.progress.OnSuccess()
		}
	}
	return nil
}

func (s *Service) exportEntity(ctx context.Context, dir string, src *source.Source, entity map[string]any) error {
	id, _ := entity["id"].(string)
	if id == "" {
		id = fmt.Sprintf("%v", entity["id"])
	}
	backup, err := src.BackupOf(ctx, entity)
	if err != nil {
		return fmt.Errorf("backup of %s: %w", id, err)
	}
	payload, err := json.Marshal(backup)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}
	if err := os.WriteFile(filepath.Join(dir, id+".json"), payload, 0644); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	return nil
}
