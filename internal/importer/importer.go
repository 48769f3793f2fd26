// Package importer runs tabular bulk imports: a workbook declares which
// sheets feed which registered services, rows are translated and handed
// to handlers one by one, and exact success/failure/skip totals survive
// any number of bad rows.
package importer

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"groundwork/internal/progress"
)

// Rows is a lazy, one-pass, non-restartable sequence over one sheet.
type Rows interface {
	Next() bool
	Row() (map[string]any, error)
	Close() error
}

// Workbook abstracts the tabular input. Rows returns a fresh iterator
// per call so the counting and processing passes each get their own.
type Workbook interface {
	HasSheet(name string) bool
	Rows(name string) (Rows, error)
}

// Config wires an import service.
type Config struct {
	Handlers Handlers
	Progress progress.Reporter
	Logger   *zap.Logger
}

// Service executes bulk imports against the registered handlers.
type Service struct {
	handlers Handlers
	progress progress.Reporter
	logger   *zap.Logger
}

func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		handlers: cfg.Handlers,
		progress: cfg.Progress,
		logger:   logger,
	}
}

// Run imports a workbook in two passes: count every (tab, service) row
// to fix the total, then process the rows. Sheets run concurrently;
// rows within one (tab, service) stream are strictly sequential. The
// returned summary always satisfies total == success + failure + skip.
func (s *Service) Run(ctx context.Context, wb Workbook) (progress.Summary, error) {
	meta, err := ReadMeta(wb)
	if err != nil {
		return progress.Summary{}, err
	}
	s.logger.Info("import manifest",
		zap.Int("tabs", len(meta.Tabs)),
		zap.Int("translations", len(meta.Translations)))

	total, err := s.countRows(wb, meta)
	if err != nil {
		return progress.Summary{}, err
	}
	s.progress.SetTotal(total)
	s.logger.Info("import total", zap.Int("total", total))

	var run runCounters
	g, gctx := errgroup.WithContext(ctx)
	for _, tab := range meta.Tabs {
		if !wb.HasSheet(tab.Tab) {
			continue
		}
		for _, service := range tab.Services {
			tabName, serviceName := tab.Tab, service
			g.Go(func() error {
				s.runService(gctx, wb, tabName, serviceName, meta.Translations, &run)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return progress.Summary{}, err
	}

	summary := progress.Summary{
		Total:   total,
		Success: int(run.success.Load()),
		Failure: int(run.failure.Load()),
		Skip:    int(run.skip.Load()),
	}
	s.logger.Info("import done",
		zap.Int("total", summary.Total),
		zap.Int("success", summary.Success),
		zap.Int("failure", summary.Failure),
		zap.Int("skip", summary.Skip))
	return summary, nil
}

type runCounters struct {
	success atomic.Int64
	failure atomic.Int64
	skip    atomic.Int64
}

// countRows establishes the exact total without invoking any handler.
func (s *Service) countRows(wb Workbook, meta Meta) (int, error) {
	total := 0
	for _, tab := range meta.Tabs {
		if !wb.HasSheet(tab.Tab) {
			continue
		}
		for range tab.Services {
			rows, err := wb.Rows(tab.Tab)
			if err != nil {
				return 0, err
			}
			for rows.Next() {
				total++
			}
			rows.Close()
		}
	}
	return total, nil
}

// runService drains one (tab, service) stream. Row-level failures are
// recovered locally; an unregistered service skips every row. Neither
// aborts the run.
func (s *Service) runService(ctx context.Context, wb Workbook, tabName, serviceName string, translations map[string]string, run *runCounters) {
	logger := s.logger.With(zap.String("tab", tabName), zap.String("service", serviceName))

	rows, err := wb.Rows(tabName)
	if err != nil {
		logger.Error("open sheet failed", zap.Error(err))
		return
	}
	defer rows.Close()

	factory, ok := s.handlers[serviceName]
	if !ok {
		logger.Warn("service not registered, skipping sheet")
		for rows.Next() {
			run.skip.Add(1)
			s.progress.OnSkip()
		}
		return
	}

	handler := factory()
	beginFailed := false
	if handler.Begin != nil {
		if err := handler.Begin(ctx); err != nil {
			logger.Error("begin hook failed", zap.Error(err))
			beginFailed = true
		}
	}

	for rows.Next() {
		if beginFailed {
			run.failure.Add(1)
			s.progress.OnFailure()
			continue
		}
		item, err := rows.Row()
		if err == nil {
			err = handler.Handle(ctx, translate(item, translations))
		}
		if err != nil {
			run.failure.Add(1)
			s.progress.OnFailure()
			logger.Error("row failed", zap.Any("row", item), zap.Error(err))
			continue
		}
		run.success.Add(1)
		s.progress.OnSuccess()
	}

	if handler.End != nil {
		if err := handler.End(ctx); err != nil {
			logger.Error("end hook failed", zap.Error(err))
		}
	}
	logger.Info("service done")
}

// translate renames row keys through the translation map; unknown keys
// pass through unchanged.
func translate(item map[string]any, translations map[string]string) map[string]any {
	if len(translations) == 0 {
		return item
	}
	out := make(map[string]any, len(item))
	for key, value := range item {
		if to, ok := translations[key]; ok {
			key = to
		}
		out[key] = value
	}
	return out
}
