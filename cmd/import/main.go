package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"go.uber.org/zap"

	"groundwork/internal/config"
	"groundwork/internal/identity"
	"groundwork/internal/importer"
	"groundwork/internal/progress"
	"groundwork/internal/query"
	"groundwork/internal/repository"
	"groundwork/internal/source"
	"groundwork/internal/store"
)

func main() {
	var file, sourcesFlag, key, token string
	flag.StringVar(&file, "file", "", "path to the workbook to import")
	flag.StringVar(&sourcesFlag, "sources", "", "comma-separated table names to register as import services")
	flag.StringVar(&key, "key", "name", "natural-key column used to resolve uniqueness conflicts")
	flag.StringVar(&token, "token", "", "JWT of the acting principal (optional)")
	flag.Parse()

	if file == "" {
		log.Fatal("no workbook given, use -file data.xlsx")
	}
	names := splitNames(sourcesFlag)
	if len(names) == 0 {
		log.Fatal("no sources given, use -sources table1,table2")
	}

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()

	ident, err := resolveIdentity(token, cfg.JWTSecret, names)
	if err != nil {
		logger.Fatal("resolve identity", zap.Error(err))
	}

	handlers := importer.Handlers{}
	for _, name := range names {
		storage := store.NewTableStorage(db, name)
		src := source.MustNew(source.Config{
			Name:      name,
			Storage:   storage,
			ACL:       source.DefaultACL(name),
			ResolveID: resolveByKey(storage, key),
			Cache:     true,
			Logger:    logger,
		}).WithIdentity(ident)

		repo := repository.MustNew(repository.Config{
			Source: src,
			Create: src.Import,
		})
		handlers = importer.Merge(handlers, repo.AsImporter())
	}

	wb, err := importer.OpenWorkbook(file)
	if err != nil {
		logger.Fatal("open workbook", zap.Error(err))
	}
	defer wb.Close()

	job := progress.NewJob(ident.OptionalID(), map[string]any{"file": file, "sources": names})
	service := importer.New(importer.Config{
		Handlers: handlers,
		Progress: job,
		Logger:   logger,
	})

	summary, err := service.Run(ctx, wb)
	if err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}
	logger.Info("import complete",
		zap.String("job", job.ID),
		zap.Int("total", summary.Total),
		zap.Int("success", summary.Success),
		zap.Int("failure", summary.Failure),
		zap.Int("skip", summary.Skip))
}

// resolveByKey maps an import payload to the id of the existing entity
// holding the same natural key.
func resolveByKey(storage source.Storage, key string) func(ctx context.Context, payload map[string]any) (string, error) {
	return func(ctx context.Context, payload map[string]any) (string, error) {
		value, ok := payload[key]
		if !ok {
			return "", fmt.Errorf("payload has no %q to resolve a conflict by", key)
		}
		entity, err := storage.FindFirst(ctx, &query.Filter{Where: []query.Where{query.Eq(key, value)}})
		if err != nil {
			return "", err
		}
		id, _ := entity["id"].(string)
		if id == "" {
			return "", fmt.Errorf("conflicting entity with %s=%v has no id", key, value)
		}
		return id, nil
	}
}

// resolveIdentity parses the given JWT, or grants write access to every
// requested source when no token is supplied (local operator run).
func resolveIdentity(token, secret string, names []string) (*identity.Identity, error) {
	if token != "" {
		return identity.FromToken(token, secret)
	}
	tokens := make([]string, 0, len(names))
	for _, name := range names {
		tokens = append(tokens, fmt.Sprintf("%s.write", name))
	}
	return identity.New("operator", tokens...), nil
}

func splitNames(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}
