package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"go.uber.org/zap"

	"groundwork/internal/backup"
	"groundwork/internal/config"
	"groundwork/internal/filestore"
	"groundwork/internal/identity"
	"groundwork/internal/progress"
	"groundwork/internal/source"
	"groundwork/internal/store"
)

func main() {
	var sourcesFlag, token string
	flag.StringVar(&sourcesFlag, "sources", "", "comma-separated table names to back up")
	flag.StringVar(&token, "token", "", "JWT of the acting principal (optional)")
	flag.Parse()

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

	sources := make([]*source.Source, 0, len(names))
	for _, name := range names {
		sources = append(sources, source.MustNew(source.Config{
			Name:    name,
			Storage: store.NewTableStorage(db, name),
			ACL:     source.DefaultACL(name),
			Cache:   true,
			Logger:  logger,
		}))
	}

	job := progress.NewJob(ident.OptionalID(), map[string]any{"sources": names})
	service := backup.New(backup.Config{
		Version:  cfg.Backup.Version,
		Sources:  sources,
		Files:    filestore.NewLocal(cfg.Storage.LocalPath, logger),
		Progress: job,
		Identity: ident,
		Logger:   logger,
		Temp:     cfg.Backup.Temp,
		PageSize: cfg.Backup.PageSize,
	})

	file, err := service.Run(ctx)
	if err != nil {
		logger.Fatal("backup failed", zap.Error(err))
	}

	summary := job.Snapshot()
	logger.Info("backup complete",
		zap.String("job", job.ID),
		zap.String("location", file.Location),
		zap.Int("total", summary.Total),
		zap.Int("success", summary.Success),
		zap.Int("failure", summary.Failure))
}

// resolveIdentity parses the given JWT, or grants read access to every
// requested source when no token is supplied (local operator run).
func resolveIdentity(token, secret string, names []string) (*identity.Identity, error) {
	if token != "" {
		return identity.FromToken(token, secret)
	}
	tokens := make([]string, 0, len(names))
	for _, name := range names {
		tokens = append(tokens, fmt.Sprintf("%s.read", name))
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
