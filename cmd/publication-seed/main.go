package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/upb/publication-rag/app"
	"github.com/upb/publication-rag/config"
	"github.com/upb/publication-rag/internal/observability"
	"github.com/upb/publication-rag/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// BatchIngester stores a batch of publications atomically
type BatchIngester interface {
	IngestBatch(ctx context.Context, batch []models.PublicationFields) ([]models.PublicationRef, error)
}

func main() {
	var (
		file      string
		batchSize int
	)
	flag.StringVar(&file, "file", "", "Path to a YAML list of publications")
	flag.IntVar(&batchSize, "batch", 20, "Publications per ingestion batch")
	flag.Parse()

	if file == "" {
		fmt.Fprintln(os.Stderr, "Usage: publication-seed -file catalog.yaml [-batch 20]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, file, batchSize); err != nil {
		fmt.Fprintf(os.Stderr, "publication-seed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, file string, batchSize int) error {
	if batchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", batchSize)
	}

	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	catalog, err := loadCatalog(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", file, err)
	}

	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = deps.Close(context.Background()) }()

	_, err = seed(ctx, deps.PublicationService, catalog, batchSize, logger)
	return err
}

// loadCatalog decodes a YAML sequence of publications. Unknown keys are
// rejected.
func loadCatalog(r io.Reader) ([]models.PublicationFields, error) {
	var catalog []models.PublicationFields

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	if err := decoder.Decode(&catalog); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("catalog is empty")
		}
		return nil, err
	}
	if len(catalog) == 0 {
		return nil, errors.New("catalog is empty")
	}

	return catalog, nil
}

func chunk(items []models.PublicationFields, size int) [][]models.PublicationFields {
	var chunks [][]models.PublicationFields
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

// seed ingests the catalog chunk by chunk and stops at the first failed
// chunk. Earlier chunks stay stored.
func seed(ctx context.Context, svc BatchIngester, catalog []models.PublicationFields, batchSize int, logger *zap.Logger) (int, error) {
	stored := 0
	for i, batch := range chunk(catalog, batchSize) {
		refs, err := svc.IngestBatch(ctx, batch)
		if err != nil {
			logger.Error("batch ingestion failed",
				zap.Int("batch", i),
				zap.Int("stored", stored),
				zap.Error(err))
			return stored, fmt.Errorf("batch %d: %w", i, err)
		}
		stored += len(refs)
		logger.Info("batch ingested", zap.Int("batch", i), zap.Int("count", len(refs)))
	}

	logger.Info("catalog seeded", zap.Int("stored", stored))
	return stored, nil
}
