package main

import (
	"bufio"
	"bytes"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-ledger/internal/domain/item"
	"github.com/xenking/kart-ledger/internal/storage/postgres"
)

const (
	defaultBatchSize = 500
	progressEvery    = 100_000
	maxLineBytes     = 1 << 20
)

// batchWriter persists a batch of catalog items.
type batchWriter interface {
	UpsertBatch(ctx context.Context, items []item.Item) error
}

func main() {
	var (
		dataDir     string
		pattern     string
		databaseURL string
		batchSize   int
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing catalog files")
	flag.StringVar(&pattern, "pattern", "*.jsonl.gz", "glob of gzip JSON-lines catalog files inside data-dir")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", defaultBatchSize, "items per database round trip")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, pattern, databaseURL, batchSize); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, dataDir, pattern, databaseURL string, batchSize int) error {
	files, err := filepath.Glob(filepath.Join(dataDir, pattern))
	if err != nil {
		return errors.Wrap(err, "glob catalog files")
	}
	if len(files) == 0 {
		slog.Info("no catalog files found", slog.String("dir", dataDir), slog.String("pattern", pattern))
		return nil
	}
	slices.Sort(files)

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	total, err := importFiles(ctx, files, postgres.NewItemRepository(pool), batchSize)
	if err != nil {
		return err
	}
	slog.Info("items imported", slog.Int("count", total))
	return nil
}

// importFiles parses every file concurrently and writes the items in
// batches from a single goroutine. It returns the number of items written.
func importFiles(ctx context.Context, files []string, w batchWriter, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	parsed := make(chan item.Item, batchSize)
	parsers, pctx := errgroup.WithContext(ctx)
	for i, path := range files {
		parsers.Go(func() error {
			n, err := streamFile(pctx, path, func(it item.Item) error {
				select {
				case parsed <- it:
					return nil
				case <-pctx.Done():
					return pctx.Err()
				}
			})
			if err != nil {
				return errors.Wrapf(err, "parse file %d", i+1)
			}
			slog.Info("file parsed", slog.String("path", path), slog.Int("items", n))
			return nil
		})
	}

	parseErr := make(chan error, 1)
	go func() {
		parseErr <- parsers.Wait()
		close(parsed)
	}()

	written := 0
	batch := make([]item.Item, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := w.UpsertBatch(ctx, batch); err != nil {
			return errors.Wrapf(err, "write batch at item %d", written)
		}
		written += len(batch)
		if written%progressEvery < len(batch) {
			slog.Info("write progress", slog.Int("written", written))
		}
		batch = batch[:0]
		return nil
	}

	var writeErr error
	for it := range parsed {
		if writeErr != nil {
			continue // drain so parsers can exit
		}
		batch = append(batch, it)
		if len(batch) == batchSize {
			writeErr = flush()
		}
	}
	if err := <-parseErr; err != nil {
		return written, err
	}
	if writeErr != nil {
		return written, writeErr
	}
	if err := flush(); err != nil {
		return written, err
	}
	return written, nil
}

// streamFile decodes a gzip-compressed JSON-lines catalog file. Blank lines
// are skipped; an entry without a name fails the file.
func streamFile(ctx context.Context, path string, fn func(item.Item) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return 0, errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	return decodeLines(ctx, gz, fn)
}

func decodeLines(ctx context.Context, r io.Reader, fn func(item.Item) error) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	count, line := 0, 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return count, err
		}
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var it item.Item
		if err := it.Decode(jx.DecodeBytes(raw)); err != nil {
			return count, errors.Wrapf(err, "line %d", line)
		}
		if it.Name == "" {
			return count, errors.Errorf("line %d: missing name", line)
		}
		if err := fn(it); err != nil {
			return count, err
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, errors.Wrap(err, "scan")
	}
	return count, nil
}
