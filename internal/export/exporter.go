// Package export writes a run's tables to a blob bucket as parquet or xlsx
// files alongside a checksummed manifest.
package export

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// driver
	_ "gocloud.dev/blob/gcsblob"  // gs:// driver
	_ "gocloud.dev/blob/s3blob"   // s3:// driver
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/segment-cli/internal/resilience"
	"github.com/sells-group/segment-cli/internal/store"
)

// Exporter writes run tables to a bucket under <prefix><run_id>/.
type Exporter struct {
	bucket  *blob.Bucket
	prefix  string
	formats []string
	retry   resilience.RetryConfig
}

// Open opens the bucket at bucketURL (file://, gs:// or s3://).
func Open(ctx context.Context, bucketURL, prefix string, formats []string, retry resilience.RetryConfig) (*Exporter, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open bucket %s", bucketURL)
	}
	return New(bucket, prefix, formats, retry)
}

// New wraps an already opened bucket.
func New(bucket *blob.Bucket, prefix string, formats []string, retry resilience.RetryConfig) (*Exporter, error) {
	if len(formats) == 0 {
		return nil, eris.New("export: at least one format is required")
	}
	for _, f := range formats {
		if f != FormatParquet && f != FormatXLSX {
			return nil, eris.Errorf("export: unsupported format %q", f)
		}
	}
	return &Exporter{bucket: bucket, prefix: prefix, formats: formats, retry: retry}, nil
}

// Close releases the bucket.
func (e *Exporter) Close() error {
	return e.bucket.Close()
}

// Key returns the object key of a table file for runID.
func (e *Exporter) Key(runID, table, format string) string {
	return e.prefix + path.Join(runID, table+"."+format)
}

type job struct {
	table  string
	format string
	rows   int
	encode func() ([]byte, error)
}

// Export encodes every table in every configured format, uploads them in
// parallel and finally writes the manifest. The manifest is only written
// when all table files succeeded.
func (e *Exporter) Export(ctx context.Context, runID string, tables store.Tables) (*Manifest, error) {
	start := time.Now()

	var jobs []job
	for _, format := range e.formats {
		jobs = append(jobs,
			job{store.LedgerTable, format, len(tables.Ledger), func() ([]byte, error) {
				return encode(format, store.LedgerTable, ledgerRecords(runID, tables.Ledger))
			}},
			job{store.CustomersTable, format, len(tables.Customers), func() ([]byte, error) {
				return encode(format, store.CustomersTable, customerRecords(runID, tables.Customers))
			}},
			job{store.MonthlyTable, format, len(tables.Monthly), func() ([]byte, error) {
				return encode(format, store.MonthlyTable, monthlyRecords(runID, tables.Monthly))
			}},
		)
	}

	manifest := &Manifest{
		RunID:     runID,
		Files:     make(map[string]FileInfo, len(jobs)),
		CreatedAt: time.Now().UTC(),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, j := range jobs {
		g.Go(func() error {
			data, err := j.encode()
			if err != nil {
				return eris.Wrapf(err, "export: encode %s as %s", j.table, j.format)
			}
			key := e.Key(runID, j.table, j.format)
			if err := e.put(gctx, key, j.table, data); err != nil {
				return err
			}

			mu.Lock()
			manifest.Files[j.table+"."+j.format] = newFileInfo(j.table, j.format, key, j.rows, data)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	jsonData, err := manifest.encodeJSON()
	if err != nil {
		return nil, err
	}
	if err := e.put(ctx, e.prefix+path.Join(runID, ManifestJSON), ManifestJSON, jsonData); err != nil {
		return nil, err
	}
	yamlData, err := manifest.encodeYAML()
	if err != nil {
		return nil, err
	}
	if err := e.put(ctx, e.prefix+path.Join(runID, ManifestYAML), ManifestYAML, yamlData); err != nil {
		return nil, err
	}

	zap.L().Info("export: run exported",
		zap.String("run_id", runID),
		zap.Strings("formats", e.formats),
		zap.Int("files", len(manifest.Files)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return manifest, nil
}

// put uploads data to key, retrying transient failures.
func (e *Exporter) put(ctx context.Context, key, table string, data []byte) error {
	cfg := e.retry
	cfg.OnRetry = resilience.RetryLogger("bucket", table)

	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		w, err := e.bucket.NewWriter(ctx, key, nil)
		if err != nil {
			return eris.Wrapf(err, "export: create writer for %s", key)
		}
		if _, err := w.Write(data); err != nil {
			w.Close() //nolint:errcheck
			return eris.Wrapf(err, "export: write %s", key)
		}
		if err := w.Close(); err != nil {
			return eris.Wrapf(err, "export: close writer for %s", key)
		}
		return nil
	})
}
