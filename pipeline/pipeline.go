// Package pipeline orchestrates the ETL and analysis runs over an object
// store: raw compressed logs in, parsed CSV documents and JSON reports out.
package pipeline

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crawlytics/analyzer"
	"github.com/crawlytics/botmap"
	"github.com/crawlytics/config"
	"github.com/crawlytics/csvlog"
	"github.com/crawlytics/logline"
	"github.com/crawlytics/storage"
)

// Pipeline wires the core packages to an object store. All collaborators
// are injected; nothing here reaches for ambient clients.
type Pipeline struct {
	store storage.ObjectStore
	cfg   *config.Config
	log   *zap.SugaredLogger
	now   func() time.Time
}

// New creates a Pipeline. A nil clock defaults to time.Now.
func New(store storage.ObjectStore, cfg *config.Config, logger *zap.SugaredLogger, now func() time.Time) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{store: store, cfg: cfg, log: logger, now: now}
}

// DeriveOutputKey maps a raw object key to its parsed CSV key:
//
//	raw/date=2025-10-31/access.log-2025-10-31.gz
//	-> parsed/date=2025-10-31/access.log-2025-10-31.csv
func DeriveOutputKey(inputKey, prefix string) string {
	rest := strings.TrimPrefix(inputKey, "raw/")
	if strings.HasSuffix(rest, ".gz") {
		rest = strings.TrimSuffix(rest, ".gz") + ".csv"
	} else {
		rest += ".csv"
	}
	return ensureSlash(prefix) + rest
}

// ProcessRaw runs one compressed raw log object through the ETL: parse it,
// write the per-file CSV, append its rows to the aggregated CSV, and append
// its raw lines to the aggregated log. Returns the per-file CSV key.
func (p *Pipeline) ProcessRaw(ctx context.Context, key string) (string, error) {
	gz, err := p.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("fetching raw log %s: %w", key, err)
	}

	recs, err := logline.DecodeAll(gz)
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", key, err)
	}

	var buf bytes.Buffer
	if err := csvlog.WriteAll(&buf, recs); err != nil {
		return "", fmt.Errorf("serializing %s: %w", key, err)
	}

	outKey := DeriveOutputKey(key, p.cfg.ProcessingPrefix)
	if err := p.store.Put(ctx, outKey, buf.Bytes()); err != nil {
		return "", fmt.Errorf("writing %s: %w", outKey, err)
	}
	p.log.Infow("wrote parsed csv", "key", outKey, "rows", len(recs))

	if err := p.appendAggregatedCSV(ctx, buf.Bytes()); err != nil {
		return "", err
	}
	if err := p.appendAggregatedLog(ctx, gz); err != nil {
		return "", err
	}

	return outKey, nil
}

// appendAggregatedCSV appends body rows to the single aggregated CSV,
// creating it with the full headered document when absent. Read-modify-write;
// fine for small daily batches, not for concurrent writers.
func (p *Pipeline) appendAggregatedCSV(ctx context.Context, doc []byte) error {
	existing, err := p.store.Get(ctx, p.cfg.AggregatedKey)
	if errors.Is(err, storage.ErrNotFound) {
		return p.store.Put(ctx, p.cfg.AggregatedKey, doc)
	}
	if err != nil {
		return fmt.Errorf("fetching aggregated csv: %w", err)
	}
	return p.store.Put(ctx, p.cfg.AggregatedKey, csvlog.Append(existing, doc))
}

// appendAggregatedLog appends the decompressed raw lines to the aggregated
// log file. Content that is not valid gzip is skipped, not fatal.
func (p *Pipeline) appendAggregatedLog(ctx context.Context, gz []byte) error {
	zr, err := gzip.NewReader(bytes.NewReader(gz))
	if err != nil {
		p.log.Warnw("skipping aggregated log append: content is not valid gzip", "error", err)
		return nil
	}
	plain, err := io.ReadAll(zr)
	if err != nil {
		p.log.Warnw("skipping aggregated log append: truncated gzip content", "error", err)
		return nil
	}

	existing, err := p.store.Get(ctx, p.cfg.AggregatedLogKey)
	if errors.Is(err, storage.ErrNotFound) {
		return p.store.Put(ctx, p.cfg.AggregatedLogKey, plain)
	}
	if err != nil {
		return fmt.Errorf("fetching aggregated log: %w", err)
	}
	return p.store.Put(ctx, p.cfg.AggregatedLogKey, append(existing, plain...))
}

// RunAnalysis builds the bot usage report from the aggregated CSV and
// stores it under the report prefix, dated to yesterday (UTC). An
// aggregated CSV that was never created yields an empty report, not an
// error.
func (p *Pipeline) RunAnalysis(ctx context.Context, registry *botmap.Registry, daysBack int) (string, *analyzer.Report, error) {
	var rows *csvlog.RowReader

	data, err := p.store.Get(ctx, p.cfg.AggregatedKey)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		p.log.Infow("no aggregated csv yet, producing empty report", "key", p.cfg.AggregatedKey)
	case err != nil:
		return "", nil, fmt.Errorf("fetching aggregated csv: %w", err)
	default:
		rows, err = csvlog.NewRowReader(bytes.NewReader(data))
		if err != nil {
			return "", nil, fmt.Errorf("opening aggregated csv: %w", err)
		}
	}

	report, err := analyzer.New(registry, p.now).Analyze(rows, daysBack)
	if err != nil {
		return "", nil, err
	}

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("encoding report: %w", err)
	}

	yesterday := p.now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	key := fmt.Sprintf("%sbot-report-%s.json", ensureSlash(p.cfg.ReportPrefix), yesterday)
	if err := p.store.Put(ctx, key, body); err != nil {
		return "", nil, fmt.Errorf("writing report %s: %w", key, err)
	}
	p.log.Infow("wrote bot report",
		"key", key,
		"total_requests", report.Overall.TotalRequests,
		"unique_bots", report.Overall.UniqueBots)

	return key, report, nil
}

// AggregatedRows opens the aggregated CSV for scanning. Returns a nil
// reader when the aggregate was never created.
func (p *Pipeline) AggregatedRows(ctx context.Context) (*csvlog.RowReader, error) {
	data, err := p.store.Get(ctx, p.cfg.AggregatedKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching aggregated csv: %w", err)
	}
	rows, err := csvlog.NewRowReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening aggregated csv: %w", err)
	}
	return rows, nil
}

// Report fetches a previously generated report by its window-end date.
func (p *Pipeline) Report(ctx context.Context, date string) (*analyzer.Report, error) {
	key := fmt.Sprintf("%sbot-report-%s.json", ensureSlash(p.cfg.ReportPrefix), date)
	body, err := p.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetching report %s: %w", key, err)
	}
	var report analyzer.Report
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", key, err)
	}
	return &report, nil
}

func ensureSlash(prefix string) string {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}
