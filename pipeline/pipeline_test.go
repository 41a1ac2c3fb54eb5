package pipeline

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/crawlytics/botmap"
	"github.com/crawlytics/config"
	"github.com/crawlytics/storage"
)

var fixedNow = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		RawPrefix:        "raw",
		ProcessingPrefix: "parsed",
		AggregatedKey:    "aggregated/all_logs.csv",
		AggregatedLogKey: "aggregated/all_logs.log",
		ReportPrefix:     "reports",
		AnalysisDays:     365,
	}
}

func testPipeline(t *testing.T) (*Pipeline, *storage.DirStore) {
	t.Helper()
	store, err := storage.NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	p := New(store, testConfig(), zap.NewNop().Sugar(), func() time.Time { return fixedNow })
	return p, store
}

func gzipBytes(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func logLines(paths ...string) string {
	var sb strings.Builder
	for _, p := range paths {
		sb.WriteString(`1.2.3.4 example.com - [05/Jan/2025:10:00:00 +0000] "GET ` + p + ` HTTP/1.1" 200 100 "" "GPTBot/1.0"` + "\n")
	}
	return sb.String()
}

func TestDeriveOutputKey(t *testing.T) {
	tests := []struct {
		in, prefix, want string
	}{
		{"raw/date=2025-10-31/access.log-2025-10-31.gz", "parsed", "parsed/date=2025-10-31/access.log-2025-10-31.csv"},
		{"access.log.gz", "parsed", "parsed/access.log.csv"},
		{"raw/plain.log", "parsed/", "parsed/plain.log.csv"},
	}
	for _, tt := range tests {
		if got := DeriveOutputKey(tt.in, tt.prefix); got != tt.want {
			t.Errorf("DeriveOutputKey(%q, %q) = %q, want %q", tt.in, tt.prefix, got, tt.want)
		}
	}
}

func TestProcessRaw_EndToEnd(t *testing.T) {
	p, store := testPipeline(t)
	ctx := context.Background()

	if err := store.Put(ctx, "raw/access.log-1.gz", gzipBytes(t, logLines("/a", "/b"))); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "raw/access.log-2.gz", gzipBytes(t, logLines("/c"))); err != nil {
		t.Fatal(err)
	}

	outKey, err := p.ProcessRaw(ctx, "raw/access.log-1.gz")
	if err != nil {
		t.Fatalf("ProcessRaw: %v", err)
	}
	if outKey != "parsed/access.log-1.csv" {
		t.Errorf("outKey = %q", outKey)
	}
	if _, err := p.ProcessRaw(ctx, "raw/access.log-2.gz"); err != nil {
		t.Fatalf("ProcessRaw second: %v", err)
	}

	// Per-file CSV exists and carries a header.
	perFile, err := store.Get(ctx, outKey)
	if err != nil {
		t.Fatalf("Get per-file csv: %v", err)
	}
	if !strings.HasPrefix(string(perFile), "date,timestamp,") {
		t.Error("per-file csv missing header")
	}

	// Aggregated CSV has exactly one header and the union of rows.
	agg, err := store.Get(ctx, "aggregated/all_logs.csv")
	if err != nil {
		t.Fatalf("Get aggregated csv: %v", err)
	}
	if strings.Count(string(agg), "date,timestamp,") != 1 {
		t.Error("aggregated csv should have exactly one header")
	}
	for _, path := range []string{"/a", "/b", "/c"} {
		if !strings.Contains(string(agg), ","+path+",") {
			t.Errorf("aggregated csv missing row for %s", path)
		}
	}

	// Aggregated log holds the decompressed raw lines of both blobs.
	aggLog, err := store.Get(ctx, "aggregated/all_logs.log")
	if err != nil {
		t.Fatalf("Get aggregated log: %v", err)
	}
	if !strings.Contains(string(aggLog), "GET /a") || !strings.Contains(string(aggLog), "GET /c") {
		t.Error("aggregated log missing raw lines")
	}
}

func TestProcessRaw_MissingObject(t *testing.T) {
	p, _ := testPipeline(t)
	if _, err := p.ProcessRaw(context.Background(), "raw/nope.gz"); err == nil {
		t.Fatal("expected error for missing raw object")
	}
}

func TestProcessRaw_InvalidGzip(t *testing.T) {
	p, store := testPipeline(t)
	ctx := context.Background()

	if err := store.Put(ctx, "raw/bad.gz", []byte("not gzip")); err != nil {
		t.Fatal(err)
	}
	if _, err := p.ProcessRaw(ctx, "raw/bad.gz"); err == nil {
		t.Fatal("expected error for invalid gzip blob")
	}
}

func TestRunAnalysis(t *testing.T) {
	p, store := testPipeline(t)
	ctx := context.Background()

	reg, err := botmap.Load([]byte(`{"GPTBot": "GPTBot"}`))
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Put(ctx, "raw/access.log.gz", gzipBytes(t, logLines("/a", "/a", "/b"))); err != nil {
		t.Fatal(err)
	}
	if _, err := p.ProcessRaw(ctx, "raw/access.log.gz"); err != nil {
		t.Fatal(err)
	}

	key, rep, err := p.RunAnalysis(ctx, reg, 30)
	if err != nil {
		t.Fatalf("RunAnalysis: %v", err)
	}
	if key != "reports/bot-report-2025-01-09.json" {
		t.Errorf("report key = %q", key)
	}
	if rep.Overall.TotalRequests != 3 || rep.Overall.UniqueBots != 1 {
		t.Errorf("overall = %+v", rep.Overall)
	}

	// The stored document decodes back to the same report.
	body, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get report: %v", err)
	}
	var stored map[string]any
	if err := json.Unmarshal(body, &stored); err != nil {
		t.Fatalf("report is not valid json: %v", err)
	}
	if stored["generated_at"] != "2025-01-10T12:00:00Z" {
		t.Errorf("generated_at = %v", stored["generated_at"])
	}

	// And Report() round-trips it.
	fetched, err := p.Report(ctx, "2025-01-09")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if fetched.Overall.TotalRequests != 3 {
		t.Errorf("fetched overall = %+v", fetched.Overall)
	}
}

func TestRunAnalysis_NoAggregatedCSV(t *testing.T) {
	p, _ := testPipeline(t)

	reg, err := botmap.Load([]byte(`{"GPTBot": "GPTBot"}`))
	if err != nil {
		t.Fatal(err)
	}

	_, rep, err := p.RunAnalysis(context.Background(), reg, 30)
	if err != nil {
		t.Fatalf("RunAnalysis without aggregate: %v", err)
	}
	if rep.Overall.TotalRequests != 0 || len(rep.Bots) != 0 {
		t.Errorf("report = %+v, want structurally complete empty report", rep)
	}
	if rep.Window.From == "" || rep.Window.To == "" {
		t.Error("empty report must still carry its window")
	}
}
