package logline

import (
	"bytes"
	"compress/gzip"
	"strings"
	"testing"
)

func gzipLines(t *testing.T, lines ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(strings.Join(lines, "\n"))); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeAll_SkipsUnparseableLines(t *testing.T) {
	gz := gzipLines(t,
		`1.1.1.1 h - [01/Jan/2025:10:00:00 +0000] "GET /a HTTP/1.1" 200 10 "" "GPTBot/1.0"`,
		"this line is garbage",
		"",
		`2.2.2.2 h - [01/Jan/2025:11:00:00 +0000] "GET /b HTTP/1.1" 200 20 "" "ClaudeBot/1.0"`,
	)

	recs, err := DecodeAll(gz)
	if err != nil {
		t.Fatalf("DecodeAll: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	// Original line order is preserved.
	if recs[0].Path != "/a" || recs[1].Path != "/b" {
		t.Errorf("order = %q, %q", recs[0].Path, recs[1].Path)
	}
}

func TestDecodeAll_InvalidGzip(t *testing.T) {
	if _, err := DecodeAll([]byte("definitely not gzip")); err == nil {
		t.Fatal("expected error for invalid gzip content")
	}
}

func TestDecodeAll_ZeroParseableLines(t *testing.T) {
	gz := gzipLines(t, "junk one", "junk two")
	recs, err := DecodeAll(gz)
	if err != nil {
		t.Fatalf("a decompressable blob with no parseable lines is not an error, got %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("got %d records, want 0", len(recs))
	}
}

func TestScanner_Lazy(t *testing.T) {
	gz := gzipLines(t,
		`1.1.1.1 h - [01/Jan/2025:10:00:00 +0000] "GET /a HTTP/1.1" 200 10 "" "x"`,
		`2.2.2.2 h - [01/Jan/2025:11:00:00 +0000] "GET /b HTTP/1.1" 200 20 "" "y"`,
	)

	s, err := NewScanner(bytes.NewReader(gz))
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}

	var paths []string
	for s.Scan() {
		paths = append(paths, s.Record().Path)
	}
	if err := s.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/a" || paths[1] != "/b" {
		t.Errorf("paths = %v", paths)
	}
}
