package logline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Record is one parsed access-log request.
//
// The mandatory prefix (IP through UserAgent) is always populated; the
// trailing fields after the " | " delimiters are optional and absent when
// the line does not carry them.
type Record struct {
	IP            string
	Host          string
	Ident         string
	Time          time.Time
	Date          string // YYYY-MM-DD, the UTC calendar date of Time
	Method        string
	Path          string
	Protocol      string
	Status        int
	BodyBytesSent int // -1 when the log carries a non-numeric value
	Referrer      string
	UserAgent     string

	TLS         string
	Time1       *float64
	Time2       *float64
	Time3       *float64
	CacheStatus string
	Extra5      string
	Extra6      string
	Extra7      string
}

// mainLogRE matches the combined log format prefix:
//
//	ip host ident [timestamp] "METHOD path PROTOCOL" status bytes "referrer" "agent"
//
// The protocol group tolerates spaces so request lines like
// "GET /x HTTP/1.1 extra" still parse.
var mainLogRE = regexp.MustCompile(`^(\S+)\s+(\S+)\s+(\S+)\s+\[([^\]]+)\]\s+"(\S+)\s+(\S+)\s+([^"]+)"\s+(\d+)\s+(\S+)\s+"([^"]*)"\s+"([^"]*)"`)

const timeLayout = "02/Jan/2006:15:04:05 -0700"

// ParseLine parses a single access log line.
//
// Lines are split on " | ": segment 0 is the combined log prefix, segment 1
// the TLS descriptor, segment 2 a whitespace-separated list of up to seven
// optional metric tokens. Returns an error for lines that do not match the
// grammar or carry an unparseable timestamp; callers are expected to skip
// such lines.
func ParseLine(line string) (Record, error) {
	line = strings.ToValidUTF8(strings.TrimSpace(line), "�")
	if line == "" {
		return Record{}, fmt.Errorf("empty line")
	}

	parts := strings.Split(line, " | ")
	m := mainLogRE.FindStringSubmatch(parts[0])
	if m == nil {
		return Record{}, fmt.Errorf("line does not match combined log format")
	}

	ts, err := time.Parse(timeLayout, m[4])
	if err != nil {
		return Record{}, fmt.Errorf("bad timestamp %q: %w", m[4], err)
	}

	status, err := strconv.Atoi(m[8])
	if err != nil {
		return Record{}, fmt.Errorf("bad status %q: %w", m[8], err)
	}

	// Non-numeric byte counts (e.g. "-") never reject the line.
	bodyBytes, err := strconv.Atoi(m[9])
	if err != nil {
		bodyBytes = -1
	}

	rec := Record{
		IP:            m[1],
		Host:          m[2],
		Ident:         m[3],
		Time:          ts,
		Date:          ts.UTC().Format("2006-01-02"),
		Method:        m[5],
		Path:          m[6],
		Protocol:      m[7],
		Status:        status,
		BodyBytesSent: bodyBytes,
		Referrer:      m[10],
		UserAgent:     m[11],
	}

	if len(parts) > 1 {
		rec.TLS = strings.TrimSpace(parts[1])
	}

	var tokens []string
	if len(parts) > 2 {
		tokens = strings.Fields(parts[2])
	}
	rec.Time1 = floatAt(tokens, 0)
	rec.Time2 = floatAt(tokens, 1)
	rec.Time3 = floatAt(tokens, 2)
	rec.CacheStatus = tokenAt(tokens, 3)
	rec.Extra5 = tokenAt(tokens, 4)
	rec.Extra6 = tokenAt(tokens, 5)
	rec.Extra7 = tokenAt(tokens, 6)

	return rec, nil
}

// floatAt parses tokens[idx] as a float, or nil when the token is missing
// or not numeric. A bad token never rejects the whole record.
func floatAt(tokens []string, idx int) *float64 {
	if idx >= len(tokens) {
		return nil
	}
	v, err := strconv.ParseFloat(tokens[idx], 64)
	if err != nil {
		return nil
	}
	return &v
}

func tokenAt(tokens []string, idx int) string {
	if idx >= len(tokens) {
		return ""
	}
	return tokens[idx]
}
