package logline

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// Scanner lazily yields parsed records from a gzip-compressed log stream.
// Lines that fail to parse are skipped; the stream contains only
// successfully parsed records, in original line order.
type Scanner struct {
	sc  *bufio.Scanner
	rec Record
	err error
}

// NewScanner opens a compressed log stream. A blob that is not valid gzip
// fails here, before any lines are read.
func NewScanner(r io.Reader) (*Scanner, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}

	sc := bufio.NewScanner(zr)
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 1024*1024)

	return &Scanner{sc: sc}, nil
}

// Scan advances to the next parseable record. It returns false at end of
// stream or on a read error; check Err afterwards.
func (s *Scanner) Scan() bool {
	for s.sc.Scan() {
		rec, err := ParseLine(s.sc.Text())
		if err != nil {
			continue
		}
		s.rec = rec
		return true
	}
	s.err = s.sc.Err()
	return false
}

// Record returns the record produced by the last successful Scan.
func (s *Scanner) Record() Record { return s.rec }

// Err returns the first read or decompression error encountered, if any.
// A stream that simply contained zero parseable lines is not an error.
func (s *Scanner) Err() error { return s.err }

// DecodeAll parses a whole compressed blob in one call.
func DecodeAll(gz []byte) ([]Record, error) {
	s, err := NewScanner(bytes.NewReader(gz))
	if err != nil {
		return nil, err
	}

	var recs []Record
	for s.Scan() {
		recs = append(recs, s.Record())
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("reading log stream: %w", err)
	}
	return recs, nil
}
