// Package csvlog converts parsed log records to and from their durable
// tabular form: a CSV document with a fixed, order-sensitive column schema.
package csvlog

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/crawlytics/logline"
)

// Columns is the fixed row schema. Order matters: appended documents must
// line up column-for-column with the aggregate they join.
var Columns = []string{
	"date",
	"timestamp",
	"ip",
	"host",
	"method",
	"path",
	"protocol",
	"status",
	"body_bytes_sent",
	"referrer",
	"user_agent",
	"tls",
	"time1",
	"time2",
	"time3",
	"cache_status",
	"extra_5",
	"extra_6",
	"extra_7",
}

// Row flattens a record into the Columns schema. Absent optional fields
// render as empty strings, never a null marker.
func Row(rec logline.Record) []string {
	return []string{
		rec.Date,
		rec.Time.Format("2006-01-02T15:04:05-07:00"),
		rec.IP,
		rec.Host,
		rec.Method,
		rec.Path,
		rec.Protocol,
		strconv.Itoa(rec.Status),
		strconv.Itoa(rec.BodyBytesSent),
		rec.Referrer,
		rec.UserAgent,
		rec.TLS,
		formatTiming(rec.Time1),
		formatTiming(rec.Time2),
		formatTiming(rec.Time3),
		rec.CacheStatus,
		rec.Extra5,
		rec.Extra6,
		rec.Extra7,
	}
}

// formatTiming renders a timing value with exactly three decimal places,
// or an empty string when absent.
func formatTiming(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

// WriteAll writes a whole document: the header row followed by one row per
// record.
func WriteAll(w io.Writer, recs []logline.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := cw.Write(Row(rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBody writes rows without a header, for appending to a document that
// already carries one.
func WriteBody(w io.Writer, recs []logline.Record) error {
	cw := csv.NewWriter(w)
	for _, rec := range recs {
		if err := cw.Write(Row(rec)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// StripHeader drops the leading header line from a whole document, leaving
// body rows only. A document with nothing after the header yields nil.
func StripHeader(doc []byte) []byte {
	i := bytes.IndexByte(doc, '\n')
	if i < 0 || i+1 >= len(doc) {
		return nil
	}
	return doc[i+1:]
}

// Append combines an existing whole document with a new whole document,
// keeping a single header: the new document's header is stripped and its
// body rows concatenated after the existing content.
func Append(existing, doc []byte) []byte {
	combined := make([]byte, 0, len(existing)+len(doc))
	combined = append(combined, existing...)
	return append(combined, StripHeader(doc)...)
}
