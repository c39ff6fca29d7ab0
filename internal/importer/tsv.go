// Package importer parses persisted per-author TSV files into raw records.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/scholarlyreport/scholarly/internal/reference"
)

// PublicationColumns is the header of a publication TSV file, in order.
var PublicationColumns = []string{
	"scholar_id", "author_name", "title", "authors", "venue", "journal",
	"volume", "issue", "year", "citations", "pub_url",
}

// AuthorColumns is the header of an author info TSV file, in order.
var AuthorColumns = []string{
	"scholar_id", "name", "affiliation", "total_citations", "h_index",
	"i10_index", "publication_count",
}

// ErrMissingColumn is returned when a required header column is absent.
var ErrMissingColumn = errors.New("missing required column")

// ErrEmptyFile is returned when a file has no header row.
var ErrEmptyFile = errors.New("empty file")

// MalformedRecordError describes a row that could not be turned into a
// record. Line is 1-based and counts the header.
type MalformedRecordError struct {
	Line   int
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1 // checked per row
	reader.LazyQuotes = true
	return reader
}

// columnMap maps lowercase header names to column indexes.
func columnMap(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	return cols
}

type row struct {
	fields []string
	cols   map[string]int
}

func (r row) get(name string) string {
	i, ok := r.cols[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// ParsePublications reads a publication TSV. Rows that cannot be parsed
// are skipped and reported as *MalformedRecordError values in rowErrs; a
// non-nil err means the file as a whole is unusable.
func ParsePublications(r io.Reader) (records []reference.RawRecord, rowErrs []error, err error) {
	reader := newReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}
	cols := columnMap(header)
	if _, ok := cols["title"]; !ok {
		return nil, nil, fmt.Errorf("%w: title", ErrMissingColumn)
	}

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				rowErrs = append(rowErrs, &MalformedRecordError{Line: pe.Line, Reason: pe.Err.Error()})
				continue
			}
			return records, rowErrs, fmt.Errorf("reading rows: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if isBlank(fields) {
			continue
		}
		if len(fields) != len(header) {
			rowErrs = append(rowErrs, &MalformedRecordError{
				Line:   line,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(fields)),
			})
			continue
		}

		rec, reason := toRawRecord(row{fields: fields, cols: cols})
		if reason != "" {
			rowErrs = append(rowErrs, &MalformedRecordError{Line: line, Reason: reason})
			continue
		}
		records = append(records, rec)
	}
	return records, rowErrs, nil
}

// toRawRecord validates a row. A non-empty reason marks it malformed.
func toRawRecord(r row) (reference.RawRecord, string) {
	rec := reference.RawRecord{
		ScholarID:  r.get("scholar_id"),
		AuthorName: r.get("author_name"),
		Title:      r.get("title"),
		Authors:    r.get("authors"),
		Venue:      r.get("venue"),
		Journal:    r.get("journal"),
		Volume:     r.get("volume"),
		Issue:      r.get("issue"),
		Year:       normalizeNumber(r.get("year")),
		Citations:  normalizeNumber(r.get("citations")),
		URL:        r.get("pub_url"),
	}
	if rec.Title == "" {
		return rec, "missing required field 'title'"
	}
	return rec, ""
}

// normalizeNumber turns "2021.0" (as written by spreadsheet tools) into
// "2021". Anything else is returned unchanged.
func normalizeNumber(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) {
		return s
	}
	return strconv.FormatInt(int64(f), 10)
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// ParseAuthorInfo reads an author info TSV and returns the author in its
// first data row. fallbackID is used when the scholar_id column is empty.
func ParseAuthorInfo(r io.Reader, fallbackID string) (reference.Author, error) {
	reader := newReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return reference.Author{}, ErrEmptyFile
	}
	if err != nil {
		return reference.Author{}, fmt.Errorf("reading header: %w", err)
	}
	fields, err := reader.Read()
	if err == io.EOF {
		return reference.Author{}, fmt.Errorf("%w: no author row", ErrEmptyFile)
	}
	if err != nil {
		return reference.Author{}, fmt.Errorf("reading author row: %w", err)
	}

	rw := row{fields: fields, cols: columnMap(header)}
	a := reference.Author{
		ID:                       rw.get("scholar_id"),
		PrimaryName:              rw.get("name"),
		Affiliation:              rw.get("affiliation"),
		LifetimeCitations:        atoi(rw.get("total_citations")),
		LifetimeHIndex:           atoi(rw.get("h_index")),
		LifetimeI10Index:         atoi(rw.get("i10_index")),
		LifetimePublicationCount: atoi(rw.get("publication_count")),
	}
	if a.ID == "" {
		a.ID = fallbackID
	}
	if a.ID == "" {
		return reference.Author{}, &MalformedRecordError{Line: 2, Reason: "missing scholar_id"}
	}
	return a, nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(normalizeNumber(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// WritePublications writes records as a publication TSV.
func WritePublications(w io.Writer, records []reference.RawRecord) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(PublicationColumns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, rec := range records {
		fields := []string{
			rec.ScholarID, rec.AuthorName, rec.Title, rec.Authors, rec.Venue,
			rec.Journal, rec.Volume, rec.Issue, rec.Year, rec.Citations, rec.URL,
		}
		if err := cw.Write(fields); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteAuthorInfo writes a one-row author info TSV.
func WriteAuthorInfo(w io.Writer, a reference.Author) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	rows := [][]string{
		AuthorColumns,
		{
			a.ID, a.PrimaryName, a.Affiliation,
			strconv.Itoa(a.LifetimeCitations), strconv.Itoa(a.LifetimeHIndex),
			strconv.Itoa(a.LifetimeI10Index), strconv.Itoa(a.LifetimePublicationCount),
		},
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing author info: %w", err)
	}
	return nil
}
