package importer

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/scholarlyreport/scholarly/internal/reference"
)

const header = "scholar_id\tauthor_name\ttitle\tauthors\tvenue\tjournal\tvolume\tissue\tyear\tcitations\tpub_url\n"

func TestParsePublications_Valid(t *testing.T) {
	input := header +
		"A001\tJane Doe\tDeep Learning in Marine Ecology\tJ Doe, J Roe\tNature Ecology 5 (3), 112-120\tNature Ecology\t5\t3\t2021\t12\thttps://example.org/1\n" +
		"A001\tJane Doe\tOld Work\tJane Doe\tCell 1, 1\t\t\t\t2010.0\t3\t\n"

	recs, rowErrs, err := ParsePublications(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParsePublications() error = %v", err)
	}
	if len(rowErrs) != 0 {
		t.Errorf("rowErrs = %v, want none", rowErrs)
	}
	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}

	want := reference.RawRecord{
		ScholarID:  "A001",
		AuthorName: "Jane Doe",
		Title:      "Deep Learning in Marine Ecology",
		Authors:    "J Doe, J Roe",
		Venue:      "Nature Ecology 5 (3), 112-120",
		Journal:    "Nature Ecology",
		Volume:     "5",
		Issue:      "3",
		Year:       "2021",
		Citations:  "12",
		URL:        "https://example.org/1",
	}
	if recs[0] != want {
		t.Errorf("recs[0] = %+v, want %+v", recs[0], want)
	}
	if recs[1].Year != "2010" {
		t.Errorf("recs[1].Year = %q, want 2010", recs[1].Year)
	}
}

func TestParsePublications_MalformedRows(t *testing.T) {
	input := header +
		"A001\tJane Doe\t\tJane Doe\tCell\t\t\t\t2020\t1\t\n" + // no title
		"A001\tJane Doe\tShort Row\n" + // wrong field count
		"\t\t\t\t\t\t\t\t\t\t\n" + // blank, skipped silently
		"A001\tJane Doe\tGood\tJane Doe\tCell\t\t\t\tn/a\t\t\n"

	recs, rowErrs, err := ParsePublications(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParsePublications() error = %v", err)
	}
	if len(recs) != 1 || recs[0].Title != "Good" {
		t.Fatalf("recs = %+v, want only Good", recs)
	}
	if recs[0].Year != "n/a" {
		t.Errorf("Year = %q, non-numeric years pass through", recs[0].Year)
	}
	if len(rowErrs) != 2 {
		t.Fatalf("len(rowErrs) = %d, want 2: %v", len(rowErrs), rowErrs)
	}

	var mre *MalformedRecordError
	if !errors.As(rowErrs[0], &mre) || mre.Line != 2 {
		t.Errorf("rowErrs[0] = %v, want malformed line 2", rowErrs[0])
	}
	if !errors.As(rowErrs[1], &mre) || mre.Line != 3 {
		t.Errorf("rowErrs[1] = %v, want malformed line 3", rowErrs[1])
	}
}

func TestParsePublications_HeaderErrors(t *testing.T) {
	if _, _, err := ParsePublications(strings.NewReader("")); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("empty input error = %v, want ErrEmptyFile", err)
	}
	if _, _, err := ParsePublications(strings.NewReader("scholar_id\tyear\nA001\t2020\n")); !errors.Is(err, ErrMissingColumn) {
		t.Errorf("no title column error = %v, want ErrMissingColumn", err)
	}
}

func TestParsePublications_ColumnOrderIndependent(t *testing.T) {
	input := "year\ttitle\tauthors\n2020\tReordered\tJane Doe\n"
	recs, _, err := ParsePublications(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParsePublications() error = %v", err)
	}
	if len(recs) != 1 || recs[0].Title != "Reordered" || recs[0].Year != "2020" || recs[0].Authors != "Jane Doe" {
		t.Errorf("recs = %+v", recs)
	}
}

func TestPublicationsRoundTrip(t *testing.T) {
	recs := []reference.RawRecord{
		{ScholarID: "A001", Title: "Title with \"quotes\"", Authors: "Jane Doe, John Roe", Venue: "Cell 1 (2), 3", Year: "2020", Citations: "4"},
		{ScholarID: "A001", Title: "Second", Year: "", Citations: "0"},
	}
	var buf bytes.Buffer
	if err := WritePublications(&buf, recs); err != nil {
		t.Fatalf("WritePublications() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), header) {
		t.Errorf("header = %q", strings.SplitN(buf.String(), "\n", 2)[0])
	}

	got, rowErrs, err := ParsePublications(&buf)
	if err != nil || len(rowErrs) != 0 {
		t.Fatalf("ParsePublications() err = %v, rowErrs = %v", err, rowErrs)
	}
	if !reflect.DeepEqual(got, recs) {
		t.Errorf("round trip = %+v, want %+v", got, recs)
	}
}

func TestAuthorInfo(t *testing.T) {
	a := reference.Author{
		ID:                       "A001",
		PrimaryName:              "Jane Doe",
		Affiliation:              "University of Somewhere",
		LifetimeCitations:        1200,
		LifetimeHIndex:           18,
		LifetimeI10Index:         25,
		LifetimePublicationCount: 40,
	}
	var buf bytes.Buffer
	if err := WriteAuthorInfo(&buf, a); err != nil {
		t.Fatalf("WriteAuthorInfo() error = %v", err)
	}
	got, err := ParseAuthorInfo(&buf, "")
	if err != nil {
		t.Fatalf("ParseAuthorInfo() error = %v", err)
	}
	if !reflect.DeepEqual(got, a) {
		t.Errorf("ParseAuthorInfo() = %+v, want %+v", got, a)
	}
}

func TestParseAuthorInfo_FallbackID(t *testing.T) {
	input := "name\ttotal_citations\nJane Doe\t12.0\n"
	got, err := ParseAuthorInfo(strings.NewReader(input), "A009")
	if err != nil {
		t.Fatalf("ParseAuthorInfo() error = %v", err)
	}
	if got.ID != "A009" || got.LifetimeCitations != 12 {
		t.Errorf("ParseAuthorInfo() = %+v", got)
	}

	if _, err := ParseAuthorInfo(strings.NewReader(input), ""); err == nil {
		t.Error("ParseAuthorInfo() without any id succeeded")
	}
	if _, err := ParseAuthorInfo(strings.NewReader("name\n"), "A009"); !errors.Is(err, ErrEmptyFile) {
		t.Errorf("header-only error = %v, want ErrEmptyFile", err)
	}
}
