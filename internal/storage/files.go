// Package storage handles persisted per-author TSV files, the merged JSONL
// snapshot and the SQLite query index built from it.
package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scholarlyreport/scholarly/internal/importer"
	"github.com/scholarlyreport/scholarly/internal/reference"
)

const (
	infoSuffix         = "_info.csv"
	publicationsSuffix = "_publications.csv"
)

// InfoPath returns the author info file path for id in dir.
func InfoPath(dir, id string) string {
	return filepath.Join(dir, id+infoSuffix)
}

// PublicationsPath returns the publication file path for id in dir.
func PublicationsPath(dir, id string) string {
	return filepath.Join(dir, id+publicationsSuffix)
}

// ReadAuthorInfo reads <id>_info.csv. The id falls back to the file name.
func ReadAuthorInfo(path string) (reference.Author, error) {
	f, err := os.Open(path)
	if err != nil {
		return reference.Author{}, fmt.Errorf("opening author info: %w", err)
	}
	defer f.Close()

	id := strings.TrimSuffix(filepath.Base(path), infoSuffix)
	a, err := importer.ParseAuthorInfo(f, id)
	if err != nil {
		return reference.Author{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return a, nil
}

// ReadPublications reads <id>_publications.csv. A missing file yields no
// records and no error, matching an author fetched for the first time.
func ReadPublications(path string) ([]reference.RawRecord, []error, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("opening publications: %w", err)
	}
	defer f.Close()

	recs, rowErrs, err := importer.ParsePublications(f)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return recs, rowErrs, nil
}

// WriteAuthorInfo atomically replaces the author info file.
func WriteAuthorInfo(path string, a reference.Author) error {
	return writeAtomic(path, func(w io.Writer) error {
		return importer.WriteAuthorInfo(w, a)
	})
}

// WritePublications atomically replaces the publication file. The previous
// file stays intact if encoding fails.
func WritePublications(path string, recs []reference.RawRecord) error {
	return writeAtomic(path, func(w io.Writer) error {
		return importer.WritePublications(w, recs)
	})
}

// WriteFile atomically replaces path with data, creating parent
// directories.
func WriteFile(path string, data []byte) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// writeAtomic writes to a temp file in the target directory and renames it
// into place once fill succeeds.
func writeAtomic(path string, fill func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	bw := bufio.NewWriter(tmp)
	if err := fill(bw); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// AuthorFiles are the persisted files of one author.
type AuthorFiles struct {
	ID               string
	InfoPath         string
	PublicationsPath string // empty when the author has no publication file
}

// DiscoverDataDir lists the authors with an info file in dir, sorted by id.
func DiscoverDataDir(dir string) ([]AuthorFiles, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading data directory: %w", err)
	}

	var out []AuthorFiles
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), infoSuffix) {
			continue
		}
		id := strings.TrimSuffix(e.Name(), infoSuffix)
		if id == "" {
			continue
		}
		af := AuthorFiles{ID: id, InfoPath: filepath.Join(dir, e.Name())}
		if _, err := os.Stat(PublicationsPath(dir, id)); err == nil {
			af.PublicationsPath = PublicationsPath(dir, id)
		}
		out = append(out, af)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ReadExclusionList reads newline-delimited journal exclusion substrings.
// Blank lines and lines starting with '#' are skipped. A missing file
// yields an empty list.
func ReadExclusionList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening exclusion list: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading exclusion list: %w", err)
	}
	return patterns, nil
}
