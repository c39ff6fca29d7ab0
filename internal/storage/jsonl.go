package storage

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/scholarlyreport/scholarly/internal/reference"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines (1MB per line).
const MaxJSONLLineCapacity = 1024 * 1024

// SnapshotFile is the file name of the merged publication snapshot.
const SnapshotFile = "publications.jsonl"

// ReadSnapshot reads all publications from a JSONL snapshot.
func ReadSnapshot(path string) ([]reference.Publication, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Missing snapshot reads as empty
		}
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	var pubs []reference.Publication
	scanner := bufio.NewScanner(f)

	buf := make([]byte, MaxJSONLLineCapacity)
	scanner.Buffer(buf, MaxJSONLLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var p reference.Publication
		if err := json.Unmarshal(line, &p); err != nil {
			return nil, fmt.Errorf("parsing line %d: %w", lineNum, err)
		}
		pubs = append(pubs, p)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	return pubs, nil
}

// WriteSnapshot writes all publications to a JSONL file, replacing existing
// content atomically.
func WriteSnapshot(path string, pubs []reference.Publication) error {
	return writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for i, p := range pubs {
			if err := enc.Encode(p); err != nil {
				return fmt.Errorf("encoding publication %d: %w", i, err)
			}
		}
		return nil
	})
}

// ComputeHash computes a SHA256 hash of a file's contents. A missing file
// hashes as empty.
func ComputeHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256([]byte{})
			return hex.EncodeToString(h[:]), nil
		}
		return "", fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// FindByFingerprint searches for a publication by fingerprint.
func FindByFingerprint(pubs []reference.Publication, fp string) (int, bool) {
	for i, p := range pubs {
		if p.Fingerprint == fp {
			return i, true
		}
	}
	return -1, false
}
