package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type putCall struct {
	bucket      string
	key         string
	contentType string
	body        string
}

type fakePutter struct {
	mu    sync.Mutex
	calls []putCall
	fail  string // key that fails
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.fail {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, putCall{
		bucket:      aws.ToString(in.Bucket),
		key:         key,
		contentType: aws.ToString(in.ContentType),
		body:        string(body),
	})
	return &s3.PutObjectOutput{}, nil
}

func writeReport(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"index.html":        "<html></html>",
		"css/style.css":     "body{}",
		"data/network.json": "{}",
		"authors/A001.html": "<html>jane</html>",
		".hidden":           "secret",
		".git/config":       "[core]",
	}
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestUpload(t *testing.T) {
	dir := writeReport(t)
	fake := &fakePutter{}
	u := NewUploader(fake, "reports", WithPrefix("/institute/2026/"))

	res, err := u.Upload(context.Background(), dir)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.Files != 4 {
		t.Errorf("Files = %d, want 4", res.Files)
	}
	if res.Prefix != "institute/2026" {
		t.Errorf("Prefix = %q", res.Prefix)
	}

	keys := append([]string(nil), res.Keys...)
	sort.Strings(keys)
	want := []string{
		"institute/2026/authors/A001.html",
		"institute/2026/css/style.css",
		"institute/2026/data/network.json",
		"institute/2026/index.html",
	}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	for _, c := range fake.calls {
		if c.bucket != "reports" {
			t.Errorf("bucket = %q", c.bucket)
		}
		if c.key == "institute/2026/authors/A001.html" {
			if c.body != "<html>jane</html>" {
				t.Errorf("body = %q", c.body)
			}
			if !strings.HasPrefix(c.contentType, "text/html") {
				t.Errorf("content type = %q", c.contentType)
			}
		}
	}
	if res.Bytes != int64(len("<html></html>")+len("body{}")+len("{}")+len("<html>jane</html>")) {
		t.Errorf("Bytes = %d", res.Bytes)
	}
}

func TestUpload_Errors(t *testing.T) {
	dir := writeReport(t)

	t.Run("no bucket", func(t *testing.T) {
		_, err := NewUploader(&fakePutter{}, "").Upload(context.Background(), dir)
		if !errors.Is(err, ErrNoBucket) {
			t.Errorf("error = %v, want ErrNoBucket", err)
		}
	})

	t.Run("missing dir", func(t *testing.T) {
		_, err := NewUploader(&fakePutter{}, "b").Upload(context.Background(), filepath.Join(dir, "nope"))
		if err == nil {
			t.Error("expected error for missing directory")
		}
	})

	t.Run("put fails", func(t *testing.T) {
		_, err := NewUploader(&fakePutter{fail: "index.html"}, "b").Upload(context.Background(), dir)
		if err == nil || !strings.Contains(err.Error(), "index.html") {
			t.Errorf("error = %v, want upload failure naming the file", err)
		}
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewUploader(&fakePutter{}, "b").Upload(ctx, dir)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	})
}

func TestKey(t *testing.T) {
	tests := []struct {
		prefix, rel, want string
	}{
		{"", "index.html", "index.html"},
		{"site", "index.html", "site/index.html"},
		{"a/b", filepath.Join("authors", "A1.html"), "a/b/authors/A1.html"},
	}
	for _, tt := range tests {
		if got := Key(tt.prefix, tt.rel); got != tt.want {
			t.Errorf("Key(%q, %q) = %q, want %q", tt.prefix, tt.rel, got, tt.want)
		}
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"index.html", "text/html"},
		{"style.CSS", "text/css"},
		{"network.json", "application/json"},
		{"blob", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContentType(tt.name); !strings.HasPrefix(got, tt.want) {
				t.Errorf("ContentType(%q) = %q, want prefix %q", tt.name, got, tt.want)
			}
		})
	}
}
