// Package publish uploads a generated report to an S3 bucket.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/scholarlyreport/scholarly/internal/logging"
)

// ErrNoBucket is returned when no target bucket is configured.
var ErrNoBucket = errors.New("no S3 bucket configured")

// ObjectPutter is the part of the S3 API the uploader needs. *s3.Client
// satisfies it.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader copies a report directory into a bucket.
type Uploader struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *zap.Logger
}

// UploaderOption configures an Uploader.
type UploaderOption func(*Uploader)

// WithPrefix places every key under prefix.
func WithPrefix(prefix string) UploaderOption {
	return func(u *Uploader) {
		u.prefix = strings.Trim(prefix, "/")
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) UploaderOption {
	return func(u *Uploader) {
		u.logger = l
	}
}

// NewUploader returns an Uploader writing to bucket.
func NewUploader(client ObjectPutter, bucket string, opts ...UploaderOption) *Uploader {
	u := &Uploader{client: client, bucket: bucket}
	for _, opt := range opts {
		opt(u)
	}
	u.logger = logging.OrNop(u.logger)
	return u
}

// Result summarizes an upload.
type Result struct {
	Bucket string   `json:"bucket"`
	Prefix string   `json:"prefix,omitempty"`
	Files  int      `json:"files"`
	Bytes  int64    `json:"bytes"`
	Keys   []string `json:"keys"`
}

// Upload walks dir and puts every regular file. Hidden files are skipped.
// The first failed upload aborts the walk.
func (u *Uploader) Upload(ctx context.Context, dir string) (*Result, error) {
	if u.bucket == "" {
		return nil, ErrNoBucket
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("report directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("report directory: %s is not a directory", dir)
	}

	res := &Result{Bucket: u.bucket, Prefix: u.prefix}
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := Key(u.prefix, rel)
		n, err := u.put(ctx, p, key)
		if err != nil {
			return fmt.Errorf("uploading %s: %w", rel, err)
		}
		res.Files++
		res.Bytes += n
		res.Keys = append(res.Keys, key)
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.logger.Info("report published",
		zap.String("bucket", u.bucket),
		zap.String("prefix", u.prefix),
		zap.Int("files", res.Files),
		zap.Int64("bytes", res.Bytes))
	return res, nil
}

func (u *Uploader) put(ctx context.Context, p, key string) (int64, error) {
	f, err := os.Open(p)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(ContentType(p)),
	})
	if err != nil {
		return 0, err
	}
	u.logger.Debug("uploaded", zap.String("key", key), zap.Int64("bytes", info.Size()))
	return info.Size(), nil
}

// Key joins prefix and a relative file path into an object key.
func Key(prefix, rel string) string {
	rel = filepath.ToSlash(rel)
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}

// ContentType guesses the MIME type from the file extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
