package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive keeps a copy of every generated export in S3-compatible object
// storage, so past sheets can be pulled back after the live data has moved on.
type Archive struct {
	client *minio.Client
	bucket string
}

// NewArchive connects to the object store. It does not touch the bucket;
// call EnsureBucket once at startup.
func NewArchive(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*Archive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}
	return &Archive{client: client, bucket: bucket}, nil
}

// EnsureBucket creates the archive bucket if it does not exist yet.
func (a *Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("check archive bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create archive bucket: %w", err)
	}
	return nil
}

// Store uploads one export artifact and returns its object name.
func (a *Archive) Store(ctx context.Context, result *Result) (string, error) {
	name := objectName(result.Filename, time.Now())
	_, err := a.client.PutObject(ctx, a.bucket, name,
		bytes.NewReader(result.Data), int64(len(result.Data)),
		minio.PutObjectOptions{ContentType: result.MimeType},
	)
	if err != nil {
		return "", fmt.Errorf("store export %s: %w", name, err)
	}
	return name, nil
}

// objectName prefixes the artifact with its generation timestamp so repeated
// exports of the same sheet never collide and list in time order.
func objectName(filename string, now time.Time) string {
	base := strings.TrimSpace(filename)
	if base == "" {
		base = "gear-sheet"
	}
	return fmt.Sprintf("exports/%s/%s-%s", now.UTC().Format("2006-01"), now.UTC().Format("20060102-150405"), base)
}
