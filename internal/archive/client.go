// Package archive talks to the FEI archive, an S3-compatible object store
// where every filetype is a folder of files.
package archive

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/chmdznr/savannah/pkg/models"
)

// Archive is the set of operations the transfer executor needs.
type Archive interface {
	Add(ctx context.Context, filetype, localPath string) (int64, error)
	Replace(ctx context.Context, filetype, localPath string) (int64, error)
	Get(ctx context.Context, filetype, name, destDir string) (int64, error)
}

// partSuffix marks a download that has not been verified yet.
const partSuffix = ".part"

// Client is an Archive backed by MinIO.
type Client struct {
	minioClient *minio.Client
	bucket      string
	folder      string
}

// NewClient connects to the archive described by profile
func NewClient(profile *models.Profile) (*Client, error) {
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	opts := minio.Options{
		Creds:        credentials.NewStaticV4(profile.Destination.AccessKey, profile.Destination.SecretKey, ""),
		Secure:       profile.Destination.Secure,
		Transport:    tr,
		BucketLookup: minio.BucketLookupAuto,
	}

	minioClient, err := minio.New(profile.Destination.Endpoint, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	return &Client{
		minioClient: minioClient,
		bucket:      profile.Destination.Bucket,
		folder:      profile.Destination.Folder,
	}, nil
}

// objectKey maps a filetype and file name to an object key.
func objectKey(folder, filetype, name string) string {
	folder = strings.Trim(strings.ReplaceAll(folder, "\\", "/"), "/")
	return strings.TrimPrefix(path.Join(folder, filetype, name), "/")
}

// Add uploads localPath and fails with ErrAlreadyExists if the archive already
// holds a file of that name and type.
func (c *Client) Add(ctx context.Context, filetype, localPath string) (int64, error) {
	key := objectKey(c.folder, filetype, filepath.Base(localPath))

	_, err := c.minioClient.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return 0, fmt.Errorf("%w: %s", models.ErrAlreadyExists, key)
	}
	if minio.ToErrorResponse(err).Code != "NoSuchKey" {
		return 0, fmt.Errorf("stat %s: %w", key, err)
	}

	return c.upload(ctx, key, localPath)
}

// Replace uploads localPath, overwriting any existing copy.
func (c *Client) Replace(ctx context.Context, filetype, localPath string) (int64, error) {
	return c.upload(ctx, objectKey(c.folder, filetype, filepath.Base(localPath)), localPath)
}

func (c *Client) upload(ctx context.Context, key, localPath string) (int64, error) {
	sum, err := FileChecksum(localPath)
	if err != nil {
		return 0, err
	}

	opts := minio.PutObjectOptions{
		UserMetadata: map[string]string{checksumKey: sum},
	}
	if mtype, err := mimetype.DetectFile(localPath); err == nil {
		opts.ContentType = mtype.String()
	}

	info, err := c.minioClient.FPutObject(ctx, c.bucket, key, localPath, opts)
	if err != nil {
		if minioErr, ok := err.(minio.ErrorResponse); ok {
			return 0, fmt.Errorf("upload %s: %s (%s): %w", key, minioErr.Code, minioErr.Message, err)
		}
		return 0, fmt.Errorf("upload %s: %w", key, err)
	}

	fi, err := os.Stat(localPath)
	if err == nil && info.Size != fi.Size() {
		return info.Size, fmt.Errorf("upload %s: size mismatch, expected %d bytes, got %d", key, fi.Size(), info.Size)
	}
	return info.Size, nil
}

// Get downloads name into destDir and verifies its checksum when the archive
// has one. The file only appears at its final path once verified.
func (c *Client) Get(ctx context.Context, filetype, name, destDir string) (int64, error) {
	key := objectKey(c.folder, filetype, name)

	info, err := c.minioClient.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", key, err)
	}

	dest := filepath.Join(destDir, filepath.Base(name))
	part := dest + partSuffix
	if err := c.minioClient.FGetObject(ctx, c.bucket, key, part, minio.GetObjectOptions{}); err != nil {
		os.Remove(part)
		return 0, fmt.Errorf("download %s: %w", key, err)
	}

	if err := verifyDownload(part, info.UserMetadata); err != nil {
		os.Remove(part)
		return info.Size, fmt.Errorf("download %s: %w", key, err)
	}
	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return info.Size, fmt.Errorf("download %s: %w", key, err)
	}
	return info.Size, nil
}
