// Package storage provides the S3-compatible object storage adapter.
// Clean Architecture: Adapter implementing ports.ObjectStore.
// Both providers speak the S3 API but are configured independently; the
// comparison provider typically sits behind a custom endpoint with a
// self-signed certificate.
package storage

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nasirwasim8/infinia-rag-demo-v2/internal/domain/entities"
)

// Client is one provider's object storage handle.
type Client struct {
	role   string
	bucket string
	mc     *minio.Client
}

// NewClient validates the provider config and builds a client. Validation
// happens before any network call: missing fields produce a
// field-enumerating configuration error, never a timeout.
func NewClient(role string, cfg entities.ProviderConfig) (*Client, error) {
	if err := validate(role, cfg); err != nil {
		return nil, err
	}

	endpoint, secure, err := resolveEndpoint(cfg)
	if err != nil {
		return nil, &entities.StorageError{
			Provider: role, Op: "create_client", Kind: entities.KindConfiguration, Err: err,
		}
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	}

	// The comparison provider uses path-style addressing and commonly
	// presents a self-signed certificate; verification is skipped for this
	// provider only.
	if role == entities.RoleComparison {
		opts.BucketLookup = minio.BucketLookupPath
		opts.Transport = &http.Transport{
			TLSClientConfig:       &tls.Config{InsecureSkipVerify: true},
			ResponseHeaderTimeout: 60 * time.Second,
		}
	}

	mc, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, &entities.StorageError{
			Provider: role, Op: "create_client", Kind: entities.KindConnectivity, Err: err,
		}
	}

	return &Client{role: role, bucket: cfg.BucketName, mc: mc}, nil
}

// Provider returns the role this client was built for.
func (c *Client) Provider() string { return c.role }

// Put uploads bytes to the configured bucket.
func (c *Client) Put(ctx context.Context, key string, data []byte) error {
	_, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return &entities.StorageError{Provider: c.role, Op: "put", Kind: entities.KindTransfer, Err: err}
	}
	return nil
}

// Get downloads an object's bytes.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, &entities.StorageError{Provider: c.role, Op: "get", Kind: entities.KindTransfer, Err: err}
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, &entities.StorageError{Provider: c.role, Op: "get", Kind: entities.KindTransfer, Err: err}
	}
	return data, nil
}

// List returns all objects under the prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]entities.ObjectInfo, error) {
	var out []entities.ObjectInfo
	for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, &entities.StorageError{Provider: c.role, Op: "list", Kind: entities.KindTransfer, Err: obj.Err}
		}
		out = append(out, entities.ObjectInfo{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return out, nil
}

// Delete removes an object.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return &entities.StorageError{Provider: c.role, Op: "delete", Kind: entities.KindTransfer, Err: err}
	}
	return nil
}

// Copy performs a server-side copy within the bucket.
func (c *Client) Copy(ctx context.Context, srcKey, dstKey string) error {
	_, err := c.mc.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: c.bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: c.bucket, Object: srcKey})
	if err != nil {
		return &entities.StorageError{Provider: c.role, Op: "copy", Kind: entities.KindTransfer, Err: err}
	}
	return nil
}

// HeadCheck verifies the bucket is reachable with the stored credentials.
func (c *Client) HeadCheck(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return &entities.StorageError{Provider: c.role, Op: "head_check", Kind: entities.KindConnectivity, Err: err}
	}
	if !exists {
		return &entities.StorageError{
			Provider: c.role, Op: "head_check", Kind: entities.KindConnectivity,
			Err: fmt.Errorf("bucket %q not found", c.bucket),
		}
	}
	return nil
}

// validate enumerates every missing required field in one error.
func validate(role string, cfg entities.ProviderConfig) error {
	var missing []string
	if cfg.AccessKey == "" {
		missing = append(missing, "access_key")
	}
	if cfg.SecretKey == "" {
		missing = append(missing, "secret_key")
	}
	if cfg.BucketName == "" {
		missing = append(missing, "bucket_name")
	}
	if cfg.Region == "" {
		missing = append(missing, "region")
	}
	if role == entities.RoleComparison && cfg.EndpointURL == "" {
		missing = append(missing, "endpoint_url")
	}
	if len(missing) > 0 {
		return &entities.StorageError{
			Provider: role, Op: "create_client", Kind: entities.KindConfiguration,
			Err: fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")),
		}
	}
	return nil
}

// resolveEndpoint turns the configured endpoint URL into the host:port and
// scheme minio expects. An empty endpoint means the provider's regional
// AWS endpoint.
func resolveEndpoint(cfg entities.ProviderConfig) (endpoint string, secure bool, err error) {
	if cfg.EndpointURL == "" {
		return "s3." + cfg.Region + ".amazonaws.com", true, nil
	}

	u, err := url.Parse(cfg.EndpointURL)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint_url %q: %w", cfg.EndpointURL, err)
	}
	if u.Host == "" {
		// Tolerate bare host:port without a scheme.
		return cfg.EndpointURL, true, nil
	}
	return u.Host, u.Scheme != "http", nil
}
