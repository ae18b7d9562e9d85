package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/objectstorage"

	"seqbench/benchmark"
	"seqbench/config"
)

// objectAPI is the subset of objectstorage.ObjectStorageClient used here.
type objectAPI interface {
	PutObject(ctx context.Context, request objectstorage.PutObjectRequest) (objectstorage.PutObjectResponse, error)
	GetObject(ctx context.Context, request objectstorage.GetObjectRequest) (objectstorage.GetObjectResponse, error)
	ListObjects(ctx context.Context, request objectstorage.ListObjectsRequest) (objectstorage.ListObjectsResponse, error)
}

type nopCloser struct {
	io.Reader
}

func (nopCloser) Close() error { return nil }

// OCI stores each record as a JSON object named
// "<prefix><variant>:<position>/<run id>.json" in an object storage bucket.
type OCI struct {
	client    objectAPI
	namespace string
	bucket    string
	prefix    string
	retries   int
	backoff   time.Duration
	logger    *slog.Logger
}

// NewOCI creates an object storage client from the OCI config file. When
// cfg.Namespace is empty it is fetched from the service.
func NewOCI(ctx context.Context, cfg config.OCIConfig, logger *slog.Logger) (*OCI, error) {
	provider, err := config.LoadOCIConfig(cfg.ConfigFile, cfg.Profile)
	if err != nil {
		return nil, err
	}

	client, err := objectstorage.NewObjectStorageClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	httpClient, err := newHTTPClient()
	if err != nil {
		return nil, err
	}
	client.HTTPClient = httpClient

	if cfg.Host != "" {
		logger.Info("using custom object storage host", slog.String("host", cfg.Host))
		client.Host = cfg.Host
	}

	namespace := cfg.Namespace
	if namespace == "" {
		resp, err := client.GetNamespace(ctx, objectstorage.GetNamespaceRequest{})
		if err != nil {
			return nil, fmt.Errorf("fetch object storage namespace: %w", err)
		}
		namespace = *resp.Value
		logger.Info("fetched object storage namespace", slog.String("namespace", namespace))
	}

	return newOCIWithClient(client, namespace, cfg.Bucket, cfg.Prefix, cfg.Retries, logger), nil
}

func newOCIWithClient(client objectAPI, namespace, bucket, prefix string, retries int, logger *slog.Logger) *OCI {
	if retries < 1 {
		retries = 1
	}
	return &OCI{
		client:    client,
		namespace: namespace,
		bucket:    bucket,
		prefix:    prefix,
		retries:   retries,
		backoff:   time.Second,
		logger:    logger,
	}
}

func (o *OCI) objectName(key benchmark.ConfigurationKey, id string) string {
	return o.prefix + recordPath(key, id) + ".json"
}

// Save uploads rec, retrying on throttling (429) and unavailability (503).
func (o *OCI) Save(ctx context.Context, rec *benchmark.ExecutionRecord) error {
	buf := getBuffer()
	defer putBuffer(buf)

	if err := json.NewEncoder(buf).Encode(rec); err != nil {
		return &Error{Op: "encode", Key: rec.Key.String(), Err: err}
	}
	data := buf.Bytes()
	name := o.objectName(rec.Key, rec.ID)

	err := o.withRetry(ctx, name, func() error {
		_, err := o.client.PutObject(ctx, objectstorage.PutObjectRequest{
			NamespaceName: common.String(o.namespace),
			BucketName:    common.String(o.bucket),
			ObjectName:    common.String(name),
			ContentLength: common.Int64(int64(len(data))),
			ContentType:   common.String("application/json"),
			PutObjectBody: nopCloser{bytes.NewReader(data)},
		})
		return err
	})
	if err != nil {
		return &Error{Op: "save", Key: rec.Key.String(), Err: err}
	}
	return nil
}

// Find lists the key's objects page by page and downloads each record.
func (o *OCI) Find(ctx context.Context, key benchmark.ConfigurationKey) ([]benchmark.ExecutionRecord, error) {
	prefix := o.prefix + key.String() + "/"
	out := make([]benchmark.ExecutionRecord, 0)

	var start *string
	for {
		resp, err := o.client.ListObjects(ctx, objectstorage.ListObjectsRequest{
			NamespaceName: common.String(o.namespace),
			BucketName:    common.String(o.bucket),
			Prefix:        common.String(prefix),
			Limit:         common.Int(1000),
			Start:         start,
		})
		if err != nil {
			return nil, &Error{Op: "list", Key: key.String(), Err: err}
		}

		for _, obj := range resp.Objects {
			if obj.Name == nil || !strings.HasSuffix(*obj.Name, ".json") {
				continue
			}
			rec, err := o.fetch(ctx, *obj.Name)
			if err != nil {
				return nil, &Error{Op: "get", Key: key.String(), Err: err}
			}
			out = append(out, rec)
		}

		if resp.NextStartWith == nil {
			break
		}
		start = resp.NextStartWith
	}

	sortByStart(out)
	return out, nil
}

func (o *OCI) fetch(ctx context.Context, name string) (benchmark.ExecutionRecord, error) {
	resp, err := o.client.GetObject(ctx, objectstorage.GetObjectRequest{
		NamespaceName: common.String(o.namespace),
		BucketName:    common.String(o.bucket),
		ObjectName:    common.String(name),
	})
	if err != nil {
		return benchmark.ExecutionRecord{}, err
	}
	defer resp.Content.Close()

	data, err := io.ReadAll(resp.Content)
	if err != nil {
		return benchmark.ExecutionRecord{}, fmt.Errorf("read %s: %w", name, err)
	}
	return decodeRecord(data)
}

func (o *OCI) Close() error {
	return nil
}

// statusCoder matches OCI service errors without depending on their
// concrete type.
type statusCoder interface {
	GetHTTPStatusCode() int
}

func retryable(err error) bool {
	var se statusCoder
	if !errors.As(err, &se) {
		return false
	}
	code := se.GetHTTPStatusCode()
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// withRetry runs op up to o.retries times with linear backoff while the
// service reports throttling or unavailability.
func (o *OCI) withRetry(ctx context.Context, name string, op func() error) error {
	var err error
	for i := 0; i < o.retries; i++ {
		err = op()
		if err == nil || !retryable(err) {
			return err
		}
		if i == o.retries-1 {
			break
		}

		o.logger.Warn("retrying object storage request",
			slog.String("object", name),
			slog.Int("attempt", i+1),
			slog.Int("retries", o.retries),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * o.backoff):
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", o.retries, err)
}
