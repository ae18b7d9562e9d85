package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/objectstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqbench/benchmark"
)

type serviceError struct {
	status int
}

func (e serviceError) Error() string          { return "service error" }
func (e serviceError) GetHTTPStatusCode() int { return e.status }

// fakeBucket is an in-memory objectAPI with a small page size so Find has
// to follow NextStartWith.
type fakeBucket struct {
	mu       sync.Mutex
	objects  map[string][]byte
	pageSize int
	failPuts []error
	puts     int
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: make(map[string][]byte), pageSize: 1}
}

func (f *fakeBucket) PutObject(_ context.Context, req objectstorage.PutObjectRequest) (objectstorage.PutObjectResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if len(f.failPuts) > 0 {
		err := f.failPuts[0]
		f.failPuts = f.failPuts[1:]
		return objectstorage.PutObjectResponse{}, err
	}
	data, err := io.ReadAll(req.PutObjectBody)
	if err != nil {
		return objectstorage.PutObjectResponse{}, err
	}
	f.objects[*req.ObjectName] = data
	return objectstorage.PutObjectResponse{}, nil
}

func (f *fakeBucket) GetObject(_ context.Context, req objectstorage.GetObjectRequest) (objectstorage.GetObjectResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*req.ObjectName]
	if !ok {
		return objectstorage.GetObjectResponse{}, serviceError{status: 404}
	}
	return objectstorage.GetObjectResponse{Content: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeBucket) ListObjects(_ context.Context, req objectstorage.ListObjectsRequest) (objectstorage.ListObjectsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string
	for name := range f.objects {
		if strings.HasPrefix(name, *req.Prefix) && (req.Start == nil || name >= *req.Start) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var resp objectstorage.ListObjectsResponse
	for i, name := range names {
		if i == f.pageSize {
			resp.NextStartWith = common.String(name)
			break
		}
		resp.Objects = append(resp.Objects, objectstorage.ObjectSummary{Name: common.String(name)})
	}
	return resp, nil
}

func newTestOCI(bucket *fakeBucket, retries int) *OCI {
	s := newOCIWithClient(bucket, "ns", "results", "seqbench/", retries, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.backoff = time.Millisecond
	return s
}

func TestOCIStore(t *testing.T) {
	exerciseStore(t, newTestOCI(newFakeBucket(), 3))
}

func TestOCIObjectNames(t *testing.T) {
	bucket := newFakeBucket()
	s := newTestOCI(bucket, 1)

	rec := record("run-1", benchmark.LinkedNodeBacked, benchmark.Middle, 3, time.Now())
	require.NoError(t, s.Save(context.Background(), rec))

	_, ok := bucket.objects["seqbench/linked:middle/run-1.json"]
	assert.True(t, ok, "objects: %v", bucket.objects)
}

func TestOCIRetriesThrottling(t *testing.T) {
	bucket := newFakeBucket()
	bucket.failPuts = []error{serviceError{status: 429}, serviceError{status: 503}}
	s := newTestOCI(bucket, 3)

	require.NoError(t, s.Save(context.Background(), record("a", benchmark.ArrayBacked, benchmark.End, 1, time.Now())))
	assert.Equal(t, 3, bucket.puts)
}

func TestOCIGivesUpAfterRetries(t *testing.T) {
	bucket := newFakeBucket()
	bucket.failPuts = []error{serviceError{status: 429}, serviceError{status: 429}}
	s := newTestOCI(bucket, 2)

	err := s.Save(context.Background(), record("a", benchmark.ArrayBacked, benchmark.End, 1, time.Now()))
	var storageErr *Error
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, "save", storageErr.Op)
	assert.Equal(t, 2, bucket.puts)
}

func TestOCIDoesNotRetryClientErrors(t *testing.T) {
	bucket := newFakeBucket()
	denied := serviceError{status: 403}
	bucket.failPuts = []error{denied}
	s := newTestOCI(bucket, 3)

	err := s.Save(context.Background(), record("a", benchmark.ArrayBacked, benchmark.End, 1, time.Now()))
	assert.ErrorIs(t, err, denied)
	assert.Equal(t, 1, bucket.puts)
}

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(serviceError{status: 429}))
	assert.True(t, retryable(serviceError{status: 503}))
	assert.False(t, retryable(serviceError{status: 500}))
	assert.False(t, retryable(errors.New("plain")))
}
