package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalog/vitalog-api/internal/core/domain"
	"github.com/vitalog/vitalog-api/internal/core/ports"
)

const testBucket = "vitalog"

// fakeBucket is a minimal path-style S3 endpoint backed by a map.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/"+testBucket)
	key := strings.TrimPrefix(path, "/")

	switch {
	case key == "boom":
		w.WriteHeader(http.StatusInternalServerError)
	case r.Method == http.MethodHead && key == "":
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet && key == "":
		f.list(w, r.URL.Query().Get("prefix"))
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		f.types[key] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead:
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodGet:
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message><Key>%s</Key></Error>`, key)
			return
		}
		w.Header().Set("Content-Type", f.types[key])
		_, _ = w.Write(body)
	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeBucket) list(w http.ResponseWriter, prefix string) {
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">`)
	fmt.Fprintf(&b, "<Name>%s</Name><Prefix>%s</Prefix><KeyCount>%d</KeyCount><IsTruncated>false</IsTruncated>", testBucket, prefix, len(keys))
	for _, k := range keys {
		fmt.Fprintf(&b, "<Contents><Key>%s</Key><Size>%d</Size></Contents>", k, len(f.objects[k]))
	}
	b.WriteString("</ListBucketResult>")

	w.Header().Set("Content-Type", "application/xml")
	_, _ = io.WriteString(w, b.String())
}

func newTestClient(t *testing.T, publicURL string) (*R2Client, *fakeBucket) {
	t.Helper()

	bucket := newFakeBucket()
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	client, err := NewS3Client(context.Background(), Config{
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Bucket:          testBucket,
		Endpoint:        srv.URL,
		MaxAttempts:     1,
	})
	require.NoError(t, err)

	return NewR2Client(client, testBucket, publicURL, zerolog.Nop()), bucket
}

func TestR2Client_PutGetDelete(t *testing.T) {
	r2, bucket := newTestClient(t, "https://cdn.vitalog.app/")
	ctx := context.Background()

	obj, err := r2.Put(ctx, "uploads/a.png", []byte("png-bytes"), "image/png", map[string]string{"owner": "u1"})
	require.NoError(t, err)
	assert.Equal(t, "uploads/a.png", obj.Key)
	assert.Equal(t, "https://cdn.vitalog.app/uploads/a.png", obj.URL)
	assert.Equal(t, int64(9), obj.Size)
	assert.Equal(t, "image/png", obj.MimeType)
	assert.Equal(t, "image/png", bucket.types["uploads/a.png"])

	data, err := r2.Get(ctx, "uploads/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	require.NoError(t, r2.Delete(ctx, "uploads/a.png"))

	_, err = r2.Get(ctx, "uploads/a.png")
	assert.True(t, errors.Is(err, domain.ErrNotFound), "got %v", err)
}

func TestR2Client_Exists(t *testing.T) {
	r2, bucket := newTestClient(t, "")
	bucket.objects["uploads/here.pdf"] = []byte("%PDF")
	ctx := context.Background()

	ok, err := r2.Exists(ctx, "uploads/here.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r2.Exists(ctx, "uploads/missing.pdf")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r2.Exists(ctx, "boom")
	assert.Error(t, err)
}

func TestR2Client_List(t *testing.T) {
	r2, bucket := newTestClient(t, "")
	bucket.objects["uploads/1.png"] = []byte("1")
	bucket.objects["uploads/2.png"] = []byte("2")
	bucket.objects["avatars/x.png"] = []byte("x")

	keys, err := r2.List(context.Background(), "uploads/", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"uploads/1.png", "uploads/2.png"}, keys)
}

func TestR2Client_Presign(t *testing.T) {
	r2, _ := newTestClient(t, "")
	ctx := context.Background()

	put, err := r2.PresignUpload(ctx, "uploads/k.png", ports.PresignOptions{ContentType: "image/png"})
	require.NoError(t, err)
	assert.Contains(t, put, "uploads/k.png")
	assert.Contains(t, put, "X-Amz-Expires=3600")
	assert.Contains(t, put, "X-Amz-Signature=")

	get, err := r2.PresignDownload(ctx, "uploads/k.png", 10*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, get, "uploads/k.png")
	assert.Contains(t, get, "X-Amz-Expires=600")
}

func TestR2Client_PublicURL(t *testing.T) {
	withBase, _ := newTestClient(t, "https://files.example.com/")
	assert.Equal(t, "https://files.example.com/uploads/a.png", withBase.PublicURL("uploads/a.png"))

	noBase := &R2Client{bucket: testBucket}
	assert.Equal(t, "https://vitalog.r2.cloudflarestorage.com/uploads/a.png", noBase.PublicURL("uploads/a.png"))
}

func TestR2Client_Ping(t *testing.T) {
	r2, _ := newTestClient(t, "")
	assert.NoError(t, r2.Ping(context.Background()))
}

func TestConfigEndpoint(t *testing.T) {
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com", Config{AccountID: "acct"}.endpoint())
	assert.Equal(t, "http://localhost:9000", Config{AccountID: "acct", Endpoint: "http://localhost:9000"}.endpoint())
}
