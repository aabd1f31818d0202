// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relocate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/word2md/pkg/types"
)

// recordingStore implements storage.ObjectStore in memory. Uploads whose
// key contains one of the reject substrings fail.
type recordingStore struct {
	reject  []string
	objects map[string]string
	ctypes  map[string]string
}

func newRecordingStore(reject ...string) *recordingStore {
	return &recordingStore{reject: reject, objects: map[string]string{}, ctypes: map[string]string{}}
}

func (s *recordingStore) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	for _, bad := range s.reject {
		if strings.Contains(key, bad) {
			return "", errors.New("access denied")
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if int64(len(data)) != size {
		return "", fmt.Errorf("size mismatch: %d != %d", len(data), size)
	}
	s.objects[key] = string(data)
	s.ctypes[key] = contentType
	return "http://minio.test/md-images/" + key, nil
}

func writeImages(t *testing.T, names ...string) []types.ImageReference {
	t.Helper()
	dir := t.TempDir()
	refs := make([]types.ImageReference, 0, len(names))
	for i, name := range names {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("data-"+name), 0o644))
		refs = append(refs, types.ImageReference{ID: name, Path: p, MIMEType: "image/png", Index: i})
	}
	return refs
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
}

func TestRelocate_AllSucceed(t *testing.T) {
	images := writeImages(t, "image_000000.png", "image_000001.png")
	store := newRecordingStore()
	r := New(store, zerolog.Nop(), WithIDFunc(sequentialIDs()), WithKeyPrefix("docs/"))

	urls, failures, err := r.Relocate(context.Background(), images)
	require.NoError(t, err)
	assert.Empty(t, failures)

	assert.Equal(t, types.ImageURLMap{
		"image_000000.png": "http://minio.test/md-images/docs/id1_image_000000.png",
		"image_000001.png": "http://minio.test/md-images/docs/id2_image_000001.png",
	}, urls)
	assert.Equal(t, "data-image_000000.png", store.objects["docs/id1_image_000000.png"])
	assert.Equal(t, "image/png", store.ctypes["docs/id1_image_000000.png"])
}

func TestRelocate_SkipsFailedUpload(t *testing.T) {
	images := writeImages(t, "one.png", "two.png", "three.png")
	store := newRecordingStore("two.png")

	urls, failures, err := New(store, zerolog.Nop()).Relocate(context.Background(), images)
	require.NoError(t, err)

	assert.Len(t, urls, 2)
	assert.Contains(t, urls, "one.png")
	assert.Contains(t, urls, "three.png")
	assert.NotContains(t, urls, "two.png")

	require.Len(t, failures, 1)
	assert.Equal(t, "two.png", failures[0].ID)
	assert.ErrorIs(t, failures[0].Err, types.ErrUpload)
}

func TestRelocate_MissingFileIsSkipped(t *testing.T) {
	images := writeImages(t, "ok.png")
	images = append(images, types.ImageReference{ID: "gone.png", Path: filepath.Join(t.TempDir(), "gone.png")})

	urls, failures, err := New(newRecordingStore(), zerolog.Nop()).Relocate(context.Background(), images)
	require.NoError(t, err)
	assert.Len(t, urls, 1)
	require.Len(t, failures, 1)
	assert.Equal(t, "gone.png", failures[0].ID)
}

func TestRelocate_StrictStopsAtFirstFailure(t *testing.T) {
	images := writeImages(t, "one.png", "two.png", "three.png")
	store := newRecordingStore("two.png")

	urls, _, err := New(store, zerolog.Nop(), WithStrict(true)).Relocate(context.Background(), images)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUpload)
	assert.Contains(t, err.Error(), "two.png")
	assert.Len(t, urls, 1, "uploads after the failure must not run")
	assert.Len(t, store.objects, 1)
}

func TestRelocate_CancelledContext(t *testing.T) {
	images := writeImages(t, "one.png")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := New(newRecordingStore(), zerolog.Nop()).Relocate(ctx, images)
	assert.ErrorIs(t, err, types.ErrUpload)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRelocate_NoImages(t *testing.T) {
	urls, failures, err := New(newRecordingStore(), zerolog.Nop()).Relocate(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, urls)
	assert.Empty(t, failures)
}

func TestKey_IsUniquePerCall(t *testing.T) {
	r := New(newRecordingStore(), zerolog.Nop())
	img := types.ImageReference{ID: "image_000000.png"}

	a, b := r.Key(img), r.Key(img)
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, "_image_000000.png"))
}
