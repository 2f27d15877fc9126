package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaos-io/cutout/util"
)

func pngServer(t *testing.T, w, h int) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path == "/missing.png" {
			http.NotFound(rw, r)
			return
		}
		_, _ = rw.Write(buf.Bytes())
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestDownloadBackdrop_Thumbnails(t *testing.T) {
	t.Parallel()

	server, _ := pngServer(t, 2400, 1600)
	dir := t.TempDir()

	require.NoError(t, downloadBackdrop(context.Background(), "studio-light-1", server.URL+"/a.png", dir, false))

	img, err := util.OpenImage(filepath.Join(dir, "studio-light-1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Bounds().Dx())
	assert.Equal(t, 800, img.Bounds().Dy())
}

func TestDownloadBackdrop_KeepsSmallImages(t *testing.T) {
	t.Parallel()

	server, _ := pngServer(t, 300, 200)
	dir := t.TempDir()

	require.NoError(t, downloadBackdrop(context.Background(), "studio-dark-1", server.URL+"/a.png", dir, false))

	img, err := util.OpenImage(filepath.Join(dir, "studio-dark-1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 300, 200), img.Bounds())
}

func TestDownloadBackdrop_SkipsExisting(t *testing.T) {
	t.Parallel()

	server, hits := pngServer(t, 10, 10)
	dir := t.TempDir()
	existing := filepath.Join(dir, "studio-light-2.jpg")
	require.NoError(t, os.WriteFile(existing, []byte("keep me"), 0o644))

	err := downloadBackdrop(context.Background(), "studio-light-2", server.URL+"/a.png", dir, false)
	assert.ErrorIs(t, err, os.ErrExist)
	assert.Zero(t, hits.Load())

	data, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))

	require.NoError(t, downloadBackdrop(context.Background(), "studio-light-2", server.URL+"/a.png", dir, true))
	img, err := util.OpenImage(existing)
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
}

func TestDownloadAll(t *testing.T) {
	t.Parallel()

	server, _ := pngServer(t, 20, 20)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.jpg"), []byte("existing"), 0o644))

	failed := downloadAll(context.Background(), map[string]string{
		"a": server.URL + "/a.png",
		"b": server.URL + "/b.png",
		"c": server.URL + "/missing.png",
	}, dir, false)

	assert.Equal(t, 1, failed)
	assert.FileExists(t, filepath.Join(dir, "a.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "c.jpg"))
}

func TestStudioBackdrops(t *testing.T) {
	t.Parallel()

	assert.Len(t, studioBackdrops, 6)
	for _, name := range []string{"studio-light-1", "studio-light-3", "studio-dark-2"} {
		assert.Contains(t, studioBackdrops, name)
	}
}
