package inputs

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("image/png"))
	assert.True(t, IsImage("image/svg+xml"))
	assert.False(t, IsImage("text/plain; charset=utf-8"))
	assert.False(t, IsImage("application/octet-stream"))
	assert.False(t, IsImage(""))
}

func TestMediaType(t *testing.T) {
	dir := t.TempDir()

	// sniffed content wins over a misleading extension
	disguised := filepath.Join(dir, "photo.txt")
	writePNG(t, disguised, 2, 2)
	mt, err := MediaType(disguised)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)

	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("plain words"), 0644))
	mt, err = MediaType(notes)
	require.NoError(t, err)
	assert.False(t, IsImage(mt))

	// unrecognized bytes fall back to the extension
	raw := filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(raw, []byte{0x00, 0x01, 0x02, 0x03}, 0644))
	mt, err = MediaType(raw)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mt)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	mt, err = MediaType(empty)
	require.NoError(t, err)
	assert.False(t, IsImage(mt))

	_, err = MediaType(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestFileDecoder_Decode(t *testing.T) {
	dir := t.TempDir()
	d := &FileDecoder{}

	good := filepath.Join(dir, "good.png")
	writePNG(t, good, 3, 2)
	img, err := d.Decode(good)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), img.Bounds())

	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("not a picture"), 0644))
	_, err = d.Decode(notes)
	var notImage *NotImageError
	require.True(t, errors.As(err, &notImage))
	assert.Equal(t, notes, notImage.Path)

	corrupt := filepath.Join(dir, "corrupt.png")
	require.NoError(t, os.WriteFile(corrupt, []byte{0x00, 0x01, 0x02, 0x03}, 0644))
	_, err = d.Decode(corrupt)
	require.Error(t, err)
	assert.False(t, errors.As(err, &notImage), "an image type that fails to decode is a decode error")
	assert.ErrorIs(t, err, image.ErrFormat)
}
