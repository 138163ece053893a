package renderer

import (
	"image"
	"image/color"
	"log/slog"
	"testing"

	"github.com/richinsley/goannotate/graphics"
	"github.com/richinsley/goannotate/internal/gltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.DiscardHandler)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestTextureManager_DefaultIsTransparentPixel(t *testing.T) {
	dev := gltest.NewDevice()
	m := NewTextureManager(dev, discard)

	tex, err := m.CreateDefault()
	require.NoError(t, err)
	assert.Equal(t, 1, tex.Width)
	assert.Equal(t, 1, tex.Height)

	obj, ok := dev.Texture(tex.Handle)
	require.True(t, ok)
	assert.Equal(t, color.NRGBA{}, obj.Pixels.NRGBAAt(0, 0))
	assert.Equal(t, graphics.ClampToEdge, obj.Wrap)
	assert.Equal(t, graphics.Nearest, obj.MinFilter)
	assert.Equal(t, graphics.Nearest, obj.MagFilter)
}

func TestTextureManager_CreateFromImageFlipsRows(t *testing.T) {
	dev := gltest.NewDevice()
	m := NewTextureManager(dev, discard)

	img := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	top := color.NRGBA{R: 255, A: 255}
	bottom := color.NRGBA{B: 255, A: 255}
	img.SetNRGBA(0, 0, top)
	img.SetNRGBA(0, 1, bottom)

	tex, err := m.CreateFromImage(img)
	require.NoError(t, err)
	assert.Equal(t, 1, tex.Width)
	assert.Equal(t, 2, tex.Height)

	obj, _ := dev.Texture(tex.Handle)
	assert.Equal(t, bottom, obj.Pixels.NRGBAAt(0, 0), "first uploaded row is the image's bottom row")
	assert.Equal(t, top, obj.Pixels.NRGBAAt(0, 1))
}

func TestTextureManager_ReplaceKeepsOneLiveTexture(t *testing.T) {
	dev := gltest.NewDevice()
	m := NewTextureManager(dev, discard)

	def, err := m.CreateDefault()
	require.NoError(t, err)
	m.Replace(def)
	assert.Equal(t, 1, dev.LiveTextures())

	for i := 0; i < 5; i++ {
		next, err := m.CreateFromImage(solid(2, 2, color.NRGBA{G: uint8(i), A: 255}))
		require.NoError(t, err)
		m.Replace(next)
		assert.Equal(t, 1, dev.LiveTextures())
		assert.Same(t, next, m.Current())
	}

	_, stillLive := dev.Texture(def.Handle)
	assert.False(t, stillLive, "replaced texture must be destroyed")
}

func TestTextureManager_SetImageFailureKeepsCurrent(t *testing.T) {
	dev := gltest.NewDevice()
	m := NewTextureManager(dev, discard)
	def, err := m.CreateDefault()
	require.NoError(t, err)
	m.Replace(def)

	assert.False(t, m.SetImage(nil))
	assert.False(t, m.SetImage(image.NewNRGBA(image.Rect(0, 0, 0, 0))))

	dev.FailTextures = true
	assert.False(t, m.SetImage(solid(1, 1, color.NRGBA{R: 255, A: 255})))

	assert.Same(t, def, m.Current())
	assert.Equal(t, 1, dev.LiveTextures())
}

func TestTextureManager_Release(t *testing.T) {
	dev := gltest.NewDevice()
	m := NewTextureManager(dev, discard)
	require.True(t, m.SetImage(solid(1, 1, color.NRGBA{A: 255})))

	m.Release()
	assert.Nil(t, m.Current())
	assert.Equal(t, 0, dev.LiveTextures())
}
