package canvas

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/richinsley/goannotate/internal/gltest"
	"github.com/richinsley/goannotate/renderer"
	"github.com/richinsley/goannotate/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var red = color.NRGBA{R: 255, A: 255}

func writePNG(t *testing.T, dir, name string, w, h int, c color.NRGBA) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func newController(t *testing.T, cfg Config) (*Controller, *gltest.Context) {
	t.Helper()
	surface := gltest.NewContext(640, 480)
	c, err := New(surface, cfg)
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	return c, surface
}

func TestNew_NoGraphicsContext(t *testing.T) {
	surface := gltest.NewContext(640, 480)
	surface.DeviceErr = errors.New("context creation refused")

	c, err := New(surface, Config{})
	assert.Nil(t, c)
	assert.ErrorIs(t, err, renderer.ErrNoGraphicsContext)
	assert.False(t, surface.HasDropCallback(), "no intake is wired on failure")
	assert.Empty(t, surface.Dev.Viewports, "no surface poll ran")
	assert.Equal(t, 0, surface.Frames)

	_, err = New(nil, Config{})
	assert.ErrorIs(t, err, renderer.ErrNoGraphicsContext)
}

func TestNew_SetupFailureReleasesEverything(t *testing.T) {
	tests := []struct {
		name  string
		setup func(d *gltest.Device)
		check func(t *testing.T, err error)
	}{
		{
			name:  "texture allocation",
			setup: func(d *gltest.Device) { d.FailTextures = true },
			check: func(t *testing.T, err error) {
				var allocErr *renderer.AllocationError
				assert.True(t, errors.As(err, &allocErr))
			},
		},
		{
			name:  "buffer allocation",
			setup: func(d *gltest.Device) { d.FailBuffers = true },
			check: func(t *testing.T, err error) {
				var allocErr *renderer.AllocationError
				assert.True(t, errors.As(err, &allocErr))
			},
		},
		{
			name:  "unresolvable uniform",
			setup: func(d *gltest.Device) { d.HiddenUniforms[shader.TextureUniform] = true },
			check: func(t *testing.T, err error) {
				var reflErr *renderer.ReflectionError
				assert.True(t, errors.As(err, &reflErr))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := gltest.NewContext(640, 480)
			tt.setup(surface.Dev)

			c, err := New(surface, Config{})
			require.Error(t, err)
			assert.Nil(t, c)
			tt.check(t, err)

			assert.Equal(t, 0, surface.Dev.LivePrograms())
			assert.Equal(t, 0, surface.Dev.LiveBuffers())
			assert.Equal(t, 0, surface.Dev.LiveTextures())
			assert.False(t, surface.HasDropCallback())
		})
	}
}

func TestNew_StartsRendering(t *testing.T) {
	c, surface := newController(t, Config{})

	assert.Equal(t, renderer.Rendering, c.State())
	assert.True(t, surface.HasDropCallback())
	assert.Equal(t, renderer.SurfaceSize{Width: 640, Height: 480}, c.Size())
	require.Len(t, surface.Dev.Viewports, 1)

	tex := c.Texture()
	require.NotNil(t, tex)
	assert.Equal(t, 1, tex.Width)
	assert.Equal(t, 1, tex.Height)
	assert.Equal(t, 1, surface.Dev.LiveTextures())
}

func TestRun_UntilSurfaceCloses(t *testing.T) {
	c, surface := newController(t, Config{})
	surface.CloseAfter = 3

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, uint64(3), c.Frames())
	assert.Equal(t, 3, surface.Frames)
	assert.Len(t, surface.Dev.Draws, 3)
}

func TestRun_Cancelled(t *testing.T) {
	c, _ := newController(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.Run(ctx), context.Canceled)
	assert.Equal(t, uint64(0), c.Frames())
}

func TestRun_StopFromFrameHook(t *testing.T) {
	c, surface := newController(t, Config{})
	surface.OnEndFrame(func(frame int) {
		if frame == 2 {
			c.Stop()
		}
	})

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, uint64(2), c.Frames())
	assert.Equal(t, renderer.Stopped, c.State())
}

func TestRun_ResizeIsPolled(t *testing.T) {
	c, surface := newController(t, Config{PollInterval: time.Millisecond})
	surface.OnEndFrame(func(frame int) {
		if frame == 1 {
			surface.Width = 320
		}
		time.Sleep(2 * time.Millisecond)
	})
	surface.CloseAfter = 20

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, renderer.SurfaceSize{Width: 320, Height: 480}, c.Size())
	assert.Len(t, surface.Dev.Viewports, 2, "one update at start, one for the resize")
}

func TestDrop_ImageReplacesTexture(t *testing.T) {
	c, surface := newController(t, Config{})
	path := writePNG(t, t.TempDir(), "red.png", 1, 1, red)
	placeholder := c.Texture()

	surface.DropFiles(path)
	c.Settle()

	tex := c.Texture()
	require.NotNil(t, tex)
	assert.NotEqual(t, placeholder.Handle, tex.Handle)
	assert.Equal(t, 1, surface.Dev.LiveTextures())

	require.True(t, c.Frame())
	draws := surface.Dev.Draws
	assert.Equal(t, red, surface.Dev.Shade(draws[len(draws)-1]))
}

func TestDrop_PlaceholderSamplesTransparent(t *testing.T) {
	c, surface := newController(t, Config{})
	require.True(t, c.Frame())
	assert.Equal(t, color.NRGBA{}, surface.Dev.Shade(surface.Dev.Draws[0]))
}

func TestDrop_NonImageIsIgnored(t *testing.T) {
	c, surface := newController(t, Config{})
	dir := t.TempDir()
	before := c.Texture()

	c.Drop([]string{
		writeFile(t, dir, "notes.txt", "hello, this is not a picture"),
		writeFile(t, dir, "broken.png", "\x00\x01\x02 definitely not png data"),
		filepath.Join(dir, "missing.png"),
	})
	c.Settle()

	assert.Same(t, before, c.Texture())
	assert.Equal(t, 1, surface.Dev.LiveTextures())
}

func TestDrop_TextureFailureKeepsCurrent(t *testing.T) {
	c, surface := newController(t, Config{})
	before := c.Texture()
	surface.Dev.FailTextures = true

	c.Drop([]string{writePNG(t, t.TempDir(), "red.png", 2, 2, red)})
	c.Settle()

	assert.Same(t, before, c.Texture())
	assert.True(t, c.Frame(), "rendering continues")
}

func TestOpen_LocalPath(t *testing.T) {
	c, _ := newController(t, Config{})
	c.Open(context.Background(), writePNG(t, t.TempDir(), "wide.png", 4, 2, red))
	c.Settle()

	assert.Equal(t, 4, c.Texture().Width)
	assert.Equal(t, 2, c.Texture().Height)
}

func TestRedProgram(t *testing.T) {
	c, surface := newController(t, Config{Program: shader.RedProgram})

	require.True(t, c.Frame())
	draw := surface.Dev.Draws[0]
	assert.Equal(t, red, surface.Dev.Shade(draw))
	assert.Equal(t, int32(-1), draw.Sampler)
}

func TestStop_ReleasesAndIsIdempotent(t *testing.T) {
	c, surface := newController(t, Config{})
	require.True(t, c.Frame())

	c.Stop()
	c.Stop()

	assert.Equal(t, renderer.Stopped, c.State())
	assert.False(t, c.Frame())
	assert.Equal(t, 0, surface.Dev.LiveTextures())
	assert.Equal(t, 0, surface.Dev.LivePrograms())
	assert.Equal(t, 0, surface.Dev.LiveBuffers())

	c.SetImage(image.NewNRGBA(image.Rect(0, 0, 1, 1)))
	assert.Equal(t, 0, surface.Dev.LiveTextures(), "stopped controller ignores images")

	c.Drop([]string{writePNG(t, t.TempDir(), "late.png", 1, 1, red)})
	c.Settle()
	assert.Equal(t, 0, surface.Dev.LiveTextures())
	assert.NoError(t, c.Run(context.Background()))
}

func TestSnapshot(t *testing.T) {
	c, surface := newController(t, Config{})
	c.Drop([]string{writePNG(t, t.TempDir(), "red.png", 1, 1, red)})
	c.Settle()
	require.True(t, c.Frame())

	snap := c.Snapshot()
	assert.Equal(t, image.Rect(0, 0, surface.Width, surface.Height), snap.Bounds())
	assert.Equal(t, red, snap.NRGBAAt(surface.Width/2, surface.Height/2))
	assert.Equal(t, color.NRGBA{A: 255}, snap.NRGBAAt(0, 0), "outside the quad is opaque black")
}

func TestSettle_MoreDropsThanQueueSlots(t *testing.T) {
	c, surface := newController(t, Config{TaskQueue: 2})
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 20; i++ {
		paths = append(paths, writePNG(t, dir, fmt.Sprintf("dot%02d.png", i), 1, 1, red))
	}
	placeholder := c.Texture()

	c.Drop(paths)
	settled := make(chan struct{})
	go func() {
		c.Settle()
		close(settled)
	}()
	select {
	case <-settled:
	case <-time.After(5 * time.Second):
		t.Fatal("Settle did not return with more decodes than queue slots")
	}

	assert.NotSame(t, placeholder, c.Texture())
	assert.Equal(t, 1, surface.Dev.LiveTextures())
}

func TestReset_RestoresPlaceholder(t *testing.T) {
	c, surface := newController(t, Config{})
	c.Drop([]string{writePNG(t, t.TempDir(), "wide.png", 4, 2, red)})
	c.Settle()
	require.Equal(t, 4, c.Texture().Width)

	c.Reset()
	assert.Equal(t, 1, c.Texture().Width)
	assert.Equal(t, 1, c.Texture().Height)
	assert.Equal(t, 1, surface.Dev.LiveTextures())
	require.True(t, c.Frame())
	assert.Equal(t, color.NRGBA{}, surface.Dev.Shade(surface.Dev.Draws[0]))

	c.Stop()
	c.Reset()
	assert.Equal(t, 0, surface.Dev.LiveTextures(), "stopped controller allocates nothing")
}

func TestNew_DesktopContextTranslates(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		esSource bool
	}{
		{"default", Config{}, false},
		{"opt out", Config{NoTranslate: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			surface := gltest.NewContext(320, 240)
			surface.Desktop = true

			c, err := New(surface, tt.cfg)
			require.NoError(t, err)
			defer c.Stop()

			require.Len(t, surface.Dev.Sources, 2)
			for _, src := range surface.Dev.Sources {
				assert.Equal(t, tt.esSource, strings.Contains(src, "#version 300 es"))
			}
			require.True(t, c.Frame())
			assert.Equal(t, int32(0), surface.Dev.Draws[0].Sampler)
		})
	}
}
