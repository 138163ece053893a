// Package canvas wires the shader program, texture, render loop and surface
// tracker into a single annotation canvas.
package canvas

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/richinsley/goannotate/graphics"
	"github.com/richinsley/goannotate/inputs"
	"github.com/richinsley/goannotate/renderer"
	"github.com/richinsley/goannotate/shader"
)

const defaultTaskQueue = 16

// Config controls a Controller. The zero value draws the texture program,
// translates the sources on desktop contexts, polls every 100ms and logs
// nothing.
type Config struct {
	Program      shader.Kind
	PollInterval time.Duration
	// NoTranslate hands the GLSL ES sources to desktop contexts unchanged.
	NoTranslate bool
	Decoder     inputs.Decoder
	Logger      *slog.Logger
	TaskQueue   int
}

// Controller owns every GL object of the canvas. Apart from Drop and Open,
// its methods must be called on the thread that owns the surface.
type Controller struct {
	surface  graphics.Context
	dev      graphics.Device
	program  *renderer.Program
	quad     *renderer.Quad
	textures *renderer.TextureManager
	loop     *renderer.RenderLoop
	tracker  *renderer.SurfaceTracker
	decoder  inputs.Decoder
	logger   *slog.Logger

	tasks    chan func()
	done     chan struct{}
	decodes  sync.WaitGroup
	stopOnce sync.Once
}

// New performs the full setup sequence and starts the surface tracker and
// render loop. Nothing is scheduled when setup fails, and anything already
// allocated is released.
func New(surface graphics.Context, cfg Config) (_ *Controller, err error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if surface == nil {
		return nil, renderer.ErrNoGraphicsContext
	}
	dev, err := surface.Device()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", renderer.ErrNoGraphicsContext, err)
	}
	if dev == nil {
		return nil, renderer.ErrNoGraphicsContext
	}

	c := &Controller{
		surface: surface,
		dev:     dev,
		decoder: cfg.Decoder,
		logger:  logger,
		done:    make(chan struct{}),
	}
	if c.decoder == nil {
		c.decoder = &inputs.FileDecoder{Logger: logger}
	}
	queue := cfg.TaskQueue
	if queue <= 0 {
		queue = defaultTaskQueue
	}
	c.tasks = make(chan func(), queue)

	defer func() {
		if err != nil {
			c.release()
		}
	}()

	sources, err := shader.ForContext(cfg.Program, surface.IsGLES(), !cfg.NoTranslate)
	if err != nil {
		return nil, err
	}
	c.quad, err = renderer.NewQuad(dev)
	if err != nil {
		return nil, err
	}
	c.program, err = renderer.NewProgram(dev, sources)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s program: %w", cfg.Program, err)
	}
	if err = c.program.Require(shader.Required(cfg.Program)); err != nil {
		return nil, err
	}

	c.textures = renderer.NewTextureManager(dev, logger)
	placeholder, err := c.textures.CreateDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to create default texture: %w", err)
	}
	c.textures.Replace(placeholder)

	c.loop, err = renderer.NewRenderLoop(dev, c.program, c.quad, c.textures)
	if err != nil {
		return nil, err
	}

	c.tracker = renderer.NewSurfaceTracker(surface, dev, cfg.PollInterval, logger)
	c.tracker.Start()
	c.tracker.PollAndUpdate()
	if err = c.loop.Start(); err != nil {
		return nil, err
	}

	if ds, ok := surface.(graphics.DropSource); ok {
		ds.SetDropCallback(c.Drop)
	}
	logger.Info("canvas ready", "program", cfg.Program.String(), "attributes", len(c.program.Attributes), "uniforms", len(c.program.Uniforms))
	return c, nil
}

// SetImage replaces the current texture with img. Failures are logged and
// the current texture stays.
func (c *Controller) SetImage(img image.Image) {
	if c.loop.State() == renderer.Stopped {
		return
	}
	c.textures.SetImage(img)
}

// Reset puts the transparent placeholder back in place of the current image.
func (c *Controller) Reset() {
	if c.loop.State() == renderer.Stopped {
		return
	}
	placeholder, err := c.textures.CreateDefault()
	if err != nil {
		c.logger.Warn("could not reset texture", "error", err)
		return
	}
	c.textures.Replace(placeholder)
	c.logger.Info("texture reset")
}

// Drop accepts dropped files. Only image media types are decoded; each
// decode runs off the render thread and posts its texture swap back to it.
func (c *Controller) Drop(paths []string) {
	for _, path := range paths {
		c.intake(path, func() (image.Image, error) {
			return c.decoder.Decode(path)
		})
	}
}

// Open loads a file path or http(s) URL the same way a dropped file is
// loaded.
func (c *Controller) Open(ctx context.Context, src string) {
	if inputs.IsURL(src) {
		c.intake(src, func() (image.Image, error) {
			return inputs.Fetch(ctx, src)
		})
		return
	}
	c.Drop([]string{src})
}

func (c *Controller) intake(name string, decode func() (image.Image, error)) {
	c.decodes.Add(1)
	go func() {
		defer c.decodes.Done()
		img, err := decode()
		if err != nil {
			var notImage *inputs.NotImageError
			if errors.As(err, &notImage) {
				c.logger.Info("ignoring dropped file", "path", name, "type", notImage.MediaType)
			} else {
				c.logger.Warn("could not load image", "path", name, "error", err)
			}
			return
		}
		c.post(func() {
			c.logger.Info("loading image", "path", name)
			c.SetImage(img)
		})
	}()
}

// post queues f for the render thread. It gives up once the controller
// stops.
func (c *Controller) post(f func()) bool {
	select {
	case c.tasks <- f:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) runTasks() {
	for {
		select {
		case f := <-c.tasks:
			f()
		default:
			return
		}
	}
}

// Settle waits for in-flight decodes and applies their texture swaps. Call
// it on the render thread. The queue is drained while waiting so decodes
// blocked on a full queue can finish.
func (c *Controller) Settle() {
	idle := make(chan struct{})
	go func() {
		c.decodes.Wait()
		close(idle)
	}()
	for {
		select {
		case f := <-c.tasks:
			f()
		case <-idle:
			c.runTasks()
			return
		}
	}
}

// Frame runs one iteration of the render thread: posted tasks, a due surface
// poll, one render step, and presentation. It reports false once the loop is
// no longer rendering.
func (c *Controller) Frame() bool {
	c.runTasks()
	if c.tracker.Due() {
		c.tracker.PollAndUpdate()
	}
	if !c.loop.Step() {
		return false
	}
	c.surface.EndFrame()
	return true
}

// Run drives frames until ctx is cancelled, the surface asks to close, or
// the controller is stopped.
func (c *Controller) Run(ctx context.Context) error {
	for !c.surface.ShouldClose() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !c.Frame() {
			return nil
		}
	}
	return nil
}

// Stop cancels the poll timer, ends the render loop and releases every GL
// object. It is safe to call more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.release()
		c.logger.Info("canvas stopped")
	})
}

func (c *Controller) release() {
	if c.tracker != nil {
		c.tracker.Stop()
	}
	if c.loop != nil {
		c.loop.Stop()
	}
	if c.textures != nil {
		c.textures.Release()
	}
	if c.program != nil {
		c.program.Release()
	}
	if c.quad != nil {
		c.quad.Release()
	}
}

// Snapshot reads back the surface's current framebuffer.
func (c *Controller) Snapshot() *image.NRGBA {
	w, h := c.surface.GetFramebufferSize()
	return c.dev.ReadPixels(0, 0, w, h)
}

// State reports the render loop state.
func (c *Controller) State() renderer.LoopState {
	return c.loop.State()
}

// Frames returns the number of frames drawn.
func (c *Controller) Frames() uint64 {
	return c.loop.Frames()
}

// Texture returns the live texture.
func (c *Controller) Texture() *renderer.Texture {
	return c.textures.Current()
}

// Size returns the cached surface size.
func (c *Controller) Size() renderer.SurfaceSize {
	return c.tracker.Size()
}
