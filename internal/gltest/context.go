package gltest

import (
	"errors"

	"github.com/richinsley/goannotate/graphics"
)

// Context is a fake surface backed by a Device.
type Context struct {
	Dev *Device
	// DeviceErr, when set, is returned by Device instead of Dev.
	DeviceErr error

	Width  int
	Height int
	// CloseAfter makes ShouldClose report true once this many frames ended.
	// Zero means never.
	CloseAfter int
	// Desktop makes the surface report a desktop core context.
	Desktop bool

	Frames int
	Closed bool
	onDrop func([]string)
	onEnd  func(frame int)
}

func NewContext(width, height int) *Context {
	return &Context{Dev: NewDevice(), Width: width, Height: height}
}

func (c *Context) Device() (graphics.Device, error) {
	if c.DeviceErr != nil {
		return nil, c.DeviceErr
	}
	if c.Dev == nil {
		return nil, errors.New("surface has no device")
	}
	return c.Dev, nil
}

func (c *Context) MakeCurrent() {}

func (c *Context) Shutdown() {
	c.Closed = true
}

func (c *Context) ShouldClose() bool {
	return c.CloseAfter > 0 && c.Frames >= c.CloseAfter
}

func (c *Context) EndFrame() {
	c.Frames++
	if c.onEnd != nil {
		c.onEnd(c.Frames)
	}
}

// OnEndFrame registers a hook run after every presented frame.
func (c *Context) OnEndFrame(f func(frame int)) {
	c.onEnd = f
}

func (c *Context) GetFramebufferSize() (int, int) {
	return c.Width, c.Height
}

// IsGLES is true unless Desktop is set.
func (c *Context) IsGLES() bool {
	return !c.Desktop
}

func (c *Context) SetDropCallback(f func(paths []string)) {
	c.onDrop = f
}

// HasDropCallback reports whether a drop receiver is registered.
func (c *Context) HasDropCallback() bool {
	return c.onDrop != nil
}

// DropFiles simulates files dropped onto the surface.
func (c *Context) DropFiles(paths ...string) {
	if c.onDrop != nil {
		c.onDrop(paths)
	}
}

var (
	_ graphics.Context    = (*Context)(nil)
	_ graphics.DropSource = (*Context)(nil)
)
