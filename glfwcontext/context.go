package glfwcontext

import (
	"log"
	"runtime"

	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/richinsley/goannotate/gldevice"
	"github.com/richinsley/goannotate/graphics"
	options "github.com/richinsley/goannotate/options"
)

// Context is a visible GLFW window used as the drawing surface.
type Context struct {
	window *glfw.Window
	device *gldevice.Device
	// A map to store functions to be called on key presses.
	keyCallbacks map[glfw.Key]func()
	dropCallback func(paths []string)
}

// New creates and initializes a new GLFW window and returns a Context object.
func New(options *options.CanvasOptions) (*Context, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.DepthBits, 24)

	win, err := glfw.CreateWindow(*options.Width, *options.Height, "goannotate", nil, nil)
	if err != nil {
		return nil, err
	}

	c := &Context{
		window:       win,
		keyCallbacks: make(map[glfw.Key]func()),
	}

	win.SetKeyCallback(c.glfwKeyCallback)
	win.SetDropCallback(c.glfwDropCallback)

	return c, nil
}

// Device makes the window's context current and returns its GL device.
func (c *Context) Device() (graphics.Device, error) {
	if c.device != nil {
		return c.device, nil
	}
	c.MakeCurrent()
	// present at most once per display refresh
	glfw.SwapInterval(1)
	dev, err := gldevice.New()
	if err != nil {
		return nil, err
	}
	log.Printf("OpenGL %s", dev.Version())
	c.device = dev
	return dev, nil
}

// RegisterKeyCallback registers f to run when key is pressed. Callbacks fire
// from EndFrame, on the render thread.
func (c *Context) RegisterKeyCallback(key glfw.Key, f func()) {
	c.keyCallbacks[key] = f
}

// SetDropCallback registers the receiver of dropped file paths.
func (c *Context) SetDropCallback(f func(paths []string)) {
	c.dropCallback = f
}

func (c *Context) glfwKeyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	// Handle the default Escape key behavior
	if key == glfw.KeyEscape && action == glfw.Press {
		w.SetShouldClose(true)
	}

	if action == glfw.Press {
		if callback, ok := c.keyCallbacks[key]; ok {
			callback()
		}
	}
}

func (c *Context) glfwDropCallback(w *glfw.Window, names []string) {
	if c.dropCallback != nil {
		c.dropCallback(names)
	}
}

// MakeCurrent makes the context current for the calling goroutine.
func (c *Context) MakeCurrent() {
	c.window.MakeContextCurrent()
}

// Shutdown releases the device and destroys the window.
func (c *Context) Shutdown() {
	if c.device != nil {
		c.device.Release()
		c.device = nil
	}
	c.window.Destroy()
}

func (c *Context) ShouldClose() bool {
	return c.window.ShouldClose()
}

func (c *Context) EndFrame() {
	c.window.SwapBuffers()
	glfw.PollEvents()
}

func (c *Context) GetFramebufferSize() (int, int) {
	return c.window.GetFramebufferSize()
}

func (c *Context) IsGLES() bool {
	return false
}

// InitGraphics initializes the main graphics subsystem (GLFW). Must be called from the main thread.
func InitGraphics() error {
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return err
	}
	log.Printf("GLFW Initialized")
	return nil
}

// TerminateGraphics shuts down the graphics subsystem. Must be called from the main thread.
func TerminateGraphics() {
	glfw.Terminate()
	log.Printf("GLFW Terminated")
}

var (
	_ graphics.Context    = (*Context)(nil)
	_ graphics.DropSource = (*Context)(nil)
)
