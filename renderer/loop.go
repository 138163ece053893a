package renderer

import (
	"fmt"

	"github.com/richinsley/goannotate/graphics"
	"github.com/richinsley/goannotate/shader"
)

// LoopState is the render loop's lifecycle state.
type LoopState int

const (
	Idle LoopState = iota
	Rendering
	Stopped
)

func (s LoopState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Rendering:
		return "rendering"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("LoopState(%d)", int(s))
	}
}

// RenderLoop draws the quad once per step with the current texture.
type RenderLoop struct {
	dev      graphics.Device
	program  *Program
	quad     *Quad
	textures *TextureManager

	position int32
	sampler  graphics.Uniform

	state  LoopState
	frames uint64
}

// NewRenderLoop resolves the locations the draw needs. The sampler uniform
// is optional; programs without it draw untextured.
func NewRenderLoop(dev graphics.Device, program *Program, quad *Quad, textures *TextureManager) (*RenderLoop, error) {
	position, err := program.Attribute(shader.PositionAttribute)
	if err != nil {
		return nil, err
	}
	sampler, ok := program.Uniforms[shader.TextureUniform]
	if !ok {
		sampler = graphics.NoUniform
	}
	return &RenderLoop{
		dev:      dev,
		program:  program,
		quad:     quad,
		textures: textures,
		position: position,
		sampler:  sampler,
	}, nil
}

// Start moves the loop from Idle to Rendering. It happens once.
func (l *RenderLoop) Start() error {
	if l.state != Idle {
		return fmt.Errorf("render loop cannot start while %s", l.state)
	}
	l.dev.ClearColor(0, 0, 0, 1)
	l.dev.DepthTest(graphics.LessEqual)
	l.state = Rendering
	return nil
}

// Stop moves the loop to its terminal state.
func (l *RenderLoop) Stop() {
	l.state = Stopped
}

func (l *RenderLoop) State() LoopState {
	return l.state
}

// Frames returns the number of steps drawn.
func (l *RenderLoop) Frames() uint64 {
	return l.frames
}

// Step draws one frame. It does nothing unless the loop is Rendering.
func (l *RenderLoop) Step() bool {
	if l.state != Rendering {
		return false
	}
	l.dev.Clear(graphics.ColorBuffer | graphics.DepthBuffer)
	l.program.Use()
	l.quad.Bind(l.position)
	if l.sampler != graphics.NoUniform {
		if tex := l.textures.Current(); tex != nil {
			l.dev.BindTexture(0, tex.Handle)
			l.dev.Uniform1i(l.sampler, 0)
		}
	}
	l.quad.Draw()
	l.frames++
	return true
}
