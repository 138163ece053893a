package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/goannotate/graphics"
)

const (
	quadComponents  = 2
	quadVertexCount = 4
	quadInset       = 0.9
)

// quadCorners is a triangle strip covering clip space inset to ±0.9.
var quadCorners = [quadVertexCount]mgl32.Vec2{
	{-quadInset, -quadInset},
	{quadInset, -quadInset},
	{-quadInset, quadInset},
	{quadInset, quadInset},
}

func quadVertices() []float32 {
	out := make([]float32, 0, quadVertexCount*quadComponents)
	for _, c := range quadCorners {
		out = append(out, c.X(), c.Y())
	}
	return out
}

// Quad is the static, write-once vertex buffer drawn every frame.
type Quad struct {
	dev    graphics.Device
	Buffer graphics.Buffer
}

// NewQuad allocates and fills the vertex buffer.
func NewQuad(dev graphics.Device) (*Quad, error) {
	b := dev.CreateBuffer()
	if b == 0 {
		return nil, &AllocationError{Object: "vertex buffer"}
	}
	dev.BufferData(b, quadVertices())
	return &Quad{dev: dev, Buffer: b}, nil
}

// Bind points the attribute at location to the quad's positions.
func (q *Quad) Bind(location int32) {
	q.dev.BindBuffer(q.Buffer)
	q.dev.VertexAttribPointer(location, quadComponents)
	q.dev.EnableVertexAttribArray(location)
}

// Draw submits the quad as a triangle strip.
func (q *Quad) Draw() {
	q.dev.DrawTriangleStrip(0, quadVertexCount)
}

func (q *Quad) Release() {
	if q.Buffer != 0 {
		q.dev.DeleteBuffer(q.Buffer)
		q.Buffer = 0
	}
}
