package graphics

import "image"

// Object handles. The zero value of Shader, Program, Buffer and Texture
// means "no object".
type (
	Shader  uint32
	Program uint32
	Buffer  uint32
	Texture uint32
	// Uniform is an opaque uniform location; NoUniform means not found.
	Uniform int32
)

const (
	NoUniform   Uniform = -1
	NoAttribute int32   = -1
)

// ShaderStage selects the pipeline stage a shader is compiled for.
type ShaderStage int

const (
	VertexStage ShaderStage = iota
	FragmentStage
)

func (s ShaderStage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	default:
		return "unknown"
	}
}

// Wrap and Filter are the sampling parameters applied to textures.
type Wrap int

const (
	ClampToEdge Wrap = iota
	Repeat
)

type Filter int

const (
	Nearest Filter = iota
	Linear
)

// ClearMask selects the buffers cleared by Device.Clear.
type ClearMask int

const (
	ColorBuffer ClearMask = 1 << iota
	DepthBuffer
)

// DepthFunc is the comparison used by the depth test.
type DepthFunc int

const (
	Less DepthFunc = iota
	LessEqual
	Always
)

// VariableInfo describes an active attribute or uniform.
type VariableInfo struct {
	Name string
	Type uint32
	Size int32
}

// Device is the subset of a 3D drawing context the canvas consumes. All
// calls must be made from the thread that owns the surface.
type Device interface {
	CreateShader(stage ShaderStage) Shader
	ShaderSource(s Shader, source string)
	CompileShader(s Shader)
	ShaderCompiled(s Shader) bool
	ShaderInfoLog(s Shader) string
	DeleteShader(s Shader)

	CreateProgram() Program
	AttachShader(p Program, s Shader)
	LinkProgram(p Program)
	ProgramLinked(p Program) bool
	ProgramInfoLog(p Program) string
	UseProgram(p Program)
	DeleteProgram(p Program)

	ActiveAttributes(p Program) int
	ActiveAttribute(p Program, index int) VariableInfo
	ActiveUniforms(p Program) int
	ActiveUniform(p Program, index int) VariableInfo
	AttribLocation(p Program, name string) int32
	UniformLocation(p Program, name string) Uniform

	CreateBuffer() Buffer
	BindBuffer(b Buffer)
	BufferData(b Buffer, data []float32)
	DeleteBuffer(b Buffer)
	VertexAttribPointer(location int32, size int32)
	EnableVertexAttribArray(location int32)

	CreateTexture() Texture
	BindTexture(unit int, t Texture)
	TexImage2D(t Texture, img *image.NRGBA)
	TexParameters(t Texture, wrap Wrap, minFilter, magFilter Filter)
	DeleteTexture(t Texture)
	Uniform1i(u Uniform, v int32)

	ClearColor(r, g, b, a float32)
	// DepthTest enables depth testing with fn as the comparison.
	DepthTest(fn DepthFunc)
	Clear(mask ClearMask)
	Viewport(x, y, width, height int)
	DrawTriangleStrip(first, count int)
	ReadPixels(x, y, width, height int) *image.NRGBA
}
