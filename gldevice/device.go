// Package gldevice implements graphics.Device on top of the OpenGL 4.1 core
// bindings.
package gldevice

import (
	"fmt"
	"image"
	"strings"
	"sync"

	gl "github.com/go-gl/gl/v4.1-core/gl"
	"github.com/richinsley/goannotate/graphics"
)

var glInitOnce sync.Once
var glInitErr error

// Device issues GL calls against whatever context is current on the calling
// thread.
type Device struct {
	// core profiles refuse to draw without a bound vertex array
	vao uint32
}

// New initializes the GL function pointers (once per process) and prepares
// the default vertex array. The surface's context must already be current.
func New() (*Device, error) {
	glInitOnce.Do(func() {
		glInitErr = gl.Init()
	})
	if glInitErr != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", glInitErr)
	}

	d := &Device{}
	gl.GenVertexArrays(1, &d.vao)
	if d.vao == 0 {
		return nil, fmt.Errorf("failed to create vertex array")
	}
	gl.BindVertexArray(d.vao)
	return d, nil
}

// Release deletes the default vertex array.
func (d *Device) Release() {
	if d.vao != 0 {
		gl.BindVertexArray(0)
		gl.DeleteVertexArrays(1, &d.vao)
		d.vao = 0
	}
}

// Version reports the driver's version string.
func (d *Device) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

func stageEnum(stage graphics.ShaderStage) uint32 {
	if stage == graphics.FragmentStage {
		return gl.FRAGMENT_SHADER
	}
	return gl.VERTEX_SHADER
}

func (d *Device) CreateShader(stage graphics.ShaderStage) graphics.Shader {
	return graphics.Shader(gl.CreateShader(stageEnum(stage)))
}

func (d *Device) ShaderSource(s graphics.Shader, source string) {
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(uint32(s), 1, csources, nil)
	free()
}

func (d *Device) CompileShader(s graphics.Shader) {
	gl.CompileShader(uint32(s))
}

func (d *Device) ShaderCompiled(s graphics.Shader) bool {
	var status int32
	gl.GetShaderiv(uint32(s), gl.COMPILE_STATUS, &status)
	return status != gl.FALSE
}

func (d *Device) ShaderInfoLog(s graphics.Shader) string {
	var logLength int32
	gl.GetShaderiv(uint32(s), gl.INFO_LOG_LENGTH, &logLength)
	if logLength == 0 {
		return ""
	}
	logText := strings.Repeat("\x00", int(logLength+1))
	gl.GetShaderInfoLog(uint32(s), logLength, nil, gl.Str(logText))
	return strings.TrimRight(logText, "\x00")
}

func (d *Device) DeleteShader(s graphics.Shader) {
	gl.DeleteShader(uint32(s))
}

func (d *Device) CreateProgram() graphics.Program {
	return graphics.Program(gl.CreateProgram())
}

func (d *Device) AttachShader(p graphics.Program, s graphics.Shader) {
	gl.AttachShader(uint32(p), uint32(s))
}

func (d *Device) LinkProgram(p graphics.Program) {
	gl.LinkProgram(uint32(p))
}

func (d *Device) ProgramLinked(p graphics.Program) bool {
	var status int32
	gl.GetProgramiv(uint32(p), gl.LINK_STATUS, &status)
	return status != gl.FALSE
}

func (d *Device) ProgramInfoLog(p graphics.Program) string {
	var logLength int32
	gl.GetProgramiv(uint32(p), gl.INFO_LOG_LENGTH, &logLength)
	if logLength == 0 {
		return ""
	}
	logText := strings.Repeat("\x00", int(logLength+1))
	gl.GetProgramInfoLog(uint32(p), logLength, nil, gl.Str(logText))
	return strings.TrimRight(logText, "\x00")
}

func (d *Device) UseProgram(p graphics.Program) {
	gl.UseProgram(uint32(p))
}

func (d *Device) DeleteProgram(p graphics.Program) {
	gl.DeleteProgram(uint32(p))
}

func (d *Device) ActiveAttributes(p graphics.Program) int {
	var n int32
	gl.GetProgramiv(uint32(p), gl.ACTIVE_ATTRIBUTES, &n)
	return int(n)
}

func (d *Device) ActiveAttribute(p graphics.Program, index int) graphics.VariableInfo {
	var maxLen int32
	gl.GetProgramiv(uint32(p), gl.ACTIVE_ATTRIBUTE_MAX_LENGTH, &maxLen)
	return activeInfo(maxLen, func(bufSize int32, length, size *int32, xtype *uint32, name *uint8) {
		gl.GetActiveAttrib(uint32(p), uint32(index), bufSize, length, size, xtype, name)
	})
}

func (d *Device) ActiveUniforms(p graphics.Program) int {
	var n int32
	gl.GetProgramiv(uint32(p), gl.ACTIVE_UNIFORMS, &n)
	return int(n)
}

func (d *Device) ActiveUniform(p graphics.Program, index int) graphics.VariableInfo {
	var maxLen int32
	gl.GetProgramiv(uint32(p), gl.ACTIVE_UNIFORM_MAX_LENGTH, &maxLen)
	return activeInfo(maxLen, func(bufSize int32, length, size *int32, xtype *uint32, name *uint8) {
		gl.GetActiveUniform(uint32(p), uint32(index), bufSize, length, size, xtype, name)
	})
}

func activeInfo(maxLen int32, query func(bufSize int32, length, size *int32, xtype *uint32, name *uint8)) graphics.VariableInfo {
	buf := make([]uint8, maxLen+1)
	var length, size int32
	var xtype uint32
	query(int32(len(buf)), &length, &size, &xtype, &buf[0])
	return graphics.VariableInfo{
		Name: string(buf[:length]),
		Type: xtype,
		Size: size,
	}
}

func (d *Device) AttribLocation(p graphics.Program, name string) int32 {
	return gl.GetAttribLocation(uint32(p), gl.Str(name+"\x00"))
}

func (d *Device) UniformLocation(p graphics.Program, name string) graphics.Uniform {
	return graphics.Uniform(gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00")))
}

func (d *Device) CreateBuffer() graphics.Buffer {
	var b uint32
	gl.GenBuffers(1, &b)
	return graphics.Buffer(b)
}

func (d *Device) BindBuffer(b graphics.Buffer) {
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(b))
}

func (d *Device) BufferData(b graphics.Buffer, data []float32) {
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(b))
	gl.BufferData(gl.ARRAY_BUFFER, len(data)*4, gl.Ptr(data), gl.STATIC_DRAW)
}

func (d *Device) DeleteBuffer(b graphics.Buffer) {
	id := uint32(b)
	gl.DeleteBuffers(1, &id)
}

func (d *Device) VertexAttribPointer(location int32, size int32) {
	gl.VertexAttribPointerWithOffset(uint32(location), size, gl.FLOAT, false, size*4, 0)
}

func (d *Device) EnableVertexAttribArray(location int32) {
	gl.EnableVertexAttribArray(uint32(location))
}

func (d *Device) CreateTexture() graphics.Texture {
	var t uint32
	gl.GenTextures(1, &t)
	return graphics.Texture(t)
}

func (d *Device) BindTexture(unit int, t graphics.Texture) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
}

func (d *Device) TexImage2D(t graphics.Texture, img *image.NRGBA) {
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
	// rows are tightly packed RGBA8
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	size := img.Rect.Size()
	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA8,
		int32(size.X),
		int32(size.Y),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		gl.Ptr(img.Pix),
	)
}

func (d *Device) TexParameters(t graphics.Texture, wrap graphics.Wrap, minFilter, magFilter graphics.Filter) {
	gl.BindTexture(gl.TEXTURE_2D, uint32(t))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, wrapMode(wrap))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, wrapMode(wrap))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filterMode(minFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filterMode(magFilter))
}

func (d *Device) DeleteTexture(t graphics.Texture) {
	id := uint32(t)
	gl.DeleteTextures(1, &id)
}

func (d *Device) Uniform1i(u graphics.Uniform, v int32) {
	gl.Uniform1i(int32(u), v)
}

func (d *Device) ClearColor(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
}

func (d *Device) DepthTest(fn graphics.DepthFunc) {
	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(depthFunc(fn))
}

func (d *Device) Clear(mask graphics.ClearMask) {
	var bits uint32
	if mask&graphics.ColorBuffer != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&graphics.DepthBuffer != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	gl.Clear(bits)
}

func (d *Device) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (d *Device) DrawTriangleStrip(first, count int) {
	gl.DrawArrays(gl.TRIANGLE_STRIP, int32(first), int32(count))
}

// ReadPixels reads back the bound read framebuffer. Rows are returned top
// first.
func (d *Device) ReadPixels(x, y, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))

	// GL rows start at the bottom
	rowSize := width * 4
	tmp := make([]byte, rowSize)
	for top, bottom := 0, height-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := img.Pix[top*img.Stride : top*img.Stride+rowSize]
		b := img.Pix[bottom*img.Stride : bottom*img.Stride+rowSize]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
	return img
}

// Helper to convert a wrap mode to its OpenGL constant.
func wrapMode(wrap graphics.Wrap) int32 {
	switch wrap {
	case graphics.Repeat:
		return gl.REPEAT
	default:
		return gl.CLAMP_TO_EDGE
	}
}

// Helper to convert a filter to its OpenGL constant.
func filterMode(filter graphics.Filter) int32 {
	switch filter {
	case graphics.Linear:
		return gl.LINEAR
	default:
		return gl.NEAREST
	}
}

func depthFunc(fn graphics.DepthFunc) uint32 {
	switch fn {
	case graphics.LessEqual:
		return gl.LEQUAL
	case graphics.Always:
		return gl.ALWAYS
	default:
		return gl.LESS
	}
}

var _ graphics.Device = (*Device)(nil)
