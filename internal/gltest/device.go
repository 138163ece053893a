// Package gltest provides an in-memory graphics.Device and graphics.Context
// for tests. The device emulates compile and link status, active variable
// reflection parsed from GLSL declarations, object lifetimes and texture
// contents.
package gltest

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/richinsley/goannotate/graphics"
)

var (
	inDecl      = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?in\s+(?:(?:highp|mediump|lowp)\s+)?\w+\s+(\w+)\s*;`)
	uniformDecl = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?uniform\s+(?:(?:highp|mediump|lowp)\s+)?\w+\s+(\w+)\s*(\[\s*\d+\s*\])?\s*;`)
)

type shaderObj struct {
	stage    graphics.ShaderStage
	source   string
	compiled bool
	log      string
}

type programObj struct {
	shaders    []graphics.Shader
	linked     bool
	log        string
	attributes []string
	uniforms   []string
	fragment   string
}

// TextureObj is the recorded state of a texture.
type TextureObj struct {
	Pixels    *image.NRGBA
	Wrap      graphics.Wrap
	MinFilter graphics.Filter
	MagFilter graphics.Filter
}

// Draw records one draw call.
type Draw struct {
	Program  graphics.Program
	Buffer   graphics.Buffer
	Texture  graphics.Texture
	Position int32
	Sampler  int32
	First    int
	Count    int
}

// Device is the fake graphics.Device.
type Device struct {
	next uint32

	shaders  map[graphics.Shader]*shaderObj
	programs map[graphics.Program]*programObj
	buffers  map[graphics.Buffer][]float32
	textures map[graphics.Texture]*TextureObj

	// Fail* make the matching Create* call return no object.
	FailShaders  bool
	FailPrograms bool
	FailBuffers  bool
	FailTextures bool
	// HiddenUniforms lists uniforms whose location lookup reports not found.
	HiddenUniforms map[string]bool

	current      graphics.Program
	boundBuffer  graphics.Buffer
	boundTexture map[int]graphics.Texture
	attribBuffer map[int32]graphics.Buffer
	enabled      map[int32]bool
	uniformInts  map[graphics.Uniform]int32

	Viewports []image.Rectangle
	Draws     []Draw
	Clears    int
	// Sources holds every shader source handed to ShaderSource, in order.
	Sources []string

	// Background is the clear color; DepthEnabled and Depth the depth state.
	Background   color.NRGBA
	DepthEnabled bool
	Depth        graphics.DepthFunc
}

func NewDevice() *Device {
	return &Device{
		shaders:        make(map[graphics.Shader]*shaderObj),
		programs:       make(map[graphics.Program]*programObj),
		buffers:        make(map[graphics.Buffer][]float32),
		textures:       make(map[graphics.Texture]*TextureObj),
		HiddenUniforms: make(map[string]bool),
		boundTexture:   make(map[int]graphics.Texture),
		attribBuffer:   make(map[int32]graphics.Buffer),
		enabled:        make(map[int32]bool),
		uniformInts:    make(map[graphics.Uniform]int32),
	}
}

func (d *Device) id() uint32 {
	d.next++
	return d.next
}

func (d *Device) CreateShader(stage graphics.ShaderStage) graphics.Shader {
	if d.FailShaders {
		return 0
	}
	s := graphics.Shader(d.id())
	d.shaders[s] = &shaderObj{stage: stage}
	return s
}

func (d *Device) ShaderSource(s graphics.Shader, source string) {
	d.Sources = append(d.Sources, source)
	if obj, ok := d.shaders[s]; ok {
		obj.source = source
	}
}

func (d *Device) CompileShader(s graphics.Shader) {
	obj, ok := d.shaders[s]
	if !ok {
		return
	}
	switch {
	case strings.Contains(obj.source, "#error"):
		obj.log = "ERROR: 0:1: '#error' : user error"
	case !strings.Contains(obj.source, "void main"):
		obj.log = "ERROR: 0:1: missing main function"
	default:
		obj.compiled = true
		obj.log = ""
	}
}

func (d *Device) ShaderCompiled(s graphics.Shader) bool {
	obj, ok := d.shaders[s]
	return ok && obj.compiled
}

func (d *Device) ShaderInfoLog(s graphics.Shader) string {
	if obj, ok := d.shaders[s]; ok {
		return obj.log
	}
	return ""
}

func (d *Device) DeleteShader(s graphics.Shader) {
	delete(d.shaders, s)
}

func (d *Device) CreateProgram() graphics.Program {
	if d.FailPrograms {
		return 0
	}
	p := graphics.Program(d.id())
	d.programs[p] = &programObj{}
	return p
}

func (d *Device) AttachShader(p graphics.Program, s graphics.Shader) {
	if obj, ok := d.programs[p]; ok {
		obj.shaders = append(obj.shaders, s)
	}
}

func (d *Device) LinkProgram(p graphics.Program) {
	obj, ok := d.programs[p]
	if !ok {
		return
	}
	var vertex, fragment *shaderObj
	for _, s := range obj.shaders {
		so, ok := d.shaders[s]
		if !ok || !so.compiled {
			obj.log = fmt.Sprintf("ERROR: shader %d is not compiled", s)
			return
		}
		switch so.stage {
		case graphics.VertexStage:
			vertex = so
		case graphics.FragmentStage:
			fragment = so
		}
	}
	if vertex == nil || fragment == nil {
		obj.log = "ERROR: program needs a vertex and a fragment shader"
		return
	}

	uniforms := map[string]bool{}
	for _, so := range []*shaderObj{vertex, fragment} {
		for _, m := range uniformDecl.FindAllStringSubmatch(so.source, -1) {
			name := m[1]
			if m[2] != "" {
				name += "[0]"
			}
			uniforms[name] = true
		}
	}
	var attributes []string
	for _, m := range inDecl.FindAllStringSubmatch(vertex.source, -1) {
		attributes = append(attributes, m[1])
	}
	obj.attributes = reverseSorted(attributes)
	obj.uniforms = reverseSorted(keys(uniforms))
	obj.fragment = fragment.source
	obj.linked = true
	obj.log = ""
}

// drivers report in their own order; reverse-sorted keeps that visible
func reverseSorted(names []string) []string {
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (d *Device) ProgramLinked(p graphics.Program) bool {
	obj, ok := d.programs[p]
	return ok && obj.linked
}

func (d *Device) ProgramInfoLog(p graphics.Program) string {
	if obj, ok := d.programs[p]; ok {
		return obj.log
	}
	return ""
}

func (d *Device) UseProgram(p graphics.Program) {
	d.current = p
}

func (d *Device) DeleteProgram(p graphics.Program) {
	delete(d.programs, p)
	if d.current == p {
		d.current = 0
	}
}

func (d *Device) ActiveAttributes(p graphics.Program) int {
	if obj, ok := d.programs[p]; ok {
		return len(obj.attributes)
	}
	return 0
}

func (d *Device) ActiveAttribute(p graphics.Program, index int) graphics.VariableInfo {
	return graphics.VariableInfo{Name: d.programs[p].attributes[index], Size: 1}
}

func (d *Device) ActiveUniforms(p graphics.Program) int {
	if obj, ok := d.programs[p]; ok {
		return len(obj.uniforms)
	}
	return 0
}

func (d *Device) ActiveUniform(p graphics.Program, index int) graphics.VariableInfo {
	return graphics.VariableInfo{Name: d.programs[p].uniforms[index], Size: 1}
}

// Locations are positions in the sorted name list.
func (d *Device) AttribLocation(p graphics.Program, name string) int32 {
	obj, ok := d.programs[p]
	if !ok {
		return graphics.NoAttribute
	}
	sorted := append([]string(nil), obj.attributes...)
	sort.Strings(sorted)
	for i, n := range sorted {
		if n == name {
			return int32(i)
		}
	}
	return graphics.NoAttribute
}

func (d *Device) UniformLocation(p graphics.Program, name string) graphics.Uniform {
	obj, ok := d.programs[p]
	if !ok || d.HiddenUniforms[name] {
		return graphics.NoUniform
	}
	sorted := append([]string(nil), obj.uniforms...)
	sort.Strings(sorted)
	for i, n := range sorted {
		if n == name {
			return graphics.Uniform(i)
		}
	}
	return graphics.NoUniform
}

func (d *Device) CreateBuffer() graphics.Buffer {
	if d.FailBuffers {
		return 0
	}
	b := graphics.Buffer(d.id())
	d.buffers[b] = nil
	return b
}

func (d *Device) BindBuffer(b graphics.Buffer) {
	d.boundBuffer = b
}

func (d *Device) BufferData(b graphics.Buffer, data []float32) {
	if _, ok := d.buffers[b]; ok {
		d.buffers[b] = append([]float32(nil), data...)
	}
}

func (d *Device) DeleteBuffer(b graphics.Buffer) {
	delete(d.buffers, b)
}

func (d *Device) VertexAttribPointer(location int32, size int32) {
	d.attribBuffer[location] = d.boundBuffer
}

func (d *Device) EnableVertexAttribArray(location int32) {
	d.enabled[location] = true
}

func (d *Device) CreateTexture() graphics.Texture {
	if d.FailTextures {
		return 0
	}
	t := graphics.Texture(d.id())
	d.textures[t] = &TextureObj{}
	return t
}

func (d *Device) BindTexture(unit int, t graphics.Texture) {
	d.boundTexture[unit] = t
}

func (d *Device) TexImage2D(t graphics.Texture, img *image.NRGBA) {
	if obj, ok := d.textures[t]; ok {
		cp := image.NewNRGBA(img.Rect)
		copy(cp.Pix, img.Pix)
		obj.Pixels = cp
	}
}

func (d *Device) TexParameters(t graphics.Texture, wrap graphics.Wrap, minFilter, magFilter graphics.Filter) {
	if obj, ok := d.textures[t]; ok {
		obj.Wrap = wrap
		obj.MinFilter = minFilter
		obj.MagFilter = magFilter
	}
}

func (d *Device) DeleteTexture(t graphics.Texture) {
	delete(d.textures, t)
}

func (d *Device) Uniform1i(u graphics.Uniform, v int32) {
	d.uniformInts[u] = v
}

func (d *Device) ClearColor(r, g, b, a float32) {
	d.Background = color.NRGBA{R: unit(r), G: unit(g), B: unit(b), A: unit(a)}
}

func unit(v float32) uint8 {
	return uint8(math.Round(float64(max(0, min(1, v))) * 255))
}

func (d *Device) DepthTest(fn graphics.DepthFunc) {
	d.DepthEnabled = true
	d.Depth = fn
}

func (d *Device) Clear(mask graphics.ClearMask) {
	d.Clears++
}

func (d *Device) Viewport(x, y, width, height int) {
	d.Viewports = append(d.Viewports, image.Rect(x, y, x+width, y+height))
}

func (d *Device) DrawTriangleStrip(first, count int) {
	draw := Draw{
		Program:  d.current,
		Texture:  d.boundTexture[0],
		Position: graphics.NoAttribute,
		Sampler:  -1,
		First:    first,
		Count:    count,
	}
	for loc, on := range d.enabled {
		if on {
			draw.Position = loc
			draw.Buffer = d.attribBuffer[loc]
		}
	}
	if len(d.uniformInts) > 0 {
		for _, v := range d.uniformInts {
			draw.Sampler = v
		}
	}
	d.Draws = append(d.Draws, draw)
}

// ReadPixels fills the region with the clear color and, once something was
// drawn, the quad's inset area with the color the last draw shaded.
func (d *Device) ReadPixels(x, y, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	fill(img, img.Rect, d.Background)
	if len(d.Draws) == 0 {
		return img
	}
	// the quad spans clip space ±0.9, which leaves a 5% margin on each side
	mx, my := width/20, height/20
	fill(img, image.Rect(mx, my, width-mx, height-my), d.Shade(d.Draws[len(d.Draws)-1]))
	return img
}

func fill(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	for py := r.Min.Y; py < r.Max.Y; py++ {
		for px := r.Min.X; px < r.Max.X; px++ {
			img.SetNRGBA(px, py, c)
		}
	}
}

// Shade evaluates the two embedded fragment programs at the quad's center:
// a program with a sampler returns the bound texture's center texel, any
// other program returns opaque red.
func (d *Device) Shade(draw Draw) color.NRGBA {
	prog, ok := d.programs[draw.Program]
	if !ok {
		return color.NRGBA{}
	}
	if len(prog.uniforms) == 0 {
		return color.NRGBA{R: 255, A: 255}
	}
	tex, ok := d.textures[draw.Texture]
	if !ok || tex.Pixels == nil {
		return color.NRGBA{}
	}
	b := tex.Pixels.Rect
	return tex.Pixels.NRGBAAt(b.Min.X+b.Dx()/2, b.Min.Y+b.Dy()/2)
}

// Texture returns the recorded state of a live texture.
func (d *Device) Texture(t graphics.Texture) (*TextureObj, bool) {
	obj, ok := d.textures[t]
	return obj, ok
}

// Buffer returns the contents of a live buffer.
func (d *Device) Buffer(b graphics.Buffer) ([]float32, bool) {
	data, ok := d.buffers[b]
	return data, ok
}

func (d *Device) LiveShaders() int  { return len(d.shaders) }
func (d *Device) LivePrograms() int { return len(d.programs) }
func (d *Device) LiveBuffers() int  { return len(d.buffers) }
func (d *Device) LiveTextures() int { return len(d.textures) }

var _ graphics.Device = (*Device)(nil)
