package renderer

import (
	"fmt"
	"strings"

	"github.com/richinsley/goannotate/graphics"
	"github.com/richinsley/goannotate/shader"
)

// CompiledShader is a compiled stage waiting to be linked into exactly one
// program.
type CompiledShader struct {
	Stage  graphics.ShaderStage
	Handle graphics.Shader
	// names maps translated identifiers back to declared ones
	names map[string]string
}

// Compile turns source text into a compiled shader handle.
func Compile(dev graphics.Device, stage graphics.ShaderStage, source string) (*CompiledShader, error) {
	handle := dev.CreateShader(stage)
	if handle == 0 {
		return nil, &AllocationError{Object: stage.String() + " shader"}
	}
	dev.ShaderSource(handle, source)
	dev.CompileShader(handle)
	if !dev.ShaderCompiled(handle) {
		logText := dev.ShaderInfoLog(handle)
		dev.DeleteShader(handle)
		return nil, &CompileError{Stage: stage, Log: logText}
	}
	return &CompiledShader{Stage: stage, Handle: handle}, nil
}

// Program is a linked program together with its reflection tables.
type Program struct {
	dev        graphics.Device
	Handle     graphics.Program
	Attributes map[string]int32
	Uniforms   map[string]graphics.Uniform
	names      map[string]string
}

// Link attaches every shader, links, and returns the program. The shaders
// are consumed whether or not linking succeeds.
func Link(dev graphics.Device, shaders []*CompiledShader) (*Program, error) {
	defer func() {
		for _, s := range shaders {
			dev.DeleteShader(s.Handle)
		}
	}()

	handle := dev.CreateProgram()
	if handle == 0 {
		return nil, &AllocationError{Object: "program"}
	}
	names := make(map[string]string)
	for _, s := range shaders {
		dev.AttachShader(handle, s.Handle)
		for emitted, declared := range s.names {
			names[emitted] = declared
		}
	}
	dev.LinkProgram(handle)
	if !dev.ProgramLinked(handle) {
		logText := dev.ProgramInfoLog(handle)
		dev.DeleteProgram(handle)
		return nil, &LinkError{Log: logText}
	}
	return &Program{dev: dev, Handle: handle, names: names}, nil
}

// NewProgram compiles and links the sources, then builds the reflection
// tables.
func NewProgram(dev graphics.Device, sources []shader.Source) (*Program, error) {
	compiled := make([]*CompiledShader, 0, len(sources))
	for _, src := range sources {
		cs, err := Compile(dev, src.Stage, src.Code)
		if err != nil {
			for _, c := range compiled {
				dev.DeleteShader(c.Handle)
			}
			return nil, err
		}
		cs.names = src.Names
		compiled = append(compiled, cs)
	}

	p, err := Link(dev, compiled)
	if err != nil {
		return nil, err
	}
	if err := p.Reflect(); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

// Reflect enumerates the active attributes and uniforms and rebuilds the
// name to location tables. Enumeration order carries no meaning.
func (p *Program) Reflect() error {
	attributes := make(map[string]int32)
	for i, n := 0, p.dev.ActiveAttributes(p.Handle); i < n; i++ {
		info := p.dev.ActiveAttribute(p.Handle, i)
		// built-in inputs have no binding location
		if strings.HasPrefix(info.Name, "gl_") {
			continue
		}
		loc := p.dev.AttribLocation(p.Handle, info.Name)
		if loc == graphics.NoAttribute {
			return &ReflectionError{Kind: "attribute", Name: info.Name}
		}
		attributes[p.declared(info.Name)] = loc
	}

	uniforms := make(map[string]graphics.Uniform)
	for i, n := 0, p.dev.ActiveUniforms(p.Handle); i < n; i++ {
		info := p.dev.ActiveUniform(p.Handle, i)
		loc := p.dev.UniformLocation(p.Handle, info.Name)
		if loc == graphics.NoUniform {
			return &ReflectionError{Kind: "uniform", Name: info.Name}
		}
		uniforms[p.declared(info.Name)] = loc
	}

	p.Attributes = attributes
	p.Uniforms = uniforms
	return nil
}

// declared maps a name reported by the device to the name used in source.
func (p *Program) declared(name string) string {
	if d, ok := p.names[name]; ok {
		return d
	}
	if base, ok := strings.CutSuffix(name, "[0]"); ok {
		if d, ok := p.names[base]; ok {
			return d + "[0]"
		}
	}
	return name
}

// Attribute returns the location of a required attribute.
func (p *Program) Attribute(name string) (int32, error) {
	loc, ok := p.Attributes[name]
	if !ok {
		return graphics.NoAttribute, &MissingVariableError{Kind: "attribute", Name: name}
	}
	return loc, nil
}

// Uniform returns the location of a required uniform.
func (p *Program) Uniform(name string) (graphics.Uniform, error) {
	loc, ok := p.Uniforms[name]
	if !ok {
		return graphics.NoUniform, &MissingVariableError{Kind: "uniform", Name: name}
	}
	return loc, nil
}

// Require fails on the first name the program does not expose.
func (p *Program) Require(attributes, uniforms []string) error {
	for _, name := range attributes {
		if _, err := p.Attribute(name); err != nil {
			return err
		}
	}
	for _, name := range uniforms {
		if _, err := p.Uniform(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *Program) Use() {
	p.dev.UseProgram(p.Handle)
}

// Release deletes the program object.
func (p *Program) Release() {
	if p.Handle != 0 {
		p.dev.DeleteProgram(p.Handle)
		p.Handle = 0
	}
}

func (p *Program) String() string {
	return fmt.Sprintf("program %d (%d attributes, %d uniforms)", p.Handle, len(p.Attributes), len(p.Uniforms))
}
