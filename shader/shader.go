package shader

import (
	"fmt"

	"github.com/richinsley/goannotate/graphics"
	"github.com/richinsley/goannotate/translator"
)

// Interface names shared by every embedded program.
const (
	PositionAttribute = "a_position"
	TextureUniform    = "u_texture"
)

// ──────────────────────────────────── GLSL ES ────────────────────────────────────

const vertexShaderSource = `#version 300 es
in vec2 a_position;
void main() {
    gl_Position = vec4(a_position, 0.0, 1.0);
}
`

const redFragmentShaderSource = `#version 300 es
precision mediump float;
out vec4 fragColor;
void main() {
    fragColor = vec4(1.0, 0.0, 0.0, 1.0);
}
`

// Samples the exact center of the bound image; with nearest filtering a 1x1
// image fills the quad with its single texel.
const textureFragmentShaderSource = `#version 300 es
precision mediump float;
uniform sampler2D u_texture;
out vec4 fragColor;
void main() {
    fragColor = texture(u_texture, vec2(0.5, 0.5));
}
`

// Kind selects one of the embedded programs.
type Kind int

const (
	TextureProgram Kind = iota
	RedProgram
)

func (k Kind) String() string {
	switch k {
	case RedProgram:
		return "red"
	default:
		return "texture"
	}
}

// ParseKind maps a program name to its Kind.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "", "texture":
		return TextureProgram, nil
	case "red":
		return RedProgram, nil
	default:
		return 0, fmt.Errorf("unknown program %q", name)
	}
}

// Source is a single shader stage ready to compile. Names carries the
// emitted-to-declared identifier mapping when the code was translated.
type Source struct {
	Stage graphics.ShaderStage
	Code  string
	Names map[string]string
}

// Sources returns the GLSL ES sources of the program.
func Sources(kind Kind) []Source {
	fragment := textureFragmentShaderSource
	if kind == RedProgram {
		fragment = redFragmentShaderSource
	}
	return []Source{
		{Stage: graphics.VertexStage, Code: vertexShaderSource},
		{Stage: graphics.FragmentStage, Code: fragment},
	}
}

// Required lists the variables the render loop looks up after reflection.
func Required(kind Kind) (attributes, uniforms []string) {
	if kind == RedProgram {
		return []string{PositionAttribute}, nil
	}
	return []string{PositionAttribute}, []string{TextureUniform}
}

// ForContext returns the program's sources in the dialect the context
// compiles. GLES contexts take the sources as is; desktop core contexts get
// translated GLSL 4.10 when translate is set.
func ForContext(kind Kind, isGLES, translate bool) ([]Source, error) {
	srcs := Sources(kind)
	if isGLES || !translate {
		return srcs, nil
	}
	for i, src := range srcs {
		res, err := translator.ToDesktop(src.Stage, src.Code)
		if err != nil {
			return nil, err
		}
		srcs[i].Code = res.Code
		srcs[i].Names = res.Names
	}
	return srcs, nil
}
