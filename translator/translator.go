// Package translator converts the embedded GLSL ES 3.00 sources into the
// dialect of the current context.
package translator

import (
	"context"
	"fmt"
	"sync"

	"github.com/richinsley/goannotate/graphics"
	gst "github.com/richinsley/goshadertranslator"
)

var (
	once       sync.Once
	translator *gst.ShaderTranslator
	initErr    error
)

func get() (*gst.ShaderTranslator, error) {
	once.Do(func() {
		translator, initErr = gst.NewShaderTranslator(context.Background())
	})
	return translator, initErr
}

// Result is a translated shader. Names maps the translator's emitted
// identifiers back to the names declared in the source.
type Result struct {
	Code  string
	Names map[string]string
}

// ToDesktop translates a WebGL2 (GLSL ES 3.00) shader into GLSL 4.10.
func ToDesktop(stage graphics.ShaderStage, source string) (*Result, error) {
	t, err := get()
	if err != nil {
		return nil, fmt.Errorf("failed to start shader translator: %w", err)
	}
	out, err := t.TranslateShader(source, stage.String(), gst.ShaderSpecWebGL2, gst.OutputFormatGLSL410)
	if err != nil {
		return nil, fmt.Errorf("%s shader translation failed: %w", stage, err)
	}

	res := &Result{
		Code:  out.Code,
		Names: make(map[string]string, len(out.Variables)),
	}
	for name, v := range out.Variables {
		if v.MappedName != "" && v.MappedName != name {
			res.Names[v.MappedName] = name
		}
	}
	return res, nil
}
