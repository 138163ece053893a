package renderer

import (
	"errors"
	"fmt"

	"github.com/richinsley/goannotate/graphics"
)

// ErrNoGraphicsContext is returned when a surface cannot yield a device.
var ErrNoGraphicsContext = errors.New("no graphics context")

// CompileError carries the compiler's diagnostic log.
type CompileError struct {
	Stage graphics.ShaderStage
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("failed to compile %s shader: %s", e.Stage, e.Log)
}

// LinkError carries the linker's diagnostic log.
type LinkError struct {
	Log string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("failed to link program: %s", e.Log)
}

// MissingVariableError reports a required attribute or uniform that the
// linked program does not expose.
type MissingVariableError struct {
	Kind string
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("program has no active %s %q", e.Kind, e.Name)
}

// ReflectionError reports a variable the program listed as active but whose
// location could not be resolved.
type ReflectionError struct {
	Kind string
	Name string
}

func (e *ReflectionError) Error() string {
	return fmt.Sprintf("active %s %q has no location", e.Kind, e.Name)
}

// AllocationError reports a GL object the device refused to create.
type AllocationError struct {
	Object string
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("failed to allocate %s", e.Object)
}
