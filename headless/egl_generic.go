//go:build !linux

package headless

import (
	"fmt"

	"github.com/richinsley/goannotate/graphics"
)

func NewHeadless(width, height int) (graphics.Context, error) {
	return nil, fmt.Errorf("%dx%d pbuffer: %w", width, height, ErrUnsupported)
}
