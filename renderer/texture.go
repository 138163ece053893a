package renderer

import (
	"errors"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"
	"github.com/richinsley/goannotate/graphics"
)

// Texture is an uploaded image. Sampling is fixed to clamp-to-edge with
// nearest filtering so overlays stay crisp.
type Texture struct {
	Handle graphics.Texture
	Width  int
	Height int
}

// TextureManager owns the single live image texture.
type TextureManager struct {
	dev     graphics.Device
	current *Texture
	logger  *slog.Logger
}

func NewTextureManager(dev graphics.Device, logger *slog.Logger) *TextureManager {
	return &TextureManager{dev: dev, logger: logger}
}

// CreateDefault builds the 1x1 fully transparent placeholder.
func (m *TextureManager) CreateDefault() (*Texture, error) {
	return m.upload(image.NewNRGBA(image.Rect(0, 0, 1, 1)))
}

// CreateFromImage uploads a decoded image into a new texture. The current
// texture is not touched.
func (m *TextureManager) CreateFromImage(img image.Image) (*Texture, error) {
	if img == nil {
		return nil, errors.New("no image to upload")
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("image is empty")
	}
	// GL expects the first row at the bottom.
	return m.upload(imaging.FlipV(img))
}

func (m *TextureManager) upload(pix *image.NRGBA) (*Texture, error) {
	handle := m.dev.CreateTexture()
	if handle == 0 {
		return nil, &AllocationError{Object: "texture"}
	}
	m.dev.TexImage2D(handle, pix)
	m.dev.TexParameters(handle, graphics.ClampToEdge, graphics.Nearest, graphics.Nearest)
	size := pix.Rect.Size()
	return &Texture{Handle: handle, Width: size.X, Height: size.Y}, nil
}

// Replace destroys the current texture and makes next the live one. Callers
// only replace with a texture that was already built successfully.
func (m *TextureManager) Replace(next *Texture) {
	if m.current != nil {
		m.dev.DeleteTexture(m.current.Handle)
	}
	m.current = next
}

// SetImage swaps in a texture built from img. A failed upload is logged and
// leaves the current texture in place.
func (m *TextureManager) SetImage(img image.Image) bool {
	next, err := m.CreateFromImage(img)
	if err != nil {
		m.logger.Warn("keeping current texture", "error", err)
		return false
	}
	m.Replace(next)
	m.logger.Debug("texture replaced", "width", next.Width, "height", next.Height)
	return true
}

// Current returns the live texture, or nil before the first one is set.
func (m *TextureManager) Current() *Texture {
	return m.current
}

// Release destroys the live texture.
func (m *TextureManager) Release() {
	m.Replace(nil)
}
