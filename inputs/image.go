// inputs/image.go
package inputs

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	// Extra decoders so image.Decode can handle them.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// NotImageError is returned for inputs whose media type is not an image.
type NotImageError struct {
	Path      string
	MediaType string
}

func (e *NotImageError) Error() string {
	return fmt.Sprintf("%s is %q, not an image", e.Path, e.MediaType)
}

// IsImage reports whether a media type names an image.
func IsImage(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}

// MediaType sniffs the file's leading bytes and falls back to its extension
// when the content is not recognized.
func MediaType(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	sniffed := http.DetectContentType(head[:n])
	if sniffed != "application/octet-stream" && !strings.HasPrefix(sniffed, "text/plain") {
		return sniffed, nil
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		return byExt, nil
	}
	return sniffed, nil
}

// Decoder turns a dropped file into a drawable image.
type Decoder interface {
	Decode(path string) (image.Image, error)
}

// FileDecoder decodes image files with the registered Go codecs and, when
// FFmpegPath is set, transcodes anything else through ffmpeg.
type FileDecoder struct {
	FFmpegPath string
	Logger     *slog.Logger
}

// Decode rejects non-image media types before reading pixel data.
func (d *FileDecoder) Decode(path string) (image.Image, error) {
	mediaType, err := MediaType(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	if !IsImage(mediaType) {
		return nil, &NotImageError{Path: path, MediaType: mediaType}
	}

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	if d.FFmpegPath == "" || !errors.Is(err, image.ErrFormat) {
		return nil, fmt.Errorf("could not decode %s: %w", path, err)
	}

	d.logger().Info("transcoding through ffmpeg", "path", path, "type", mediaType)
	return transcode(d.FFmpegPath, path)
}

func (d *FileDecoder) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}

// transcode asks ffmpeg for the first frame of path as PNG.
func transcode(ffmpegPath, path string) (image.Image, error) {
	out := &bytes.Buffer{}
	cmd := ffmpeg.Input(path).
		Output("pipe:", ffmpeg.KwArgs{
			"frames:v": 1,
			"f":        "image2",
			"c:v":      "png",
		}).
		WithOutput(out).
		SetFfmpegPath(ffmpegPath)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg could not transcode %s: %w", path, err)
	}
	img, err := imaging.Decode(out)
	if err != nil {
		return nil, fmt.Errorf("could not decode ffmpeg output for %s: %w", path, err)
	}
	return img, nil
}
