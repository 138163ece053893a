package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/disintegration/imaging"
	glfw "github.com/go-gl/glfw/v3.3/glfw"
	"github.com/richinsley/goannotate/canvas"
	"github.com/richinsley/goannotate/glfwcontext"
	"github.com/richinsley/goannotate/graphics"
	"github.com/richinsley/goannotate/headless"
	"github.com/richinsley/goannotate/inputs"
	options "github.com/richinsley/goannotate/options"
	"github.com/richinsley/goannotate/renderer"
	"github.com/richinsley/goannotate/shader"
)

func init() {
	runtime.LockOSThread()
}

func newConfig(opts *options.CanvasOptions, kind shader.Kind) canvas.Config {
	level := slog.LevelInfo
	if *opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return canvas.Config{
		Program:      kind,
		PollInterval: *opts.Poll,
		NoTranslate:  !*opts.Translate,
		Decoder:      &inputs.FileDecoder{FFmpegPath: *opts.FFmpeg, Logger: logger},
		Logger:       logger,
	}
}

func runWindow(ctx context.Context, opts *options.CanvasOptions, cfg canvas.Config) error {
	if err := glfwcontext.InitGraphics(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	defer glfwcontext.TerminateGraphics()

	surface, err := glfwcontext.New(opts)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}
	defer surface.Shutdown()

	c, err := canvas.New(surface, cfg)
	if err != nil {
		return err
	}
	defer c.Stop()
	surface.RegisterKeyCallback(glfw.KeyR, c.Reset)

	if *opts.Image != "" {
		c.Open(ctx, *opts.Image)
	}

	log.Println("Starting interactive render loop, drop an image onto the window (R clears it)...")
	if err := c.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runHeadless(ctx context.Context, opts *options.CanvasOptions, cfg canvas.Config) error {
	var surface graphics.Context
	surface, err := headless.NewHeadless(*opts.Width, *opts.Height)
	if err != nil {
		return fmt.Errorf("failed to create headless context: %w", err)
	}
	defer surface.Shutdown()

	c, err := canvas.New(surface, cfg)
	if err != nil {
		return err
	}
	defer c.Stop()

	if *opts.Image != "" {
		c.Open(ctx, *opts.Image)
		c.Settle()
	}

	for i := 0; i < *opts.Frames; i++ {
		if !c.Frame() {
			break
		}
	}
	log.Printf("Rendered %d frames", c.Frames())

	if *opts.Snapshot == "" {
		return nil
	}
	if err := imaging.Save(c.Snapshot(), *opts.Snapshot); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	log.Printf("Successfully wrote %s", *opts.Snapshot)
	return nil
}

func main() {
	opts := &options.CanvasOptions{
		Help:      flag.Bool("help", false, "Show help message"),
		Width:     flag.Int("width", 800, "Width of the canvas"),
		Height:    flag.Int("height", 600, "Height of the canvas"),
		Program:   flag.String("program", "texture", "Program to draw: texture or red"),
		Image:     flag.String("image", "", "Image file or http(s) URL to show at startup"),
		Poll:      flag.Duration("poll", renderer.DefaultPollInterval, "Surface size polling period"),
		Translate: flag.Bool("translate", true, "Translate GLSL ES shaders for desktop OpenGL"),
		FFmpeg:    flag.String("ffmpeg", "", "Path to ffmpeg for decoding formats Go cannot read"),
		Verbose:   flag.Bool("verbose", false, "Enable debug logging"),
		Headless:  flag.Bool("headless", false, "Render offscreen with EGL instead of opening a window"),
		Frames:    flag.Int("frames", 1, "Frames to render in headless mode"),
		Snapshot:  flag.String("snapshot", "", "PNG file to write the last headless frame to"),
	}
	flag.Parse()

	if *opts.Help {
		fmt.Println("Image annotation canvas")
		flag.PrintDefaults()
		return
	}

	kind, err := shader.ParseKind(*opts.Program)
	if err != nil {
		log.Fatalf("Invalid -program: %v", err)
	}
	cfg := newConfig(opts, kind)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *opts.Headless {
		err = runHeadless(ctx, opts, cfg)
	} else {
		err = runWindow(ctx, opts, cfg)
	}
	if err != nil {
		log.Fatalf("Canvas failed: %v", err)
	}
}
