package options

import "time"

type CanvasOptions struct {
	Help      *bool
	Width     *int
	Height    *int
	Program   *string // "texture" or "red"
	Image     *string // file path or http(s) URL loaded at startup
	Poll      *time.Duration
	Translate *bool // translate GLSL ES sources for desktop GL
	FFmpeg    *string
	Verbose   *bool
	// Headless options
	Headless *bool
	Frames   *int
	Snapshot *string
}
