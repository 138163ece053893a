package graphics

// Context defines the interface for a drawing surface that can yield a
// graphics device.
type Context interface {
	// Device returns the 3D drawing capability set bound to this surface.
	// It fails when the surface cannot provide one.
	Device() (Device, error)
	MakeCurrent()
	Shutdown()
	ShouldClose() bool
	// EndFrame presents the current frame and pumps host events. It is the
	// pacing point between two render steps.
	EndFrame()
	// GetFramebufferSize returns the displayed size of the surface in pixels.
	GetFramebufferSize() (int, int)
	IsGLES() bool
}

// DropSource is implemented by surfaces that accept dropped files.
type DropSource interface {
	SetDropCallback(func(paths []string))
}
