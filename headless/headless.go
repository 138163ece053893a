// Package headless renders without a window into an EGL pbuffer. It backs
// snapshot mode and is only available on linux.
package headless

import "errors"

// ErrUnsupported is returned by NewHeadless where EGL pbuffers are unavailable.
var ErrUnsupported = errors.New("headless rendering requires EGL on linux")
