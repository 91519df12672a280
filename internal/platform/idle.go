package platform

import (
	"errors"
	"time"
)

// ErrIdleUnsupported is returned when the desktop exposes no idle counter.
var ErrIdleUnsupported = errors.New("idle detection unsupported")

// IdleProvider reports how long the user has been away from the keyboard
// and mouse.
type IdleProvider interface {
	IdleDuration() (time.Duration, error)
}

// IdleFunc adapts a function to IdleProvider.
type IdleFunc func() (time.Duration, error)

// IdleDuration calls fn.
func (fn IdleFunc) IdleDuration() (time.Duration, error) {
	return fn()
}

// NewIdleProvider returns the provider for the current operating system.
func NewIdleProvider() IdleProvider {
	return newIdleProvider()
}

type unsupportedIdleProvider struct{}

func (unsupportedIdleProvider) IdleDuration() (time.Duration, error) {
	return 0, ErrIdleUnsupported
}
