// Package ratelimit applies per-client fixed-window quotas across three
// independent windows (minute, hour, day). Admission is atomic: a
// request is admitted only if no window would be exceeded, and admission
// increments every window together.
package ratelimit

import (
	"context"
	"time"

	"github.com/lmnpay/gateway/pkg/clients"
)

// Window names one quota window
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// WindowSpec is one window's size and threshold
type WindowSpec struct {
	Window    Window
	Size      time.Duration
	Threshold int
}

// WindowsFor builds the window specs for a client's configured limits.
// Windows with a zero threshold are unlimited and omitted.
func WindowsFor(limits clients.RateLimits) []WindowSpec {
	specs := make([]WindowSpec, 0, 3)
	if limits.PerMinute > 0 {
		specs = append(specs, WindowSpec{Window: WindowMinute, Size: time.Minute, Threshold: limits.PerMinute})
	}
	if limits.PerHour > 0 {
		specs = append(specs, WindowSpec{Window: WindowHour, Size: time.Hour, Threshold: limits.PerHour})
	}
	if limits.PerDay > 0 {
		specs = append(specs, WindowSpec{Window: WindowDay, Size: 24 * time.Hour, Threshold: limits.PerDay})
	}
	return specs
}

// Decision is the outcome of a check-and-consume call. On denial it
// names the violated window and how long until that window resets.
type Decision struct {
	Allowed    bool
	Window     Window
	RetryAfter time.Duration
}

// Limiter is the shared counter store behind the rate-limit stage.
//
// CheckAndConsume must be atomic with respect to concurrent callers for
// the same client: the reads and the increments that admit a request
// happen as one indivisible operation across all given windows. A
// non-nil error is an infrastructure failure; the pipeline fails closed.
type Limiter interface {
	CheckAndConsume(ctx context.Context, clientID string, specs []WindowSpec) (Decision, error)
}
