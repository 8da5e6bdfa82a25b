package countdown

import "time"

// Option overrides one setting of the engine configuration. Settings not
// named by an option keep their previous value.
type Option func(*options)

type options struct {
	duration    time.Duration
	interval    time.Duration
	hasDuration bool
	hasInterval bool
}

// WithDuration sets the target duration. Zero or negative means no duration.
func WithDuration(d time.Duration) Option {
	return func(o *options) {
		o.duration = d
		o.hasDuration = true
	}
}

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		o.interval = d
		o.hasInterval = true
	}
}

func (e *Engine) apply(opts []Option) {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	if o.hasDuration {
		e.duration = clampDuration(o.duration)
	}
	if o.hasInterval {
		e.interval = o.interval
	}
}

func clampDuration(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
