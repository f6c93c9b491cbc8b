package services

import "time"

type (
	Option func(*options)

	options struct {
		now func() time.Time
	}
)

// WithClock replaces the wall clock used to stamp lifecycle transitions.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func newOptions(opts []Option) options {
	o := options{now: time.Now}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
