package client

import (
	"time"

	"golang.org/x/time/rate"
)

type Options struct {
	BaseURL      string
	Timeout      time.Duration
	Limiter      *rate.Limiter
	Now          func() time.Time
	Sleep        func(time.Duration)
	Nonce        func() string
	MaxIdleConns int
}

type Option func(*Options) error

// BaseURL overrides the API endpoint. Used by tests to point the
// client at a local server.
func BaseURL(u string) Option {
	return func(o *Options) error {
		o.BaseURL = u
		return nil
	}
}

func Timeout(timeout time.Duration) Option {
	return func(o *Options) error {
		o.Timeout = timeout
		return nil
	}
}

// Limiter replaces the request pacer. The default allows short bursts
// while keeping a steady rate well under the documented quotas.
func Limiter(l *rate.Limiter) Option {
	return func(o *Options) error {
		o.Limiter = l
		return nil
	}
}

// Clock replaces the wall clock and sleep function, so tests can
// exercise rate-limit waits without real delays.
func Clock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(o *Options) error {
		o.Now = now
		o.Sleep = sleep
		return nil
	}
}

// Nonce replaces the OAuth nonce source. Test hook.
func Nonce(fn func() string) Option {
	return func(o *Options) error {
		o.Nonce = fn
		return nil
	}
}

func NewOptions(opts ...Option) (*Options, error) {
	o := &Options{
		BaseURL:      defaultBaseURL,
		Timeout:      1 * time.Minute,
		Limiter:      rate.NewLimiter(rate.Limit(1), 5),
		Now:          time.Now,
		Sleep:        time.Sleep,
		MaxIdleConns: 10,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}
