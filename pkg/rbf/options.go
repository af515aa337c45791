package rbf

import (
	"runtime"

	"github.com/chazu/rbfsurf/pkg/logging"
)

type options struct {
	logger  *logging.Logger
	workers int
	cutoff  float64
}

func defaultOptions() options {
	return options{
		logger:  logging.Noop(),
		workers: runtime.GOMAXPROCS(0),
	}
}

// Option configures a Model.
type Option func(*options)

// WithLogger sets the logger used to report build progress.
// A nil logger disables logging.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = logging.Noop()
		}
		o.logger = l
	}
}

// WithWorkers bounds the number of goroutines assembling the design matrix.
// Values below 1 select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = runtime.GOMAXPROCS(0)
		}
		o.workers = n
	}
}

// WithCutoff sets the relative singular value cutoff: singular values at or
// below cutoff·σ_max are treated as zero. Zero or negative selects
// max(N, K)·ε, the machine-precision rank tolerance.
func WithCutoff(rcond float64) Option {
	return func(o *options) {
		o.cutoff = rcond
	}
}
