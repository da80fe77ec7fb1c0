package elm

import (
	"math/rand"

	"github.com/YuminosukeSato/oselm/pkg/log"
)

// Option is a function that configures OSELM
type Option func(*config)

type config struct {
	activation  string
	loss        string
	randomState int64
	source      rand.Source
	logger      log.Logger
	rcond       float64
	nJobs       int
}

func defaultConfig() config {
	return config{
		activation:  ActivationSigmoid,
		loss:        LossMeanSquaredError,
		randomState: -1,
		rcond:       DefaultRCond,
	}
}

// WithActivation sets the hidden layer activation ("sigmoid" or "relu")
func WithActivation(name string) Option {
	return func(c *config) {
		c.activation = name
	}
}

// WithLoss sets the loss used by ComputeLoss ("mean_squared_error" or "mse")
func WithLoss(name string) Option {
	return func(c *config) {
		c.loss = name
	}
}

// WithRandomState seeds the generator for alpha and the initial beta.
// A negative seed draws one at random.
func WithRandomState(seed int64) Option {
	return func(c *config) {
		c.randomState = seed
	}
}

// WithRandSource uses src instead of a seeded source. It takes precedence
// over WithRandomState.
func WithRandSource(src rand.Source) Option {
	return func(c *config) {
		c.source = src
	}
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithRCond sets the relative singular value cutoff of the pseudoinverse
func WithRCond(rcond float64) Option {
	return func(c *config) {
		c.rcond = rcond
	}
}

// WithNJobs sets the number of goroutines used for large activation batches.
// Values <= 0 use one per CPU.
func WithNJobs(n int) Option {
	return func(c *config) {
		c.nJobs = n
	}
}
