package multidocs

import (
	"log/slog"

	"git.home.luguber.info/inful/multidocs/internal/metrics"
)

// AdmonitionsStylesheet is the client module shipped when any instance enables admonitions.
const AdmonitionsStylesheet = "remark-admonitions/styles/infima.css"

type settings struct {
	name              string
	logger            *slog.Logger
	recorder          metrics.Recorder
	admonitionsModule string
}

func defaultSettings() settings {
	return settings{
		logger:            slog.New(slog.DiscardHandler),
		recorder:          metrics.NoopRecorder{},
		admonitionsModule: AdmonitionsStylesheet,
	}
}

// Option customizes an Aggregator.
type Option func(*settings)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder. The default records nothing.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *settings) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithName overrides the name the aggregator reports to the host. By default
// it reports the underlying plugin's name.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithAdmonitionsModule overrides the stylesheet module path returned by ClientModules.
func WithAdmonitionsModule(module string) Option {
	return func(s *settings) {
		if module != "" {
			s.admonitionsModule = module
		}
	}
}
