package evaluators

import (
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/underwriter/pkg/pipeline"
)

// DefaultHTTPTimeout bounds provider calls when no client is configured.
const DefaultHTTPTimeout = 10 * time.Second

// Options configures the default generators.
type Options struct {
	// HTTPClient is used for data integration and inference calls.
	HTTPClient *http.Client

	// Predictor overrides the HTTP inference client.
	Predictor Predictor

	Logger *slog.Logger
}

// Defaults returns generators for every stage type.
func Defaults(opts *Options) *pipeline.Generators {
	if opts == nil {
		opts = &Options{}
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	predictor := opts.Predictor
	if predictor == nil {
		predictor = NewHTTPPredictor(client)
	}

	return &pipeline.Generators{
		Requirements:           Requirements(),
		Scorecard:              Scorecard(),
		Calculations:           Calculations(),
		Assignments:            Assignments(),
		Output:                 Output(),
		DataIntegration:        DataIntegration(client, logger),
		ArtificialIntelligence: Inference(predictor, logger),
	}
}
