package evaluators

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tidwall/gjson"

	"mercator-hq/underwriter/pkg/pipeline"
	"mercator-hq/underwriter/pkg/strategy"
)

// Prediction is the answer of an inference service.
type Prediction struct {
	Classification string
	Score          any
	Raw            []byte
}

// Predictor calls an inference service.
type Predictor interface {
	Predict(ctx context.Context, cfg *strategy.InferenceConfig, features map[string]any) (*Prediction, error)
}

// HTTPPredictor posts features as JSON and reads the classification and
// score from the response with gjson paths.
type HTTPPredictor struct {
	client *http.Client
}

// NewHTTPPredictor creates a predictor using client.
func NewHTTPPredictor(client *http.Client) *HTTPPredictor {
	return &HTTPPredictor{client: client}
}

// Predict implements Predictor.
func (p *HTTPPredictor) Predict(ctx context.Context, cfg *strategy.InferenceConfig, features map[string]any) (*Prediction, error) {
	body := map[string]any{"features": features}
	if cfg.Model != "" {
		body["model"] = cfg.Model
	}

	raw, status, err := call(ctx, p.client, &strategy.IntegrationConfig{URL: cfg.URL}, body)
	if err != nil {
		return nil, &ProviderError{Provider: cfg.Name, Err: err}
	}
	if status < 200 || status > 299 {
		return nil, &ProviderError{Provider: cfg.Name, StatusCode: status}
	}

	classPath := cfg.ClassificationPath
	if classPath == "" {
		classPath = "classification"
	}
	scorePath := cfg.ScorePath
	if scorePath == "" {
		scorePath = "score"
	}

	return &Prediction{
		Classification: gjson.GetBytes(raw, classPath).String(),
		Score:          gjson.GetBytes(raw, scorePath).Value(),
		Raw:            raw,
	}, nil
}

// Inference returns the artificial intelligence generator. The prediction
// score is written to the segment's output_variable.
func Inference(predictor Predictor, logger *slog.Logger) pipeline.Generator {
	return pipeline.GeneratorFunc(func(_ context.Context, req pipeline.GenerateRequest) (pipeline.StageEvaluator, error) {
		cfg := req.Inference
		if cfg == nil {
			return nil, ErrInferenceRequired
		}
		seg := req.Segment
		name := cfg.Name
		if name == "" {
			name = req.StageName
		}
		output := seg.OutputVariable
		if output == "" {
			output = "score"
		}

		return func(ctx context.Context, rec pipeline.Record) (pipeline.StageResult, error) {
			prediction, err := predictor.Predict(ctx, cfg, requestFields(seg.Inputs, rec))
			if err != nil {
				return nil, err
			}

			logger.Debug("inference completed",
				"model", name,
				"classification", prediction.Classification,
			)

			return &pipeline.InferenceResult{
				Name:           name,
				Segment:        seg.Name,
				Classification: prediction.Classification,
				OutputVariable: output,
				Output:         map[string]any{output: prediction.Score},
			}, nil
		}, nil
	})
}
