package evaluators

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/underwriter/pkg/pipeline"
	"mercator-hq/underwriter/pkg/strategy"
)

func TestDataIntegration(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"property":{"zestimate":600000,"beds":3}}`))
	}))
	defer srv.Close()

	gen := DataIntegration(srv.Client(), slog.Default())
	eval, err := gen.Generate(context.Background(), pipeline.GenerateRequest{
		StageName: "zillow_module",
		Segment: strategy.SegmentConfig{
			Name:    "segment_one",
			Inputs:  map[string]string{"address": "street_address"},
			Outputs: map[string]string{"current_zillow_estimate": "property.zestimate", "missing": "property.baths"},
		},
		Integration: &strategy.IntegrationConfig{
			Name:     "zillow",
			Provider: "zillow",
			URL:      srv.URL,
			Headers:  map[string]string{"X-Api-Key": "secret"},
		},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got, err := eval(context.Background(), pipeline.Record{"street_address": "1 Main St"})
	if err != nil {
		t.Fatalf("evaluation error = %v", err)
	}

	res := got.(*pipeline.DataIntegrationResult)
	if res.Status != StatusSuccess || res.Name != "zillow" || res.Segment != "segment_one" {
		t.Errorf("result = %+v", res)
	}
	if res.Output["current_zillow_estimate"] != 600000.0 {
		t.Errorf("current_zillow_estimate = %v", res.Output["current_zillow_estimate"])
	}
	if v, ok := res.Output["missing"]; !ok || v != nil {
		t.Errorf("missing = %v, %v; want nil entry", v, ok)
	}
	if received["address"] != "1 Main St" {
		t.Errorf("request = %v", received)
	}
}

func TestDataIntegration_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gen := DataIntegration(srv.Client(), slog.Default())

	if _, err := gen.Generate(context.Background(), pipeline.GenerateRequest{Segment: strategy.SegmentConfig{Name: "s"}}); !errors.Is(err, ErrIntegrationRequired) {
		t.Errorf("Generate() error = %v, want ErrIntegrationRequired", err)
	}

	eval, err := gen.Generate(context.Background(), pipeline.GenerateRequest{
		Segment:     strategy.SegmentConfig{Name: "s"},
		Integration: &strategy.IntegrationConfig{Provider: "bureau", URL: srv.URL},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	_, err = eval(context.Background(), pipeline.Record{})
	var providerErr *ProviderError
	if !errors.As(err, &providerErr) || providerErr.StatusCode != http.StatusBadGateway {
		t.Errorf("error = %v, want ProviderError with 502", err)
	}
}

func TestInference_HTTPPredictor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"prediction":{"label":"BINARY","probability":0.7}}`))
	}))
	defer srv.Close()

	gen := Inference(NewHTTPPredictor(srv.Client()), slog.Default())
	eval, err := gen.Generate(context.Background(), pipeline.GenerateRequest{
		Segment: strategy.SegmentConfig{Name: "seg", OutputVariable: "binary_score"},
		Inference: &strategy.InferenceConfig{
			Name:               "default_model",
			URL:                srv.URL,
			ClassificationPath: "prediction.label",
			ScorePath:          "prediction.probability",
		},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got, err := eval(context.Background(), pipeline.Record{"age": 30})
	if err != nil {
		t.Fatalf("evaluation error = %v", err)
	}

	res := got.(*pipeline.InferenceResult)
	if res.Classification != "BINARY" || res.OutputVariable != "binary_score" {
		t.Errorf("result = %+v", res)
	}
	if res.Output["binary_score"] != 0.7 {
		t.Errorf("binary_score = %v, want 0.7", res.Output["binary_score"])
	}
}

type stubPredictor struct {
	prediction *Prediction
	err        error
}

func (s stubPredictor) Predict(context.Context, *strategy.InferenceConfig, map[string]any) (*Prediction, error) {
	return s.prediction, s.err
}

func TestInference_PipelineMerge(t *testing.T) {
	gens := Defaults(&Options{Predictor: stubPredictor{prediction: &Prediction{Classification: "BINARY", Score: 0.7}}})

	cfg := &strategy.EngineConfig{Name: "ml", Stages: []strategy.StageConfig{{
		Type:      strategy.StageArtificialIntelligence,
		Name:      "ml_module",
		Inference: &strategy.InferenceConfig{Name: "default_model"},
		Segments:  []strategy.SegmentConfig{{Name: "seg", OutputVariable: "binary_score"}},
	}}}

	p, err := pipeline.NewRunner(pipeline.NewCompiler(gens)).Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	d := p.Evaluate(context.Background(), pipeline.Record{"age": 30})
	if !d.Passed || d.OutputVariables["binary_score"] != 0.7 {
		t.Errorf("decision = %+v", d)
	}
	if d.ProcessingDetail[0].PredictedClassification != "BINARY" {
		t.Errorf("detail = %+v", d.ProcessingDetail[0])
	}
}
