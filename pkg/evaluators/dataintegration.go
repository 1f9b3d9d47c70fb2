package evaluators

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"mercator-hq/underwriter/pkg/pipeline"
	"mercator-hq/underwriter/pkg/strategy"
	"mercator-hq/underwriter/pkg/telemetry/tracing"
)

// Status values reported for data integration calls.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// DataIntegration returns the data integration generator. The segment's
// inputs map request fields to record variables; its outputs map record
// variables to gjson paths in the provider response.
func DataIntegration(client *http.Client, logger *slog.Logger) pipeline.Generator {
	return pipeline.GeneratorFunc(func(_ context.Context, req pipeline.GenerateRequest) (pipeline.StageEvaluator, error) {
		integration := req.Integration
		if integration == nil || integration.URL == "" {
			return nil, ErrIntegrationRequired
		}
		seg := req.Segment
		name := integration.Name
		if name == "" {
			name = req.StageName
		}

		return func(ctx context.Context, rec pipeline.Record) (pipeline.StageResult, error) {
			body, status, err := call(ctx, client, integration, requestFields(seg.Inputs, rec))
			if err != nil {
				return nil, &ProviderError{Provider: integration.Provider, Err: err}
			}

			res := &pipeline.DataIntegrationResult{
				Name:     name,
				Provider: integration.Provider,
				Segment:  seg.Name,
				Status:   StatusSuccess,
				Output:   make(map[string]any, len(seg.Outputs)),
				Raw:      string(body),
			}

			if status < 200 || status > 299 {
				logger.Warn("data integration call failed",
					"integration", name,
					"provider", integration.Provider,
					"status", status,
				)
				return nil, &ProviderError{Provider: integration.Provider, StatusCode: status}
			}

			if !gjson.ValidBytes(body) {
				res.Status = StatusFailed
				return res, nil
			}

			for variable, path := range seg.Outputs {
				if r := gjson.GetBytes(body, path); r.Exists() {
					res.Output[variable] = r.Value()
				} else {
					res.Output[variable] = nil
				}
			}

			return res, nil
		}, nil
	})
}

// requestFields builds the provider request from the segment's input
// mapping. Without a mapping every scalar record field is sent.
func requestFields(inputs map[string]string, rec pipeline.Record) map[string]any {
	fields := make(map[string]any)
	if len(inputs) == 0 {
		for k, v := range rec {
			switch v.(type) {
			case string, bool, float64, float32, int, int32, int64, nil:
				fields[k] = v
			}
		}
		return fields
	}
	for field, variable := range inputs {
		fields[field] = rec[variable]
	}
	return fields
}

// call sends fields as JSON and returns the response body and status code.
func call(ctx context.Context, client *http.Client, cfg *strategy.IntegrationConfig, fields map[string]any) ([]byte, int, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request: %w", err)
	}

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	tracing.Inject(ctx, req.Header)

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}
