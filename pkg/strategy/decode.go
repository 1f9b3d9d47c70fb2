package strategy

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Decode reads one or more strategy documents from r. YAML streams with
// several documents and JSON objects are both accepted.
func Decode(r io.Reader) ([]*EngineConfig, error) {
	dec := yaml.NewDecoder(r)

	var engines []*EngineConfig
	for {
		var cfg EngineConfig
		err := dec.Decode(&cfg)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode strategy: %w", err)
		}
		if cfg.Name == "" && len(cfg.Stages) == 0 {
			continue
		}
		engines = append(engines, &cfg)
	}

	return engines, nil
}

// DecodeBytes decodes strategy documents from data.
func DecodeBytes(data []byte) ([]*EngineConfig, error) {
	return Decode(bytes.NewReader(data))
}

// DecodeFile decodes strategy documents from the file at path and records
// the source file on each of them.
func DecodeFile(path string) ([]*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}

	engines, err := DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, e := range engines {
		e.SourceFile = path
	}
	return engines, nil
}

// Encode writes cfg as YAML.
func Encode(cfg *EngineConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}
