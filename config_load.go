package conduit

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config_schema.json
var configSchemaJSON string

var configSchema = jsonschema.MustCompileString("config_schema.json", configSchemaJSON)

// LoadConfig reads, parses, and validates a config file from the given
// path. Supported formats: JSON (.json), YAML (.yaml, .yml).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// The raw document is validated, not the decoded struct, so unknown
	// keys in the file are rejected rather than silently dropped.
	var cfg Config
	var doc interface{}
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q: use .json, .yaml, or .yml", ext)
	}

	if err := validateDocument(doc); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateConfig validates a code-constructed Config against the embedded
// JSON schema. The struct is round-tripped through JSON so it is checked
// the same way a loaded file is.
func ValidateConfig(cfg Config) error {
	var doc interface{}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config for validation: %w", err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decoding config for validation: %w", err)
	}
	return validateDocument(doc)
}

// validateDocument normalizes the document through a JSON round trip (YAML
// decoding yields ints and map types the schema library does not expect)
// and runs the schema.
func validateDocument(doc interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding config for validation: %w", err)
	}
	var norm interface{}
	if err := json.Unmarshal(raw, &norm); err != nil {
		return fmt.Errorf("decoding config for validation: %w", err)
	}
	if err := configSchema.Validate(norm); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
