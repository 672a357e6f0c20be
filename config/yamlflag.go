package config

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

// yamlFlag sets a pointer to a structured value from a flag in YAML
// format, e.g. -open-telemetry='{service-name: shop}'.
type yamlFlag[T any] struct {
	ptr   **T
	value string
}

func newYamlFlag[T any](ptr **T) *yamlFlag[T] {
	return &yamlFlag[T]{ptr: ptr}
}

func (yf *yamlFlag[T]) Set(value string) error {
	v := new(T)
	if err := yaml.Unmarshal([]byte(value), v); err != nil {
		return fmt.Errorf("failed to parse yaml: %w", err)
	}

	*yf.ptr = v
	yf.value = value
	return nil
}

func (yf *yamlFlag[T]) String() string {
	if yf == nil {
		return ""
	}

	return yf.value
}
