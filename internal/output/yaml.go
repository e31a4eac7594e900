package output

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/jbweber/onesync/internal/one"
	"github.com/jbweber/onesync/internal/reconcile"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// FormatResult formats a reconciliation result as YAML.
func (f *YAMLFormatter) FormatResult(result *reconcile.Result) (string, error) {
	data, err := yaml.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result to YAML: %w", err)
	}

	return string(data), nil
}

// FormatVM formats a VM record as YAML.
func (f *YAMLFormatter) FormatVM(rec *one.VMRecord) (string, error) {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal VM to YAML: %w", err)
	}

	return string(data), nil
}
