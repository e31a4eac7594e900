package output

import (
	"encoding/json"
	"fmt"

	"github.com/jbweber/onesync/internal/one"
	"github.com/jbweber/onesync/internal/reconcile"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// FormatResult formats a reconciliation result as JSON.
func (f *JSONFormatter) FormatResult(result *reconcile.Result) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result to JSON: %w", err)
	}

	return string(data) + "\n", nil
}

// FormatVM formats a VM record as JSON.
func (f *JSONFormatter) FormatVM(rec *one.VMRecord) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal VM to JSON: %w", err)
	}

	return string(data) + "\n", nil
}
