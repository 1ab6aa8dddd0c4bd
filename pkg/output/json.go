package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bun-ready/bun-ready/pkg/analyzer"
)

// RenderJSON writes the full result object, indented, for machine
// consumers and jq pipelines.
func RenderJSON(w io.Writer, result analyzer.Result) error {
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
