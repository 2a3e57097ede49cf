package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	jsonFile     = "traceability.json"
	markdownFile = "traceability.md"
)

// RunResult names the files a run produced.
type RunResult struct {
	JSONPath     string
	MarkdownPath string
}

// Write emits both report files under dir, creating it if needed. Files are
// written whole; a cancelled run never leaves a partial report behind
// because Write is only reached after every stage has completed.
func (r *Report) Write(dir string) (*RunResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report directory %s: %w", dir, err)
	}

	data, err := r.JSON()
	if err != nil {
		return nil, err
	}
	jsonPath := filepath.Join(dir, jsonFile)
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", jsonPath, err)
	}

	mdPath := filepath.Join(dir, markdownFile)
	if err := os.WriteFile(mdPath, []byte(r.Markdown()), 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", mdPath, err)
	}

	return &RunResult{JSONPath: jsonPath, MarkdownPath: mdPath}, nil
}

// JSON returns the machine-readable report. Map keys are emitted in sorted
// order by encoding/json, which keeps the output stable across runs.
func (r *Report) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return append(data, '\n'), nil
}
