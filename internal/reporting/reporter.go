// File: internal/reporting/reporter.go
package reporting

import (
	"context"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/replay-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Reporter writes run exports to an output. It is the concrete result sink
// the CLI hands to the orchestrator; the engine itself never persists.
type Reporter interface {
	schemas.ResultSink
	// Close finalizes the report and releases the underlying writer.
	Close() error
}

// nopWriteCloser wraps an io.Writer with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }

// New creates a reporter for the given format and output path. An empty or
// "stdout" path writes to standard output.
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdout := outputPath == "" || outputPath == "stdout"

	if isStdout {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	switch format {
	case "", "json":
		return &jsonReporter{w: writer}, nil
	default:
		if !isStdout {
			writer.Close()
		}
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

// jsonReporter renders the export as indented JSON.
type jsonReporter struct {
	w io.WriteCloser
}

func (r *jsonReporter) Write(ctx context.Context, export *schemas.RunExport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(export); err != nil {
		return fmt.Errorf("encode run export: %w", err)
	}
	return nil
}

func (r *jsonReporter) Close() error {
	return r.w.Close()
}
