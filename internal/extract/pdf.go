package extract

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_command_runner.go -package=mocks gilda/internal/extract CommandRunner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gilda/internal/contextutil"
)

// CommandRunner runs an external program and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args. Stderr is included in the returned error.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// PDFExtractor turns PDF files into plain text with pdftotext.
type PDFExtractor struct {
	runner CommandRunner
	binary string
}

// NewPDFExtractor creates an extractor. An empty binary means "pdftotext" on PATH.
func NewPDFExtractor(runner CommandRunner, binary string) *PDFExtractor {
	if runner == nil {
		runner = ExecRunner{}
	}
	if binary == "" {
		binary = "pdftotext"
	}
	return &PDFExtractor{runner: runner, binary: binary}
}

// ExtractFile returns the layout-preserving text of the PDF at path.
// Extraction failures are logged and produce empty text.
func (e *PDFExtractor) ExtractFile(ctx context.Context, path string) string {
	logger := contextutil.LoggerFromContext(ctx)

	out, err := e.runner.Run(ctx, e.binary, "-layout", path, "-")
	if err != nil {
		logger.WarnContext(ctx, "pdf text extraction failed", "path", path, "error", err)
		return ""
	}
	text := strings.TrimSpace(string(out))
	logger.DebugContext(ctx, "pdf text extracted", "path", path, "chars", len([]rune(text)))
	return text
}

// ExtractBytes writes data to a temporary file and extracts it.
func (e *PDFExtractor) ExtractBytes(ctx context.Context, filename string, data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "gilda-*"+filepath.Ext(filename))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	return e.ExtractFile(ctx, tmp.Name()), nil
}
