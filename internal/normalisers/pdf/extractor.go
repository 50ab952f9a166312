// Package pdf extracts per-page text from PDF documents using poppler's
// pdftotext. pdftotext separates pages with form feeds and paragraphs with
// blank lines, which is the layout the segmenter expects.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/custodia-labs/studyrag/internal/core/domain"
	"github.com/custodia-labs/studyrag/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.PageExtractor = (*Extractor)(nil)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

const toolName = "pdftotext"

var (
	pdfMagic      = []byte("%PDF-")
	encryptMarker = []byte("/Encrypt")
)

// pdftotext exit codes.
const (
	exitOpenError       = 1
	exitPermissionError = 3
)

// CommandRunner executes an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor turns PDF bytes into page texts.
type Extractor struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// New creates an extractor that shells out to pdftotext.
func New() *Extractor {
	return &Extractor{runner: execRunner{}, lookPath: exec.LookPath}
}

// NewWithRunner creates an extractor with a custom command runner.
// The tool lookup is skipped.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{
		runner:   runner,
		lookPath: func(name string) (string, error) { return name, nil },
	}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// IsEncrypted reports whether the PDF declares an encryption dictionary.
func (e *Extractor) IsEncrypted(content []byte) bool {
	return bytes.Contains(content, encryptMarker)
}

// ExtractPages returns the text of each page in order. Image-only pages come
// back as empty strings.
func (e *Extractor) ExtractPages(ctx context.Context, content []byte) ([]string, error) {
	const op = "pdf.ExtractPages"

	if !bytes.HasPrefix(bytes.TrimLeft(content, " \t\r\n"), pdfMagic) {
		return nil, domain.ValidationError(op, "file is not a PDF", domain.ErrUnsupportedType)
	}
	if e.IsEncrypted(content) {
		return nil, domain.ValidationError(op, "PDF is encrypted", domain.ErrEncryptedDocument)
	}

	tool, err := e.lookPath(toolName)
	if err != nil {
		return nil, domain.ExternalError(op, InstallInstructions(), ErrPDFToolNotFound)
	}

	tmp, err := os.CreateTemp("", "studyrag-*.pdf")
	if err != nil {
		return nil, domain.StorageError(op, "create temp file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return nil, domain.StorageError(op, "write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, domain.StorageError(op, "write temp file", err)
	}

	out, err := e.runner.Run(ctx, tool, "-enc", "UTF-8", "-q", tmp.Name(), "-")
	if err != nil {
		return nil, classifyRunError(ctx, op, err)
	}
	return SplitPages(string(out)), nil
}

func classifyRunError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		switch exitErr.ExitCode() {
		case exitOpenError:
			return domain.ValidationError(op, "PDF could not be parsed", domain.ErrInvalidInput)
		case exitPermissionError:
			return domain.ValidationError(op, "PDF forbids text extraction", domain.ErrEncryptedDocument)
		}
	}
	return domain.ExternalError(op, "pdftotext failed", err)
}

// SplitPages splits pdftotext output on form feeds. The trailing feed after
// the last page does not produce an extra page.
func SplitPages(text string) []string {
	text = strings.TrimSuffix(text, "\f")
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	return strings.Split(text, "\f")
}

// CheckAvailable returns ErrPDFToolNotFound if pdftotext is not installed.
func CheckAvailable() error {
	if _, err := exec.LookPath(toolName); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions describes how to install pdftotext.
func InstallInstructions() string {
	return fmt.Sprintf("%s is required for PDF ingestion. Install poppler:\n"+
		"  macOS:  brew install poppler\n"+
		"  Debian: apt install poppler-utils\n"+
		"  Fedora: dnf install poppler-utils", toolName)
}
