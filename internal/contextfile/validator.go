// Package contextfile reads local files and prepares them for safe injection
// into a model prompt. Validation (binary sniffing, size ceiling) happens
// here; nothing that fails validation ever reaches a provider.
package contextfile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/externalbrain/expert-bridge/internal/domain"
)

const (
	// DefaultMaxFileBytes is the per-file content ceiling (512 KiB).
	DefaultMaxFileBytes = 512 * 1024

	// DefaultSniffBytes is how much of the file head is inspected for
	// binary content.
	DefaultSniffBytes = 1024

	// DefaultMaxNonPrintableRatio is the share of non-printable bytes in
	// the sniff window above which a file counts as binary.
	DefaultMaxNonPrintableRatio = 0.30
)

// FileContext is a validated file ready for prompt injection. It lives for
// one request and is never persisted.
type FileContext struct {
	// Path is the path the caller supplied.
	Path string

	// Content is the file text, truncated at the size ceiling if needed.
	Content string

	// Truncated is set when Content was cut at the ceiling. Truncation is
	// always flagged, never silent.
	Truncated bool
}

// BinaryFileError is a local rejection reason: the file looks binary and is
// skipped by the prompt builder rather than failing the whole operation.
type BinaryFileError struct {
	Path string
}

func (e *BinaryFileError) Error() string {
	return fmt.Sprintf("file %q appears to be binary", e.Path)
}

// IsBinaryFile checks if an error is a BinaryFileError.
func IsBinaryFile(err error) bool {
	var target *BinaryFileError
	return errors.As(err, &target)
}

// Validator inspects candidate files and decides whether their contents are
// safe and useful to inject. It has no side effects beyond reading the file.
type Validator struct {
	maxFileBytes         int64
	sniffBytes           int
	maxNonPrintableRatio float64
}

// ValidatorOption is a functional option for configuring Validator.
type ValidatorOption func(*Validator)

// WithMaxFileBytes sets the per-file size ceiling.
func WithMaxFileBytes(n int64) ValidatorOption {
	return func(v *Validator) {
		if n > 0 {
			v.maxFileBytes = n
		}
	}
}

// WithSniffBytes sets the size of the binary-detection window.
func WithSniffBytes(n int) ValidatorOption {
	return func(v *Validator) {
		if n > 0 {
			v.sniffBytes = n
		}
	}
}

// WithMaxNonPrintableRatio sets the binary-detection threshold.
func WithMaxNonPrintableRatio(r float64) ValidatorOption {
	return func(v *Validator) {
		if r > 0 {
			v.maxNonPrintableRatio = r
		}
	}
}

// NewValidator creates a Validator with the documented defaults.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		maxFileBytes:         DefaultMaxFileBytes,
		sniffBytes:           DefaultSniffBytes,
		maxNonPrintableRatio: DefaultMaxNonPrintableRatio,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate reads the file at path and returns an accepted FileContext or a
// rejection reason. Missing, unreadable, or non-regular files fail with
// NotFoundError; binary-looking files fail with BinaryFileError; oversized
// files are truncated at the ceiling with the Truncated flag set.
func (v *Validator) Validate(path string) (FileContext, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileContext{}, &domain.NotFoundError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return FileContext{}, &domain.NotFoundError{
			Path: path,
			Err:  fmt.Errorf("not a regular file"),
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return FileContext{}, &domain.NotFoundError{Path: path, Err: err}
	}
	defer f.Close()

	// Sniff the head for binary content before reading anything else.
	head := make([]byte, v.sniffBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return FileContext{}, &domain.NotFoundError{Path: path, Err: err}
	}
	head = head[:n]

	if looksBinary(head, v.maxNonPrintableRatio) {
		return FileContext{}, &BinaryFileError{Path: path}
	}

	truncated := info.Size() > v.maxFileBytes
	remaining := v.maxFileBytes - int64(len(head))
	if remaining < 0 {
		remaining = 0
	}

	rest, err := io.ReadAll(io.LimitReader(f, remaining))
	if err != nil {
		return FileContext{}, &domain.NotFoundError{Path: path, Err: err}
	}

	content := string(head) + string(rest)
	if int64(len(content)) > v.maxFileBytes {
		content = content[:v.maxFileBytes]
		truncated = true
	}

	return FileContext{
		Path:      path,
		Content:   strings.ToValidUTF8(content, "�"),
		Truncated: truncated,
	}, nil
}

// looksBinary applies the two-part heuristic: a NUL byte is an immediate
// binary verdict, otherwise the non-printable ratio decides.
func looksBinary(head []byte, maxRatio float64) bool {
	if len(head) == 0 {
		return false
	}

	nonPrintable := 0
	for _, b := range head {
		if b == 0x00 {
			return true
		}
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' && b != '\f' {
			nonPrintable++
		}
	}

	return float64(nonPrintable)/float64(len(head)) > maxRatio
}
