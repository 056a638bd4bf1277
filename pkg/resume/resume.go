// Package resume validates uploaded resume documents.
package resume

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// MaxSize is the largest accepted upload.
	MaxSize = 5 << 20
	// ContentType is stored with every resume object.
	ContentType = "application/pdf"
)

var (
	ErrTooLarge       = errors.New("resume exceeds size limit")
	ErrUnsupportedExt = errors.New("resume must be a .pdf file")
	ErrUnreadable     = errors.New("resume is not a readable pdf")
)

// Info describes a validated resume.
type Info struct {
	Pages int
	Size  int64
}

// CheckName rejects filenames without a .pdf extension.
func CheckName(filename string) error {
	if !strings.EqualFold(filepath.Ext(strings.TrimSpace(filename)), ".pdf") {
		return ErrUnsupportedExt
	}
	return nil
}

// Inspect parses data as a PDF and requires at least one page.
func Inspect(data []byte) (info Info, err error) {
	if len(data) > MaxSize {
		return Info{}, ErrTooLarge
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return Info{}, ErrUnreadable
	}
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			info, err = Info{}, fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	pages := reader.NumPage()
	if pages < 1 {
		return Info{}, ErrUnreadable
	}
	return Info{Pages: pages, Size: int64(len(data))}, nil
}
