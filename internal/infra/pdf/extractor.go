package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrNoText = errors.New("pdf has no extractable text")

// Extractor pulls the plain text layer out of PDF files.
type Extractor struct {
	// MaxBytes caps accepted uploads; zero means no limit.
	MaxBytes int64
}

func NewExtractor(maxBytes int64) *Extractor {
	return &Extractor{MaxBytes: maxBytes}
}

func (e *Extractor) ExtractText(data []byte) (text string, err error) {
	if e.MaxBytes > 0 && int64(len(data)) > e.MaxBytes {
		return "", fmt.Errorf("pdf exceeds %d bytes", e.MaxBytes)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return "", errors.New("file is not a pdf")
	}

	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(string(raw))
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
