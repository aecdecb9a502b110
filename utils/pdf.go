package utils

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// OpenPDF parses in-memory PDF bytes. A decode failure is per-document;
// callers report it and move on.
func OpenPDF(data []byte) (*pdf.Reader, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	return r, nil
}

// PDFPageCount returns the number of pages in the document.
func PDFPageCount(data []byte) (int, error) {
	r, err := OpenPDF(data)
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}
