// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package raster

import (
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Page counters, declared as vars so tests can avoid real PDF parsing.
var (
	strictPageCount  = api.PageCountFile
	lenientPageCount = func(path string) (int, error) {
		f, r, err := pdf.Open(path)
		if err != nil {
			return 0, err
		}
		defer f.Close()
		return r.NumPage(), nil
	}
)

// PageCount returns the number of pages in the PDF at path. pdfcpu is
// tried first; files it rejects are retried with the more lenient reader.
func PageCount(path string) (int, error) {
	n, strictErr := strictPageCount(path)
	if strictErr == nil {
		return n, nil
	}
	n, err := lenientPageCount(path)
	if err != nil {
		return 0, fmt.Errorf("counting pages of %s: %w (pdfcpu: %v)", path, err, strictErr)
	}
	return n, nil
}
