package report

import (
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageCount parses a PDF and returns its number of pages.
func PageCount(r io.ReadSeeker) (int, error) {
	ctx, err := pdfcpu.Read(r, model.NewDefaultConfiguration())
	if err != nil {
		return 0, fmt.Errorf("read pdf: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return ctx.PageCount, nil
}

// WriteFile renders d to path and re-reads the file to check that every
// page made it out.
func WriteFile(path string, d Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, d); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	f, err = os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := PageCount(f)
	if err != nil {
		return err
	}
	if n != d.Pages() {
		return fmt.Errorf("wrote %d pages, expected %d", n, d.Pages())
	}
	return nil
}
