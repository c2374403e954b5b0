// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble turns a session's pages into a single multi-page PDF.
// Assembly is all-or-nothing: the PDF is built in a temporary file and
// renamed into place, so a failure at any point leaves no partial output.
package assemble

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"

	"github.com/SummittDweller/D35-Scan-to-PDF/pkg/types"
)

// Assembly failure kinds. Wrapped with detail; discriminate with errors.Is.
var (
	// ErrNothingToAssemble indicates a commit was attempted on an empty
	// session. Nothing is written.
	ErrNothingToAssemble = errors.New("no pages to assemble")

	// ErrEncode indicates a page image could not be read or encoded.
	ErrEncode = errors.New("page encoding failed")

	// ErrWrite indicates the output PDF could not be written.
	ErrWrite = errors.New("output write failed")
)

// pointsPerInch converts physical inches to PDF points.
const pointsPerInch = 72.0

// Assembler writes pages to a PDF file. The controller depends on this
// interface so tests can substitute failing implementations.
type Assembler interface {
	Assemble(pages []types.Page, destPath string) error
}

// PDFAssembler is the production Assembler.
type PDFAssembler struct {
	// JPEGQuality is the quality used for color and gray page encoding
	// (default 90).
	JPEGQuality int
}

// New returns a PDFAssembler with default encoding settings.
func New() *PDFAssembler {
	return &PDFAssembler{JPEGQuality: defaultJPEGQuality}
}

// Assemble writes all pages, in order, to a PDF at destPath. Page i of the
// input is page i of the document. Each PDF page takes its physical size
// from that page's pixel dimensions and resolution, so a 1275x1650 image
// captured at 150 DPI becomes a 612x792 pt (US Letter) page.
func (a *PDFAssembler) Assemble(pages []types.Page, destPath string) error {
	if len(pages) == 0 {
		return ErrNothingToAssemble
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    pageSize(pages[0]),
	})
	pdf.SetAutoPageBreak(false, 0)

	for i, page := range pages {
		enc, err := encodePage(page, a.jpegQuality())
		if err != nil {
			return fmt.Errorf("%w: page %d (%s): %v", ErrEncode, i+1, filepath.Base(page.ImagePath), err)
		}

		size := pageSize(page)
		pdf.AddPageFormat("P", size)

		opts := fpdf.ImageOptions{ImageType: enc.format}
		pdf.RegisterImageOptionsReader(page.ID, opts, &enc.data)
		pdf.ImageOptions(page.ID, 0, 0, size.Wd, size.Ht, false, opts, 0, "")

		if pdf.Err() {
			return fmt.Errorf("%w: page %d: %v", ErrEncode, i+1, pdf.Error())
		}
	}

	if err := writePDF(pdf, destPath); err != nil {
		return err
	}
	return nil
}

func (a *PDFAssembler) jpegQuality() int {
	if a.JPEGQuality > 0 {
		return a.JPEGQuality
	}
	return defaultJPEGQuality
}

// pageSize converts a page's pixel dimensions to PDF points at its capture
// resolution.
func pageSize(p types.Page) fpdf.SizeType {
	dpi := float64(p.Resolution)
	if dpi <= 0 {
		dpi = 300
	}
	return fpdf.SizeType{
		Wd: float64(p.Width) / dpi * pointsPerInch,
		Ht: float64(p.Height) / dpi * pointsPerInch,
	}
}

// writePDF renders the document to a temporary file in the destination
// directory and renames it into place.
func writePDF(pdf *fpdf.Fpdf, destPath string) error {
	dir := filepath.Dir(destPath)

	tmp, err := os.CreateTemp(dir, ".assemble-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file in %s: %v", ErrWrite, dir, err)
	}
	tmpPath := tmp.Name()

	outErr := pdf.Output(tmp)
	if outErr != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rendering PDF: %v", ErrWrite, outErr)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: closing temp file: %v", ErrWrite, err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: renaming into place: %v", ErrWrite, err)
	}
	return nil
}
