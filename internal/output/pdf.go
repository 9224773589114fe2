package output

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Letter page, one-inch side margins, the original report layout.
const (
	pdfMargin       = 25.4
	pdfBottomMargin = 6.35
)

func (w *Writer) writePDF(dir, name, title, content string, now time.Time) (string, error) {
	if title == "" {
		title = "Agent Report"
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfBottomMargin)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(26, 26, 26)
	pdf.MultiCell(0, 12, title, "", "L", false)
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(0, 0, 0)
	pdf.MultiCell(0, 6, "Generated: "+now.Format(humanLayout), "", "L", false)
	pdf.Ln(6)

	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "# "):
			pdf.SetFont("Helvetica", "B", 18)
			pdf.MultiCell(0, 9, line[2:], "", "L", false)
		case strings.HasPrefix(line, "## "):
			pdf.SetFont("Helvetica", "B", 15)
			pdf.MultiCell(0, 8, line[3:], "", "L", false)
		case strings.HasPrefix(line, "### "):
			pdf.SetFont("Helvetica", "B", 13)
			pdf.MultiCell(0, 7, line[4:], "", "L", false)
		case strings.TrimSpace(line) != "":
			pdf.SetFont("Helvetica", "", 11)
			pdf.MultiCell(0, 6, line, "", "L", false)
		default:
			pdf.Ln(6)
		}
	}

	path := filepath.Join(dir, name)
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf output %s: %w", path, err)
	}
	return path, nil
}
