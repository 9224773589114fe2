// Package output persists job results to disk in one of five formats:
// plain text, Markdown, JSON, HTML and PDF. Filenames are templated with
// job name and timestamp tokens and sanitized before writing.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/aatumaykin/cronbot/internal/jobs"
	"github.com/aatumaykin/cronbot/internal/logger"
)

const (
	// timestampLayout names output files, humanLayout stamps documents.
	timestampLayout = "20060102_150405"
	humanLayout     = "January 02, 2006 at 03:04 PM"

	defaultDir = "output"
)

var titleCaser = cases.Title(language.English)

// Writer renders job results into files.
type Writer struct {
	logger *logger.Logger
	now    func() time.Time
}

// NewWriter creates a Writer logging through the given logger.
func NewWriter(log *logger.Logger) *Writer {
	if log == nil {
		log = logger.Nop()
	}
	return &Writer{logger: log, now: time.Now}
}

// Write persists content according to the output spec and returns the
// path of the file written. The destination directory is created as
// needed; an unsupported type fails with UnknownOutputTypeError.
func (w *Writer) Write(jobName, content string, spec *jobs.OutputSpec) (string, error) {
	if spec == nil {
		return "", fmt.Errorf("output spec is nil")
	}

	dir := spec.Path
	if dir == "" {
		dir = defaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory %s: %w", dir, err)
	}

	now := w.now()
	base := sanitizeFilename(baseFilename(jobName, spec.Filename, now))

	var path string
	var err error
	switch spec.Type {
	case "text":
		path, err = w.writeFile(dir, base+".txt", []byte(content))
	case "markdown":
		path, err = w.writeFile(dir, base+".md", []byte(content))
	case "json":
		path, err = w.writeJSON(dir, base+".json", content, now)
	case "html":
		path, err = w.writeHTML(dir, base+".html", documentTitle(jobName, spec), content, now)
	case "pdf":
		path, err = w.writePDF(dir, base+".pdf", spec.Title, content, now)
	default:
		return "", &UnknownOutputTypeError{Type: spec.Type}
	}
	if err != nil {
		return "", err
	}

	w.logger.Info("Job output saved",
		logger.Field{Key: "job", Value: jobName},
		logger.Field{Key: "path", Value: path})
	return path, nil
}

func (w *Writer) writeFile(dir, name string, data []byte) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write output file %s: %w", path, err)
	}
	return path, nil
}

func (w *Writer) writeJSON(dir, name, content string, now time.Time) (string, error) {
	doc := struct {
		Timestamp string `json:"timestamp"`
		Content   string `json:"content"`
	}{
		Timestamp: now.Format(time.RFC3339),
		Content:   content,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode json output: %w", err)
	}
	return w.writeFile(dir, name, data)
}

// baseFilename applies the filename template, substituting the
// <job_name> and <date_timestamp> tokens. Without a template the name is
// the job name suffixed with the timestamp.
func baseFilename(jobName, template string, now time.Time) string {
	ts := now.Format(timestampLayout)
	if template == "" {
		return jobName + "_" + ts
	}
	name := strings.ReplaceAll(template, "<date_timestamp>", ts)
	return strings.ReplaceAll(name, "<job_name>", jobName)
}

// sanitizeFilename normalizes the name and keeps it inside the
// destination directory: path separators and other hostile runes become
// dashes, control runes are dropped.
func sanitizeFilename(name string) string {
	name = norm.NFKC.String(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	clean := strings.Trim(b.String(), " .")
	if clean == "" {
		return "result"
	}
	return clean
}

// documentTitle resolves the document title: the configured one, or the
// job name with separators spaced out and title-cased.
func documentTitle(jobName string, spec *jobs.OutputSpec) string {
	if spec.Title != "" {
		return spec.Title
	}
	return titleCaser.String(strings.NewReplacer("_", " ", "-", " ").Replace(jobName))
}
