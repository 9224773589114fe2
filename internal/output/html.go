package output

import (
	"fmt"
	"html"
	"strings"
	"time"
)

const htmlDocument = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>%s</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            max-width: 800px;
            margin: 40px auto;
            padding: 20px;
            line-height: 1.6;
        }
        h1, h2, h3 { color: #1a1a1a; }
        code {
            background: #f4f4f4;
            padding: 2px 6px;
            border-radius: 3px;
        }
    </style>
</head>
<body>
    <div class="content">
%s
    </div>
    <footer>
        <p><small>Generated on %s</small></p>
    </footer>
</body>
</html>
`

func (w *Writer) writeHTML(dir, name, title, content string, now time.Time) (string, error) {
	doc := fmt.Sprintf(htmlDocument,
		html.EscapeString(title),
		markdownToHTML(content),
		now.Format(humanLayout))
	return w.writeFile(dir, name, []byte(doc))
}

// markdownToHTML converts the restricted Markdown subset line by line:
// headings one to three, paragraphs for other non-blank lines, a break
// for blank ones. Text is escaped.
func markdownToHTML(content string) string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(line, "# "):
			lines = append(lines, "<h1>"+html.EscapeString(line[2:])+"</h1>")
		case strings.HasPrefix(line, "## "):
			lines = append(lines, "<h2>"+html.EscapeString(line[3:])+"</h2>")
		case strings.HasPrefix(line, "### "):
			lines = append(lines, "<h3>"+html.EscapeString(line[4:])+"</h3>")
		case strings.TrimSpace(line) != "":
			lines = append(lines, "<p>"+html.EscapeString(line)+"</p>")
		default:
			lines = append(lines, "<br>")
		}
	}
	return strings.Join(lines, "\n")
}
