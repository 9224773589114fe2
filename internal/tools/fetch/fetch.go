// Package fetch implements the web_fetch tool for retrieving URL content.
package fetch

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/aatumaykin/cronbot/internal/config"
	"github.com/aatumaykin/cronbot/internal/logger"
)

// Compiled once, used on every fetch that post-processes HTML.
var (
	reScript     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	reStyle      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	reTags       = regexp.MustCompile(`<[^>]+>`)
	reWhitespace = regexp.MustCompile(`\s+`)
	reHorizSpace = regexp.MustCompile(`[ \t]+`)
	reBlankRuns  = regexp.MustCompile(`\n{3,}`)
)

type FetchTool struct {
	cfg    *config.Config
	logger *logger.Logger
}

type FetchArgs struct {
	URL             string            `json:"url"`
	Format          string            `json:"format"`
	Headers         map[string]string `json:"headers"`
	Method          string            `json:"method"`
	Body            string            `json:"body"`
	BasicAuth       *BasicAuth        `json:"basicAuth"`
	Cookies         map[string]string `json:"cookies"`
	FollowRedirects *bool             `json:"followRedirects"`
	Timeout         *int              `json:"timeout"`
}

type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func NewFetchTool(cfg *config.Config, log *logger.Logger) *FetchTool {
	return &FetchTool{
		cfg:    cfg,
		logger: log,
	}
}

func (t *FetchTool) Name() string {
	return "web_fetch"
}

func (t *FetchTool) Description() string {
	return "Fetch content from a URL. Returns formatted text with metadata."
}

func (t *FetchTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to fetch. Must start with http:// or https://",
			},
			"format": map[string]any{
				"type":        "string",
				"enum":        []string{"text", "html", "markdown", "json"},
				"default":     "text",
				"description": "Output format: 'text' (strips HTML tags), 'html' (raw HTML), 'markdown' (converts HTML to Markdown), or 'json' (parse JSON response)",
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Optional HTTP headers. Example: {\"Authorization\": \"Bearer token\"}",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
			"basicAuth": map[string]any{
				"type":        "object",
				"description": "Optional Basic Authentication. Example: {\"username\": \"user\", \"password\": \"pass\"}",
				"properties": map[string]any{
					"username": map[string]any{
						"type":        "string",
						"description": "Username for Basic Auth",
					},
					"password": map[string]any{
						"type":        "string",
						"description": "Password for Basic Auth",
					},
				},
			},
			"cookies": map[string]any{
				"type":        "object",
				"description": "Optional cookies to send. Example: {\"sessionid\": \"abc123\", \"user_pref\": \"dark\"}",
				"additionalProperties": map[string]any{
					"type": "string",
				},
			},
			"followRedirects": map[string]any{
				"type":        "boolean",
				"default":     true,
				"description": "Follow HTTP redirects. Set to false to stop at the first redirect and return the redirect URL",
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Timeout in seconds (1-120). Overrides the default configuration. Omit to use default timeout",
				"minimum":     1,
				"maximum":     120,
			},
			"method": map[string]any{
				"type":        "string",
				"enum":        []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
				"default":     "GET",
				"description": "HTTP method to use",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Request body (for POST, PUT, PATCH methods)",
			},
		},
		"required": []any{"url"},
	}
}

func (t *FetchTool) Execute(args string) (string, error) {
	return t.ExecuteWithContext(context.Background(), args)
}

// ExecuteWithContext runs the fetch under the registry's execution context,
// so cancelling the agent run aborts an in-flight request.
func (t *FetchTool) ExecuteWithContext(ctx context.Context, args string) (string, error) {
	if !t.cfg.Tools.Fetch.Enabled {
		return "", fmt.Errorf("web_fetch tool is disabled in configuration")
	}

	var fetchArgs FetchArgs
	if err := json.Unmarshal([]byte(args), &fetchArgs); err != nil {
		return "", fmt.Errorf("failed to parse arguments: %w", err)
	}

	timeout, err := t.normalizeArgs(&fetchArgs)
	if err != nil {
		return "", err
	}

	req, err := t.buildRequest(ctx, &fetchArgs)
	if err != nil {
		return "", err
	}

	client := &http.Client{Timeout: timeout}
	if fetchArgs.FollowRedirects != nil && !*fetchArgs.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := t.readBody(resp)
	if err != nil {
		return "", err
	}

	return t.renderResult(&fetchArgs, resp, body)
}

// normalizeArgs validates the arguments, fills in defaults, and resolves
// the effective timeout.
func (t *FetchTool) normalizeArgs(fetchArgs *FetchArgs) (time.Duration, error) {
	if fetchArgs.URL == "" {
		return 0, fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(fetchArgs.URL, "http://") && !strings.HasPrefix(fetchArgs.URL, "https://") {
		return 0, fmt.Errorf("url must start with http:// or https://")
	}

	if fetchArgs.Format == "" {
		fetchArgs.Format = "text"
	}
	if fetchArgs.Method == "" {
		fetchArgs.Method = "GET"
	}
	if fetchArgs.Body != "" && (fetchArgs.Method == "GET" || fetchArgs.Method == "HEAD" || fetchArgs.Method == "DELETE") {
		fetchArgs.Body = ""
	}

	timeout := time.Duration(t.cfg.Tools.Fetch.TimeoutSeconds) * time.Second
	if fetchArgs.Timeout != nil {
		if *fetchArgs.Timeout < 1 {
			return 0, fmt.Errorf("timeout must be at least 1 second")
		}
		if *fetchArgs.Timeout > 120 {
			return 0, fmt.Errorf("timeout cannot exceed 120 seconds")
		}
		timeout = time.Duration(*fetchArgs.Timeout) * time.Second
	}

	return timeout, nil
}

func (t *FetchTool) buildRequest(ctx context.Context, fetchArgs *FetchArgs) (*http.Request, error) {
	var bodyReader io.Reader
	if fetchArgs.Body != "" {
		bodyReader = strings.NewReader(fetchArgs.Body)
	}

	req, err := http.NewRequestWithContext(ctx, fetchArgs.Method, fetchArgs.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.cfg.Tools.Fetch.UserAgent)
	req.Header.Set("Accept", "*/*")

	if fetchArgs.Body != "" && !hasContentType(fetchArgs.Headers) {
		req.Header.Set("Content-Type", "application/json")
	}

	for name, value := range fetchArgs.Headers {
		req.Header.Set(name, value)
	}

	if fetchArgs.BasicAuth != nil && fetchArgs.BasicAuth.Username != "" {
		authValue := fetchArgs.BasicAuth.Username + ":" + fetchArgs.BasicAuth.Password
		encodedAuth := base64.StdEncoding.EncodeToString([]byte(authValue))
		req.Header.Set("Authorization", "Basic "+encodedAuth)
	}

	if len(fetchArgs.Cookies) > 0 {
		cookiePairs := make([]string, 0, len(fetchArgs.Cookies))
		for key, value := range fetchArgs.Cookies {
			cookiePairs = append(cookiePairs, key+"="+value)
		}
		req.Header.Set("Cookie", strings.Join(cookiePairs, "; "))
	}

	return req, nil
}

func hasContentType(headers map[string]string) bool {
	for name := range headers {
		if strings.EqualFold(name, "Content-Type") {
			return true
		}
	}
	return false
}

// readBody reads the response up to the configured size limit and rejects
// responses that hit it.
func (t *FetchTool) readBody(resp *http.Response) ([]byte, error) {
	maxSize := t.cfg.Tools.Fetch.MaxResponseSize

	if resp.ContentLength > maxSize {
		return nil, fmt.Errorf("response too large: %d bytes exceeds %d bytes limit",
			resp.ContentLength, maxSize)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if int64(len(body)) >= maxSize {
		return nil, fmt.Errorf("response truncated: exceeds %d bytes limit", maxSize)
	}

	return body, nil
}

func (t *FetchTool) renderResult(fetchArgs *FetchArgs, resp *http.Response, body []byte) (string, error) {
	contentType := resp.Header.Get("Content-Type")
	content := string(body)

	isHTML := strings.Contains(contentType, "text/html")
	switch {
	case fetchArgs.Format == "text" && isHTML:
		content = t.stripHTML(content)
	case fetchArgs.Format == "markdown" && isHTML:
		content = t.htmlToMarkdown(content)
	}

	result := map[string]any{
		"url":         fetchArgs.URL,
		"status":      resp.StatusCode,
		"statusText":  resp.Status,
		"contentType": contentType,
		"length":      len(content),
		"content":     content,
	}

	if fetchArgs.Format == "json" {
		var jsonData any
		if err := json.Unmarshal(body, &jsonData); err != nil {
			return "", fmt.Errorf("failed to parse JSON response: %w", err)
		}
		result["json"] = jsonData
	}

	headers := make(map[string]string)
	for key, values := range resp.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	result["headers"] = headers

	resultJSON, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	return string(resultJSON), nil
}

func (t *FetchTool) stripHTML(html string) string {
	html = reScript.ReplaceAllString(html, "")
	html = reStyle.ReplaceAllString(html, "")
	html = reTags.ReplaceAllString(html, "\n")
	html = reWhitespace.ReplaceAllString(html, " ")

	return strings.TrimSpace(html)
}

func (t *FetchTool) htmlToMarkdown(html string) string {
	opts := &md.Options{
		HeadingStyle:    "atx",
		CodeBlockStyle:  "fenced",
		EmDelimiter:     "*",
		StrongDelimiter: "**",
	}

	converter := md.NewConverter("", true, opts)

	converter.Keep("a", "img")

	converter.AddRules(md.Rule{
		Filter: []string{"nav", "footer", "aside", "script", "style"},
		Replacement: func(content string, selec *goquery.Selection, opt *md.Options) *string {
			empty := ""
			return &empty
		},
	})

	markdown, err := converter.ConvertString(html)
	if err != nil {
		t.logger.Error("Failed to convert HTML to Markdown", err)
		return ""
	}

	markdown = reHorizSpace.ReplaceAllString(markdown, " ")
	markdown = reBlankRuns.ReplaceAllString(markdown, "\n\n")

	return strings.TrimSpace(markdown)
}
