package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// FormulaReferenceTool fetches the official documentation page for a
// spreadsheet function so the planner can check exact argument
// semantics before committing to a formula.
type FormulaReferenceTool struct {
	// BaseURL is the documentation search endpoint; the function name
	// is appended as the query. Overridable for tests.
	BaseURL   string
	UserAgent string
}

func NewFormulaReferenceTool() *FormulaReferenceTool {
	return &FormulaReferenceTool{
		BaseURL:   "https://support.google.com/docs/search?q=",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
	}
}

func (t *FormulaReferenceTool) Name() string { return "formula_reference" }

func (t *FormulaReferenceTool) Description() string {
	return "Look up the official documentation for a spreadsheet function (e.g., SUMIF, XLOOKUP) and return the page content as clean text."
}

func (t *FormulaReferenceTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"function": map[string]any{
				"type":        "string",
				"description": "The function name to look up (e.g., \"SUMPRODUCT\")",
			},
		},
		"required": []string{"function"},
	}
}

func (t *FormulaReferenceTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Function string `json:"function"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %v", err)
	}
	name := strings.ToUpper(strings.TrimSpace(args.Function))
	if name == "" {
		return "Error: function name is required", nil
	}

	target := t.BaseURL + url.QueryEscape(name+" function")

	client := &http.Client{
		Timeout: 30 * time.Second,
	}
	req, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", t.UserAgent)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch documentation: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch documentation: status code %d", resp.StatusCode)
	}

	parsedURL, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %v", err)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %v", err)
	}

	// Sanitize output (remove any remaining HTML tags or scripts)
	p := bluemonday.StrictPolicy()
	sanitized := p.Sanitize(article.TextContent)

	output := fmt.Sprintf("FUNCTION: %s\nTITLE: %s\n\n-- CONTENT --\n", name, article.Title)

	// Limit content length to avoid massive token usage
	content := sanitized
	if len(content) > 10000 {
		content = content[:10000] + "\n... (content truncated) ..."
	}
	output += content

	return output, nil
}
