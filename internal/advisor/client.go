// Package advisor talks to the Anthropic Messages API to comment on a
// period's spending and to read totals off receipt photos.
package advisor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dailybudget/internal/core"
	applog "dailybudget/internal/log"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-sonnet-4-20250514"
	anthropicVersion = "2023-06-01"

	adviceMaxTokens  = 600
	receiptMaxTokens = 30
)

var (
	ErrMissingAPIKey = errors.New("ANTHROPIC_API_KEY not set")
	ErrEmptyResponse = errors.New("empty response from model")
	ErrNoAmount      = errors.New("no amount found on receipt")
)

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithBaseURL points the client at another endpoint, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(apiKey, model string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultModel
	}
	c := &Client{
		apiKey:     apiKey,
		model:      model,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

const adviceSystemPrompt = `You are a frugal personal finance coach.
The user keeps a fixed daily spending target for the month. You receive the days on which they recorded
spending, with each expense. Reply in at most five short sentences: say whether they are on track,
point out the heaviest days, and give one concrete suggestion for the rest of the month.`

// Advise asks the model to comment on the settled days of a period.
func (c *Client) Advise(ctx context.Context, s core.Snapshot) (string, error) {
	req := messagesRequest{
		Model:     c.model,
		MaxTokens: adviceMaxTokens,
		System:    adviceSystemPrompt,
		Messages: []message{{
			Role:    "user",
			Content: []contentBlock{{Type: "text", Text: advicePrompt(s)}},
		}},
	}
	text, err := c.execute(ctx, applog.OpAdvise, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func advicePrompt(s core.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Period: %s\n", s.Config.Key)
	fmt.Fprintf(&b, "Daily target: %s\n", core.FormatAmount(s.Config.BaseDailyTarget))
	fmt.Fprintf(&b, "Days in period: %d\n", s.Config.DaysInPeriod())
	fmt.Fprintf(&b, "Total budget: %s\n", core.FormatAmount(s.Config.TotalBudget()))
	if len(s.Days) == 0 {
		b.WriteString("No spending recorded yet.\n")
		return b.String()
	}
	b.WriteString("Recorded days:\n")
	for _, d := range s.Days {
		fmt.Fprintf(&b, "- day %d: %s\n", d.Day, core.FormatAmount(d.Spent()))
		for _, e := range d.Expenses {
			label := e.Label
			if label == "" {
				label = "(no label)"
			}
			fmt.Fprintf(&b, "  - %s %s\n", core.FormatAmount(e.Amount), label)
		}
	}
	return b.String()
}

const receiptSystemPrompt = `You read receipts. Reply with the grand total paid as a plain decimal number
using a dot as decimal separator, for example 12.50. No currency symbol, no other text.
If no total is readable reply NONE.`

var amountPattern = regexp.MustCompile(`\d[\d.,]*\d|\d`)

// ExtractAmount reads the total off a receipt image.
func (c *Client) ExtractAmount(ctx context.Context, image []byte, mediaType string) (decimal.Decimal, error) {
	if len(image) == 0 {
		return decimal.Zero, &core.ValidationError{Field: "image", Err: errors.New("empty image")}
	}
	switch mediaType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
	default:
		return decimal.Zero, &core.ValidationError{Field: "image", Err: fmt.Errorf("unsupported media type %q", mediaType)}
	}

	req := messagesRequest{
		Model:     c.model,
		MaxTokens: receiptMaxTokens,
		System:    receiptSystemPrompt,
		Messages: []message{{
			Role: "user",
			Content: []contentBlock{
				{Type: "image", Source: &imageSource{
					Type:      "base64",
					MediaType: mediaType,
					Data:      base64.StdEncoding.EncodeToString(image),
				}},
				{Type: "text", Text: "What is the total of this receipt?"},
			},
		}},
	}
	text, err := c.execute(ctx, applog.OpScan, req)
	if err != nil {
		return decimal.Zero, err
	}
	return parseAmountReply(text)
}

func parseAmountReply(text string) (decimal.Decimal, error) {
	raw := amountPattern.FindString(strings.TrimSpace(text))
	if raw == "" {
		return decimal.Zero, ErrNoAmount
	}
	raw, ok := normalizeSeparators(raw)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNoAmount, text)
	}
	amount, err := core.ParseAmount(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNoAmount, text)
	}
	return amount, nil
}

func (c *Client) execute(ctx context.Context, op string, body messagesRequest) (string, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(data))
	}

	var mr messagesResponse
	if err := json.Unmarshal(data, &mr); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var text strings.Builder
	for _, block := range mr.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}

	slog.DebugContext(ctx, "Model call completed",
		applog.FieldComponent, applog.ComponentAdvisor,
		applog.FieldOperation, op,
		"model", mr.Model,
		"input_tokens", mr.Usage.InputTokens,
		"output_tokens", mr.Usage.OutputTokens,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return text.String(), nil
}

// normalizeSeparators strips digit grouping from a numeric run. With both
// separators present the last one is the decimal point. A single separator
// repeated is only accepted as grouping of three-digit blocks.
func normalizeSeparators(raw string) (string, bool) {
	dots, commas := strings.Count(raw, "."), strings.Count(raw, ",")
	switch {
	case dots > 0 && commas > 0:
		dec, group := ".", ","
		if strings.LastIndex(raw, ",") > strings.LastIndex(raw, ".") {
			dec, group = ",", "."
		}
		if strings.Count(raw, dec) != 1 {
			return "", false
		}
		intPart, _, _ := strings.Cut(raw, dec)
		if !validGrouping(intPart, group) {
			return "", false
		}
		return strings.ReplaceAll(raw, group, ""), true
	case dots > 1 || commas > 1:
		sep := "."
		if commas > 1 {
			sep = ","
		}
		if !validGrouping(raw, sep) {
			return "", false
		}
		return strings.ReplaceAll(raw, sep, ""), true
	}
	return raw, true
}

func validGrouping(s, sep string) bool {
	groups := strings.Split(s, sep)
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}
