package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Defaults for the OpenAI client.
const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 2000

	serviceName         = "openai"
	systemPrompt        = "You are an SEO expert. Give prioritized, specific and actionable recommendations based on the audit data."
	maxErrorBodyBytes   = 4096
	defaultRequestLimit = rate.Limit(1)
)

// OpenAI asks an OpenAI-compatible chat-completions API for recommendations.
type OpenAI struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *CircuitBreaker
	onState   func(string, BreakerState)
	logger    *slog.Logger
}

// OpenAIOption configures an OpenAI client.
type OpenAIOption func(*OpenAI)

// WithBaseURL sets the API base URL, e.g. "https://api.openai.com/v1".
func WithBaseURL(u string) OpenAIOption {
	return func(o *OpenAI) {
		if u != "" {
			o.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithModel sets the chat model.
func WithModel(model string) OpenAIOption {
	return func(o *OpenAI) {
		if model != "" {
			o.model = model
		}
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(o *OpenAI) {
		o.client = c
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(o *OpenAI) {
		if d > 0 {
			o.client = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit limits API calls to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) OpenAIOption {
	return func(o *OpenAI) {
		o.limiter = rate.NewLimiter(r, max(burst, 1))
	}
}

// WithBreakerObserver registers a callback for circuit state changes.
func WithBreakerObserver(fn func(service string, state BreakerState)) OpenAIOption {
	return func(o *OpenAI) {
		o.onState = fn
	}
}

// WithOpenAILogger sets a custom logger.
func WithOpenAILogger(logger *slog.Logger) OpenAIOption {
	return func(o *OpenAI) {
		o.logger = logger
	}
}

// NewOpenAI creates a client. It fails with ErrMissingAPIKey when apiKey
// is empty.
func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	o := &OpenAI{
		apiKey:    apiKey,
		baseURL:   DefaultBaseURL,
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
		client:    &http.Client{Timeout: 60 * time.Second},
		limiter:   rate.NewLimiter(defaultRequestLimit, 1),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.breaker = NewCircuitBreaker(serviceName, 3, 30*time.Second, o.onState, o.logger)
	return o, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Recommend implements Recommender. Every failure is an
// *ExternalServiceError.
func (o *OpenAI) Recommend(ctx context.Context, s Summary) (string, error) {
	var text string
	err := o.breaker.Execute(func() error {
		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		text, err = o.complete(ctx, BuildPrompt(s))
		return err
	})
	if err != nil {
		var svcErr *ExternalServiceError
		if errors.As(err, &svcErr) {
			return "", err
		}
		return "", &ExternalServiceError{Service: serviceName, Err: err}
	}
	return text, nil
}

// BreakerState returns the state of the client's circuit breaker.
func (o *OpenAI) BreakerState() BreakerState {
	return o.breaker.State()
}

func (o *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   o.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return "", &ExternalServiceError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ExternalServiceError{Service: serviceName, StatusCode: resp.StatusCode, Err: err}
	}
	o.logger.Debug("llm request finished", "model", o.model, "status", resp.StatusCode, "elapsed", time.Since(start))

	var decoded chatResponse
	decodeErr := json.Unmarshal(body, &decoded)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body[:min(len(body), maxErrorBodyBytes)]))
		if decodeErr == nil && decoded.Error != nil && decoded.Error.Message != "" {
			msg = decoded.Error.Message
		}
		return "", &ExternalServiceError{Service: serviceName, StatusCode: resp.StatusCode, Err: errors.New(msg)}
	}
	if decodeErr != nil {
		return "", &ExternalServiceError{Service: serviceName, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", decodeErr)}
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return "", &ExternalServiceError{Service: serviceName, StatusCode: resp.StatusCode, Err: ErrEmptyCompletion}
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content), nil
}

// BuildPrompt renders the audit summary as the user prompt.
func BuildPrompt(s Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze this website audit and give SEO recommendations.\n\n")
	fmt.Fprintf(&sb, "SITE: %s\n", s.Target)
	fmt.Fprintf(&sb, "Pages analyzed: %d (%d successful, %d failed)\n", s.TotalPages, s.Successful, s.Failed)
	fmt.Fprintf(&sb, "Average score: %.1f/100\n", s.Averages.Score)
	fmt.Fprintf(&sb, "Average word count: %.0f\n", s.Averages.WordCount)
	fmt.Fprintf(&sb, "Average response time: %.0f ms\n", s.Averages.ResponseTimeMS)
	fmt.Fprintf(&sb, "Average readability (Flesch): %.1f\n", s.Averages.Readability)
	if len(s.Languages) > 0 {
		fmt.Fprintf(&sb, "Languages: %s\n", strings.Join(s.Languages, ", "))
	}
	if len(s.Technology) > 0 {
		fmt.Fprintf(&sb, "Technologies: %s\n", strings.Join(s.Technology, ", "))
	}

	sb.WriteString("\nSITE-WIDE COUNTS:\n")
	fmt.Fprintf(&sb, "- Missing title: %d\n", s.Counters.MissingTitle)
	fmt.Fprintf(&sb, "- Missing meta description: %d\n", s.Counters.MissingMetaDescription)
	fmt.Fprintf(&sb, "- Missing H1: %d\n", s.Counters.MissingH1)
	fmt.Fprintf(&sb, "- Without HTTPS: %d\n", s.Counters.WithoutHTTPS)
	fmt.Fprintf(&sb, "- Low content: %d\n", s.Counters.LowContent)

	if len(s.TopIssues) > 0 {
		sb.WriteString("\nTOP ISSUES:\n")
		for _, ic := range s.TopIssues {
			fmt.Fprintf(&sb, "- [%s] %s on %d pages (e.g. %s)\n", ic.Severity, ic.Code, ic.Count, ic.Example)
		}
	}
	if len(s.ContentGaps) > 0 {
		fmt.Fprintf(&sb, "\nCONTENT GAPS vs competitors: %s\n", strings.Join(s.ContentGaps, ", "))
	}
	if len(s.TechGaps) > 0 {
		fmt.Fprintf(&sb, "TECHNICAL GAPS vs competitors: %s\n", strings.Join(s.TechGaps, "; "))
	}

	sb.WriteString("\nGroup the advice as: critical fixes, SEO optimization, content strategy, performance, and monitoring. ")
	sb.WriteString("For each item give the expected impact (high/medium/low) and the implementation effort.\n")
	return sb.String()
}
