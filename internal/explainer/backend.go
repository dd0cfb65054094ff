// internal/explainer/backend.go
package explainer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrGenerationUnreachable indicates every generation endpoint is down or timed out
var ErrGenerationUnreachable = errors.New("all generation endpoints unreachable")

// errEndpointDown marks a failure that should move on to the next endpoint
var errEndpointDown = errors.New("endpoint unavailable")

// Endpoint wire formats
const (
	FormatOllama = "ollama"
	FormatOpenAI = "openai"
)

// Generator produces raw text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Endpoint represents a single generation service
type Endpoint struct {
	URL    string
	Model  string
	Format string // FormatOllama (default) or FormatOpenAI
	APIKey string
}

// Options bound the generator's output and wait time
type Options struct {
	Temperature float64
	MaxTokens   int
	Stop        []string
	Timeout     time.Duration
}

// DefaultOptions keeps output short and close to deterministic
func DefaultOptions() Options {
	return Options{
		Temperature: 0.2,
		MaxTokens:   250,
		Stop:        []string{"\n\n", "```"},
		Timeout:     30 * time.Second,
	}
}

// Client calls generation endpoints in order, falling back on availability
// errors
type Client struct {
	endpoints []Endpoint
	opts      Options
	client    *http.Client
	log       *logrus.Logger
}

// NewClient creates a client with a fallback chain. The HTTP client is
// shared by all calls.
func NewClient(endpoints []Endpoint, opts Options, log *logrus.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	return &Client{
		endpoints: endpoints,
		opts:      opts,
		log:       log,
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
	}
}

// Generate sends the prompt to each endpoint in turn. It returns
// ErrGenerationUnreachable only if all of them are unavailable; other
// errors (bad request, undecodable reply) stop the chain.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if len(c.endpoints) == 0 {
		return "", fmt.Errorf("%w: no endpoints configured", ErrGenerationUnreachable)
	}

	var lastErr error
	for i, ep := range c.endpoints {
		text, err := c.tryEndpoint(ctx, ep, prompt)
		if err == nil {
			if i > 0 {
				c.log.WithFields(logrus.Fields{"endpoint": ep.URL, "model": ep.Model, "failures": i}).
					Info("Generation fallback endpoint succeeded")
			}
			return text, nil
		}

		endpointFailures.WithLabelValues(ep.Model).Inc()
		lastErr = err
		if errors.Is(err, errEndpointDown) {
			c.log.WithError(err).WithFields(logrus.Fields{"endpoint": ep.URL, "model": ep.Model}).
				Warn("Generation endpoint unavailable, trying next")
			continue
		}
		return "", err
	}

	return "", fmt.Errorf("%w: %v", ErrGenerationUnreachable, lastErr)
}

func (c *Client) tryEndpoint(ctx context.Context, ep Endpoint, prompt string) (string, error) {
	var reqBody map[string]interface{}
	var path string

	switch ep.Format {
	case FormatOpenAI:
		path = "/chat/completions"
		reqBody = map[string]interface{}{
			"model": ep.Model,
			"messages": []map[string]string{
				{"role": "user", "content": prompt},
			},
			"temperature": c.opts.Temperature,
			"max_tokens":  c.opts.MaxTokens,
			"stop":        c.opts.Stop,
		}
	case FormatOllama, "":
		path = "/api/generate"
		reqBody = map[string]interface{}{
			"model":  ep.Model,
			"prompt": prompt,
			"stream": false,
			"options": map[string]interface{}{
				"temperature": c.opts.Temperature,
				"num_predict": c.opts.MaxTokens,
				"stop":        c.opts.Stop,
			},
		}
	default:
		return "", fmt.Errorf("unknown endpoint format %q", ep.Format)
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := strings.TrimSuffix(ep.URL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if ep.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+ep.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Connection refused, DNS failure and timeouts all land here
		return "", fmt.Errorf("%w: %v", errEndpointDown, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadGateway ||
		resp.StatusCode == http.StatusServiceUnavailable ||
		resp.StatusCode == http.StatusGatewayTimeout {
		return "", fmt.Errorf("%w: HTTP %d", errEndpointDown, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", errEndpointDown, err)
	}

	if ep.Format == FormatOpenAI {
		var apiResp struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(data, &apiResp); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
		if len(apiResp.Choices) == 0 {
			return "", errors.New("empty response from API")
		}
		return apiResp.Choices[0].Message.Content, nil
	}

	var genResp struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(data, &genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return genResp.Response, nil
}

// ProbeResult describes one endpoint's health
type ProbeResult struct {
	Endpoint       Endpoint `json:"-"`
	URL            string   `json:"url"`
	Model          string   `json:"model"`
	Reachable      bool     `json:"reachable"`
	ModelAvailable bool     `json:"model_available"`
	Models         []string `json:"models,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Probe lists models on every endpoint. It never fails; problems are
// reported per endpoint.
func (c *Client) Probe(ctx context.Context) []ProbeResult {
	results := make([]ProbeResult, 0, len(c.endpoints))
	for _, ep := range c.endpoints {
		res := ProbeResult{Endpoint: ep, URL: ep.URL, Model: ep.Model}
		models, err := c.listModels(ctx, ep)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Reachable = true
			res.Models = models
			for _, m := range models {
				if m == ep.Model || strings.HasPrefix(m, ep.Model+":") {
					res.ModelAvailable = true
					break
				}
			}
		}
		results = append(results, res)
	}
	return results
}

// Reachable reports whether any endpoint answers a probe
func (c *Client) Reachable(ctx context.Context) bool {
	for _, r := range c.Probe(ctx) {
		if r.Reachable {
			return true
		}
	}
	return false
}

func (c *Client) listModels(ctx context.Context, ep Endpoint) ([]string, error) {
	path := "/api/tags"
	if ep.Format == FormatOpenAI {
		path = "/models"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(ep.URL, "/")+path, nil)
	if err != nil {
		return nil, err
	}
	if ep.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+ep.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var body struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	var names []string
	for _, m := range body.Models {
		names = append(names, m.Name)
	}
	for _, m := range body.Data {
		names = append(names, m.ID)
	}
	return names, nil
}
