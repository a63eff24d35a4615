// Package llmgateway provides a stable model abstraction over heterogeneous
// LLM providers, hiding health and model-availability details from callers.
package llmgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	KindLocal = "local_runtime"
	KindCloud = "cloud_aggregator"
)

// GenerateRequest is one prompt-dispatch call into a provider.
type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
}

// LLMResponse is a provider's reply.
type LLMResponse struct {
	Content  string         `json:"content"`
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Usage    map[string]int `json:"usage,omitempty"`
	Success  bool           `json:"success"`
	Error    string         `json:"error,omitempty"`
}

// Provider is one LLM backend the gateway can route to.
type Provider interface {
	Name() string
	Kind() string
	Priority() int
	DefaultModel() string
	IsAvailable(ctx context.Context) bool
	Generate(ctx context.Context, req GenerateRequest) (*LLMResponse, error)
}

// httpProvider invokes a provider over HTTP: GET {endpoint}/health for
// availability, POST {endpoint}/generate for dispatch. Endpoint is expected
// to be the agent runtime or cloud aggregator's own HTTP front door;
// no LLM-specific wire protocol is assumed beyond this pair of routes.
type httpProvider struct {
	name         string
	kind         string
	priority     int
	endpoint     string
	defaultModel string
	client       *http.Client
	checkTimeout time.Duration
}

// NewHTTPProvider builds a Provider that reaches a runtime over HTTP.
func NewHTTPProvider(name, kind string, priority int, endpoint, defaultModel string) Provider {
	return &httpProvider{
		name:         name,
		kind:         kind,
		priority:     priority,
		endpoint:     endpoint,
		defaultModel: defaultModel,
		client:       &http.Client{Timeout: 30 * time.Second},
		checkTimeout: 500 * time.Millisecond,
	}
}

func (p *httpProvider) Name() string         { return p.name }
func (p *httpProvider) Kind() string         { return p.kind }
func (p *httpProvider) Priority() int        { return p.priority }
func (p *httpProvider) DefaultModel() string { return p.defaultModel }

// IsAvailable completes within a bounded check window regardless of the
// caller's context deadline, capped at a 500ms default.
func (p *httpProvider) IsAvailable(ctx context.Context) bool {
	if p.endpoint == "" {
		return false
	}
	checkCtx, cancel := context.WithTimeout(ctx, p.checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, p.endpoint+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

type httpGenerateRequest struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"max_tokens"`
}

func (p *httpProvider) Generate(ctx context.Context, req GenerateRequest) (*LLMResponse, error) {
	if p.endpoint == "" {
		return nil, fmt.Errorf("provider %s: no endpoint configured", p.name)
	}
	body, err := json.Marshal(httpGenerateRequest{
		Prompt: req.Prompt, SystemPrompt: req.SystemPrompt, Model: req.Model,
		Temperature: req.Temperature, MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider %s: status %d", p.name, resp.StatusCode)
	}
	var out LLMResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	out.Provider = p.name
	return &out, nil
}
