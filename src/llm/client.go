// Package llm talks to a local Ollama server for text and image translation.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultURL  = "http://localhost:11434"
	tagsTimeout = 5 * time.Second
)

// Ollama API structures
type GenerateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	Images  []string         `json:"images,omitempty"`
	Stream  bool             `json:"stream"`
	Options *GenerateOptions `json:"options,omitempty"`
}

type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

type GenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type Model struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

type tagsResponse struct {
	Models []Model `json:"models"`
}

// Client is a minimal Ollama HTTP client.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client whose generate calls are bounded by timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.baseURL }

// Models lists the models installed on the server.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	ctx, cancel := context.WithTimeout(ctx, tagsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, &Error{Kind: KindUnexpected, Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: KindBadStatus, Status: resp.StatusCode}
	}
	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, &Error{Kind: KindUnexpected, Err: fmt.Errorf("decode tags: %w", err)}
	}
	return tags.Models, nil
}

// FindModel reports the first installed model whose name contains name.
func FindModel(models []Model, name string) (Model, bool) {
	for _, m := range models {
		if strings.Contains(m.Name, name) {
			return m, true
		}
	}
	return Model{}, false
}

// Generate runs one non-streaming generation and returns the trimmed text.
func (c *Client) Generate(ctx context.Context, request GenerateRequest) (string, error) {
	request.Stream = false
	resp, err := c.post(ctx, request)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", classify(fmt.Errorf("decode response: %w", err))
	}
	if out.Error != "" {
		return "", &Error{Kind: KindUnexpected, Err: fmt.Errorf("ollama: %s", out.Error)}
	}
	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", &Error{Kind: KindEmpty}
	}
	return text, nil
}

// GenerateStream runs a streaming generation, calling onChunk for every
// partial response. It returns the trimmed concatenation.
func (c *Client) GenerateStream(ctx context.Context, request GenerateRequest, onChunk func(string)) (string, error) {
	request.Stream = true
	resp, err := c.post(ctx, request)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk GenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return "", &Error{Kind: KindUnexpected, Err: fmt.Errorf("decode chunk: %w", err)}
		}
		if chunk.Error != "" {
			return "", &Error{Kind: KindUnexpected, Err: fmt.Errorf("ollama: %s", chunk.Error)}
		}
		full.WriteString(chunk.Response)
		if onChunk != nil && chunk.Response != "" {
			onChunk(chunk.Response)
		}
		if chunk.Done {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return "", classify(err)
	}
	text := strings.TrimSpace(full.String())
	if text == "" {
		return "", &Error{Kind: KindEmpty}
	}
	return text, nil
}

func (c *Client) post(ctx context.Context, request GenerateRequest) (*http.Response, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, &Error{Kind: KindEncode, Err: fmt.Errorf("marshal request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindUnexpected, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &Error{Kind: KindBadStatus, Status: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(detail)))}
	}
	return resp, nil
}
