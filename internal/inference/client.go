package inference

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/qcbench/qcbench/internal/qcerr"
)

// Client talks to one inference server's /api/* surface (spec.md §6).
// The underlying *http.Client carries no aggregate timeout, and no call
// sets a deadline of its own: each request is bounded only by the context
// the caller passes in.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient returns a Client against endpoint (e.g. http://localhost:11434).
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{endpoint: strings.TrimRight(endpoint, "/"), http: httpClient}
}

func (c *Client) url(path string) string { return c.endpoint + path }

// Version returns the server's semantic version string, or the typed
// "unreachable" network error spec.md §4.2 names.
func (c *Client) Version(ctx context.Context) (string, error) {
	var out struct {
		Version string `json:"version"`
	}
	if err := c.doJSON(ctx, "version", http.MethodGet, "/api/version", nil, &out); err != nil {
		return "", err
	}
	return out.Version, nil
}

// List returns every model reference known to the server.
func (c *Client) List(ctx context.Context) ([]ModelSummary, error) {
	var out struct {
		Models []ModelSummary `json:"models"`
	}
	if err := c.doJSON(ctx, "list", http.MethodGet, "/api/tags", nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// Show returns the family/parameter-size/quantization metadata for model.
func (c *Client) Show(ctx context.Context, model string, verbose bool) (ModelDetails, error) {
	req := struct {
		Model   string `json:"model"`
		Verbose bool   `json:"verbose"`
	}{Model: model, Verbose: verbose}

	var out struct {
		Details struct {
			Family            string `json:"family"`
			ParameterSize     string `json:"parameter_size"`
			QuantizationLevel string `json:"quantization_level"`
		} `json:"details"`
		ModelInfo map[string]any `json:"model_info"`
	}
	if err := c.doJSON(ctx, "show", http.MethodPost, "/api/show", req, &out); err != nil {
		return ModelDetails{}, err
	}

	md := ModelDetails{
		Family:            out.Details.Family,
		ParameterSize:     out.Details.ParameterSize,
		QuantizationLevel: out.Details.QuantizationLevel,
	}
	if label, ok := out.ModelInfo["general.enhanced_quantization"].(string); ok {
		md.EnhancedQuantLabel = label
	}
	return md, nil
}

// PsLoaded returns the names of currently loaded models.
func (c *Client) PsLoaded(ctx context.Context) ([]string, error) {
	var out struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := c.doJSON(ctx, "ps", http.MethodGet, "/api/ps", nil, &out); err != nil {
		return nil, err
	}
	names := make([]string, len(out.Models))
	for i, m := range out.Models {
		names[i] = m.Name
	}
	return names, nil
}

// Generate performs a non-streaming completion with log-probabilities
// enabled. think is passed through as either a bool or a string level
// (spec.md §6), so it is typed any at the call boundary.
func (c *Client) Generate(ctx context.Context, model, prompt string, opts GenerateOptions, think any) (GenerateResult, error) {
	req := map[string]any{
		"model":     model,
		"prompt":    prompt,
		"stream":    false,
		"logprobs":  true,
		"options":   opts,
	}
	if think != nil {
		req["think"] = think
	}

	var out struct {
		Response           string `json:"response"`
		Logprobs           []struct {
			Token   string  `json:"token"`
			Logprob float64 `json:"logprob"`
		} `json:"logprobs"`
		EvalDuration       int64 `json:"eval_duration"`
		EvalCount          int   `json:"eval_count"`
		PromptEvalDuration int64 `json:"prompt_eval_duration"`
		PromptEvalCount    int   `json:"prompt_eval_count"`
	}
	if err := c.doJSON(ctx, "generate", http.MethodPost, "/api/generate", req, &out); err != nil {
		return GenerateResult{}, err
	}

	result := GenerateResult{
		Response:           out.Response,
		EvalDuration:        time.Duration(out.EvalDuration),
		EvalCount:           out.EvalCount,
		PromptEvalDuration:  time.Duration(out.PromptEvalDuration),
		PromptEvalCount:     out.PromptEvalCount,
	}
	for _, lp := range out.Logprobs {
		result.Logprobs = append(result.Logprobs, TokenLogprob{Token: lp.Token, Logprob: lp.Logprob})
	}

	if len(result.Logprobs) == 0 {
		return result, qcerr.New(qcerr.KindLogprobsUnavailable, "generate", c.url("/api/generate"))
	}
	return result, nil
}

// Chat issues a non-streaming chat call, used only to force a proper
// first load of the model (spec.md §4.2, §4.5 Prepare).
func (c *Client) Chat(ctx context.Context, model string, messages []ChatMessage, opts GenerateOptions) error {
	req := map[string]any{
		"model":    model,
		"messages": messages,
		"stream":   false,
		"options":  opts,
	}
	var out map[string]any
	return c.doJSON(ctx, "chat", http.MethodPost, "/api/chat", req, &out)
}

// Pull streams pull progress records for model, invoking onProgress for
// each one as it arrives (spec.md §4.2 "consume as streamed, no full
// buffering").
func (c *Client) Pull(ctx context.Context, model string, onProgress func(PullProgress)) error {
	body, err := json.Marshal(map[string]any{"model": model, "stream": true})
	if err != nil {
		return qcerr.Wrap(qcerr.KindConfiguration, "pull", c.url("/api/pull"), 1, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/pull"), bytes.NewReader(body))
	if err != nil {
		return qcerr.Wrap(qcerr.KindConfiguration, "pull", c.url("/api/pull"), 1, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return classifyTransportErr(ctx, "pull", c.url("/api/pull"), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("pull", c.url("/api/pull"), resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var p PullProgress
		if err := json.Unmarshal(line, &p); err != nil {
			continue
		}
		if p.Error != "" {
			return qcerr.New(qcerr.KindServerStatus, "pull", c.url("/api/pull")).WithMessage(p.Error)
		}
		if onProgress != nil {
			onProgress(p)
		}
	}
	if err := scanner.Err(); err != nil {
		return classifyTransportErr(ctx, "pull", c.url("/api/pull"), err)
	}
	return nil
}

// Delete removes model. Idempotent: "not found" is treated as success
// (spec.md §4.2, §4.5).
func (c *Client) Delete(ctx context.Context, model string) error {
	body, _ := json.Marshal(map[string]string{"model": model})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.url("/api/delete"), bytes.NewReader(body))
	if err != nil {
		return qcerr.Wrap(qcerr.KindConfiguration, "delete", c.url("/api/delete"), 1, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return classifyTransportErr(ctx, "delete", c.url("/api/delete"), err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return statusError("delete", c.url("/api/delete"), resp)
}

// PreloadKeepAlive issues a cheap no-op generate solely to refresh the
// server's keep-alive timer for model (spec.md §4.2).
func (c *Client) PreloadKeepAlive(ctx context.Context, model string, keepAlive time.Duration) error {
	req := map[string]any{
		"model":      model,
		"prompt":     "",
		"stream":     false,
		"keep_alive": keepAlive.String(),
	}
	var out map[string]any
	return c.doJSON(ctx, "generate", http.MethodPost, "/api/generate", req, &out)
}

// doJSON is the shared request/response plumbing: marshal body (if any),
// send, classify transport/status errors, and unmarshal into out.
func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return qcerr.Wrap(qcerr.KindConfiguration, op, c.url(path), 1, err)
		}
		reader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(path), reader)
	if err != nil {
		return qcerr.Wrap(qcerr.KindConfiguration, op, c.url(path), 1, err)
	}
	if reader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return classifyTransportErr(ctx, op, c.url(path), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportErr(ctx, op, c.url(path), err)
	}

	if resp.StatusCode != http.StatusOK {
		return statusErrorBody(op, c.url(path), resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return qcerr.Wrap(qcerr.KindDataIntegrity, op, c.url(path), 1, err)
	}
	return nil
}

func classifyTransportErr(ctx context.Context, op, endpoint string, err error) error {
	if ctx.Err() != nil {
		return qcerr.Wrap(qcerr.KindCancelled, op, endpoint, 1, ctx.Err())
	}
	return qcerr.Wrap(qcerr.KindNetwork, op, endpoint, 1, err)
}

func statusError(op, endpoint string, resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return statusErrorBody(op, endpoint, resp.StatusCode, body)
}

func statusErrorBody(op, endpoint string, status int, body []byte) error {
	if status == http.StatusTooManyRequests {
		return qcerr.New(qcerr.KindRateLimited, op, endpoint).WithMessage(string(body))
	}
	if status == http.StatusNotFound {
		return qcerr.New(qcerr.KindNotFound, op, endpoint).WithMessage(string(body))
	}
	e := qcerr.New(qcerr.KindServerStatus, op, endpoint)
	e.StatusCode = status
	return e.WithMessage(strconv.Itoa(status) + ": " + string(body))
}
