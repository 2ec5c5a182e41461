package diarization

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"parley/internal/services"
	"parley/internal/speakers"
)

const (
	defaultTimeout   = 10 * time.Minute
	maxErrorBodySize = 4 << 10
	stageName        = "diarization"
)

// Config captures the runtime settings required to reach the endpoint.
type Config struct {
	BaseURL  string
	Endpoint string
	Token    string
	Timeout  time.Duration
}

// Client invokes the serving endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	invokeURL  string
	statusURL  string
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client for the configured endpoint.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Token = strings.TrimSpace(cfg.Token)
	if cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new client", "base url required", nil)
	}
	if cfg.Endpoint == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new client", "endpoint name required", nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	invokeURL, err := url.JoinPath(cfg.BaseURL, "serving-endpoints", cfg.Endpoint, "invocations")
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new client", "invalid base url", err)
	}
	statusURL, err := url.JoinPath(cfg.BaseURL, "api", "2.0", "serving-endpoints", cfg.Endpoint)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "new client", "invalid base url", err)
	}

	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		invokeURL:  invokeURL,
		statusURL:  statusURL,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Timeout returns the configured per-request timeout.
func (c *Client) Timeout() time.Duration { return c.cfg.Timeout }

// Request is one chunk to diarize.
type Request struct {
	Audio      []byte
	ChunkIndex int
	// References are sent only when ChunkIndex > 0.
	References map[string]speakers.Embedding
}

// Response is the endpoint's answer for one chunk.
type Response struct {
	Dialog        string
	Transcription string
	// Embeddings maps local speaker labels to voice embeddings. Speakers
	// with too little speech may be absent.
	Embeddings map[string]speakers.Embedding
	Status     string
}

type invocationRequest struct {
	DataframeRecords []invocationRecord `json:"dataframe_records"`
}

type invocationRecord struct {
	AudioBase64         string `json:"audio_base64"`
	ReferenceEmbeddings string `json:"reference_embeddings,omitempty"`
	ChunkIndex          int    `json:"chunk_index"`
}

type invocationResponse struct {
	Predictions []prediction `json:"predictions"`
}

type prediction struct {
	Dialog            *string         `json:"dialog"`
	Transcription     string          `json:"transcription"`
	SpeakerEmbeddings json.RawMessage `json:"speaker_embeddings"`
	Status            string          `json:"status"`
	Error             string          `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("diarization request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Diarize sends one chunk and validates the prediction.
func (c *Client) Diarize(ctx context.Context, req Request) (Response, error) {
	if len(req.Audio) == 0 {
		return Response{}, services.Wrap(services.ErrValidation, stageName, "invoke", "empty audio chunk", nil)
	}

	record := invocationRecord{
		AudioBase64: base64.StdEncoding.EncodeToString(req.Audio),
		ChunkIndex:  req.ChunkIndex,
	}
	refDim := 0
	if req.ChunkIndex > 0 && len(req.References) > 0 {
		encoded, err := json.Marshal(req.References)
		if err != nil {
			return Response{}, services.Wrap(services.ErrValidation, stageName, "invoke", "encode reference embeddings", err)
		}
		record.ReferenceEmbeddings = string(encoded)
		for _, emb := range req.References {
			refDim = len(emb)
			break
		}
	}

	body, err := json.Marshal(invocationRequest{DataframeRecords: []invocationRecord{record}})
	if err != nil {
		return Response{}, services.Wrap(services.ErrValidation, stageName, "invoke", "encode request", err)
	}

	var decoded invocationResponse
	if err := c.do(ctx, http.MethodPost, c.invokeURL, body, &decoded); err != nil {
		return Response{}, err
	}

	if len(decoded.Predictions) == 0 {
		return Response{}, services.Wrap(services.ErrExternalTool, stageName, "invoke", "invalid response: predictions missing or empty", nil)
	}
	pred := decoded.Predictions[0]
	if msg := strings.TrimSpace(pred.Error); msg != "" {
		return Response{}, services.Wrap(services.ErrExternalTool, stageName, "invoke", "endpoint error: "+msg, nil)
	}
	if strings.EqualFold(pred.Status, "error") {
		return Response{}, services.Wrap(services.ErrExternalTool, stageName, "invoke", "endpoint reported status error", nil)
	}
	if pred.Dialog == nil {
		return Response{}, services.Wrap(services.ErrExternalTool, stageName, "invoke", "invalid response: missing 'dialog' key in prediction", nil)
	}

	embeddings, err := decodeEmbeddings(pred.SpeakerEmbeddings)
	if err != nil {
		return Response{}, services.Wrap(services.ErrExternalTool, stageName, "invoke", "decode speaker_embeddings", err)
	}
	if refDim > 0 {
		for label, emb := range embeddings {
			if len(emb) != refDim {
				return Response{}, services.Wrap(services.ErrValidation, stageName, "invoke",
					fmt.Sprintf("speaker %q embedding has %d dimensions, references have %d", label, len(emb), refDim),
					speakers.ErrDimensionMismatch)
			}
		}
	}

	return Response{
		Dialog:        *pred.Dialog,
		Transcription: pred.Transcription,
		Embeddings:    embeddings,
		Status:        pred.Status,
	}, nil
}

// HealthCheck confirms the endpoint exists and the token is accepted.
func (c *Client) HealthCheck(ctx context.Context) error {
	var status struct {
		Name  string `json:"name"`
		State struct {
			Ready string `json:"ready"`
		} `json:"state"`
	}
	if err := c.do(ctx, http.MethodGet, c.statusURL, nil, &status); err != nil {
		return err
	}
	if ready := strings.TrimSpace(status.State.Ready); ready != "" && !strings.EqualFold(ready, "READY") {
		return services.Wrap(services.ErrTransient, stageName, "health", "endpoint state "+ready, nil)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, out any) error {
	op := "invoke"
	if method == http.MethodGet {
		op = "health"
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stageName, op, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return services.Wrap(services.ErrTimeout, stageName, op, fmt.Sprintf("no response within %s", c.cfg.Timeout), err)
		}
		return services.Wrap(services.ErrTransient, stageName, op, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		statusErr := &httpStatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
		return services.Wrap(statusMarker(resp.StatusCode), stageName, op, "", statusErr)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return services.Wrap(services.ErrTimeout, stageName, op, "reading response", err)
		}
		return services.Wrap(services.ErrExternalTool, stageName, op, "decode response", err)
	}
	return nil
}

func statusMarker(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return services.ErrConfiguration
	case code == http.StatusNotFound:
		return services.ErrNotFound
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return services.ErrTimeout
	case code == http.StatusTooManyRequests || code >= 500:
		return services.ErrTransient
	default:
		return services.ErrExternalTool
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// decodeEmbeddings accepts speaker_embeddings either as a JSON-encoded
// string (the serving contract) or as an inline object.
func decodeEmbeddings(raw json.RawMessage) (map[string]speakers.Embedding, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, err
		}
		inner = strings.TrimSpace(inner)
		if inner == "" || inner == "null" {
			return nil, nil
		}
		raw = json.RawMessage(inner)
	}
	var out map[string]speakers.Embedding
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
