// Package completion calls an OpenAI-compatible inference endpoint and
// normalizes the free-form completion text into an answer and a short
// explanation.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/localchat/pkg/llm"
	"github.com/papercomputeco/localchat/pkg/metrics"
)

// NoContentPlaceholder replaces a completion that carried no content.
const NoContentPlaceholder = "No content returned from model."

// SystemInstruction is prepended to every conversation sent upstream.
const SystemInstruction = `You are a helpful assistant running locally.
Respond with exactly one JSON object and nothing else, in this shape:
{"answer": "<your reply to the user>", "explanation": "<short rationale>"}
The explanation must be 1-3 short bullet-style points, each starting with "- ".
Do not include analysis channels, role markers, special tokens or any other
internal metadata in either field.`

// Config configures a Client.
type Config struct {
	// BaseURL of the inference server, without the /v1 suffix.
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout of zero leaves the transport default in place.
	Timeout time.Duration
}

// Client sends one blocking chat completion request per Complete call.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// New creates a new Client. m may be nil.
func New(config Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/v1")

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
		metrics:    m,
	}
}

// Endpoint is the full chat completions URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.config.BaseURL + "/v1/chat/completions"
}

// BuildRequest prepends the system instruction to history and applies the
// fixed generation parameters.
func (c *Client) BuildRequest(history []llm.Turn) llm.ChatRequest {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: SystemInstruction})
	messages = append(messages, llm.ToMessages(history)...)

	return llm.ChatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
		Stream:      false,
	}
}

// Complete sends history upstream and extracts a NormalizedReply from the
// first choice. It fails only with *UpstreamError or a request construction
// error; malformed model output is never an error.
func (c *Client) Complete(ctx context.Context, history []llm.Turn) (llm.NormalizedReply, error) {
	startTime := time.Now()

	raw, err := c.forward(ctx, c.BuildRequest(history))
	c.metrics.ObserveUpstreamLatency(time.Since(startTime))
	if err != nil {
		return llm.NormalizedReply{}, err
	}

	reply, path := ExtractWithPath(raw)
	c.metrics.ObserveExtraction(string(path))

	c.logger.Debug("normalized completion",
		zap.String("path", string(path)),
		zap.String("answer_preview", truncate(reply.Answer, 100)),
		zap.Bool("has_explanation", reply.Explanation != ""),
		zap.Duration("duration", time.Since(startTime)),
	)

	return reply, nil
}

// forward posts the request and returns the raw completion text.
func (c *Client) forward(ctx context.Context, req llm.ChatRequest) (string, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Debug("forwarding request to upstream",
		zap.String("url", c.Endpoint()),
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
		zap.Int("body_size", len(reqBody)),
	)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &UpstreamError{Err: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return "", &UpstreamError{Status: httpResp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		c.logger.Error("upstream returned error",
			zap.Int("status", httpResp.StatusCode),
			zap.String("body", truncate(string(body), 500)),
		)
		return "", &UpstreamError{Status: httpResp.StatusCode, Body: string(body)}
	}

	var resp llm.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &UpstreamError{
			Status: httpResp.StatusCode,
			Body:   string(body),
			Err:    fmt.Errorf("unmarshal response: %w", err),
		}
	}

	content, ok := resp.FirstContent()
	if !ok {
		c.logger.Warn("upstream response carried no content", zap.Int("choices", len(resp.Choices)))
		return NoContentPlaceholder, nil
	}
	return content, nil
}

func truncate(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
