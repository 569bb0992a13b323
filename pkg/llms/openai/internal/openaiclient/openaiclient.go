package openaiclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "openai")

const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultChatModel = "gpt-4o-mini"
)

// ErrEmptyResponse is returned when the API returns no choices.
var ErrEmptyResponse = errors.New("empty response")

// ChunkStream is a decoded SSE stream of chat completion chunks.
type ChunkStream = ssestream.Stream[openai.ChatCompletionChunk]

// Client is a client for OpenAI compatible Chat Completions APIs.
type Client struct {
	Model string

	token        string
	baseURL      string
	organization string
	httpClient   Doer
}

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// New returns a new client.
func New(model, token, baseURL, organization string, httpClient Doer) *Client {
	c := &Client{
		Model:        model,
		token:        token,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		organization: organization,
		httpClient:   httpClient,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	return c
}

// CreateChat sends a chat completion request.
func (c *Client) CreateChat(ctx context.Context, params *openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	c.setModel(params)
	resp, err := c.createChat(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp, nil
}

// CreateChatStream sends a streaming chat completion request.
// The caller must Close the returned stream.
func (c *Client) CreateChatStream(ctx context.Context, params *openai.ChatCompletionNewParams) (*ChunkStream, error) {
	c.setModel(params)
	return c.createChatStream(ctx, params)
}

func (c *Client) setModel(params *openai.ChatCompletionNewParams) {
	if params.Model == "" {
		if c.Model == "" {
			params.Model = DefaultChatModel
		} else {
			params.Model = c.Model
		}
	}
}

func (c *Client) setHeaders(req *http.Request, stream bool) {
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if c.organization != "" {
		req.Header.Set("OpenAI-Organization", c.organization)
	}
}

func (c *Client) buildURL(suffix string) string {
	return c.baseURL + suffix
}

type errorMessage struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
