package openaiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/ssestream"
	"github.com/tidwall/sjson"
)

func (c *Client) createChat(ctx context.Context, payload *openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	r, err := c.post(ctx, payload, false)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}

	var resp openai.ChatCompletion
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return &resp, nil
}

func (c *Client) createChatStream(ctx context.Context, payload *openai.ChatCompletionNewParams) (*ChunkStream, error) {
	r, err := c.post(ctx, payload, true)
	if err != nil {
		return nil, err
	}
	return ssestream.NewStream[openai.ChatCompletionChunk](ssestream.NewDecoder(r), nil), nil
}

// post sends the payload to /chat/completions, the body of a successful
// response is left open for the caller.
func (c *Client) post(ctx context.Context, payload *openai.ChatCompletionNewParams, stream bool) (*http.Response, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal payload")
	}
	if stream {
		bodyBytes, err = sjson.SetBytes(bodyBytes, "stream", true)
		if err != nil {
			return nil, errors.Wrap(err, "set stream flag")
		}
	}

	u := c.buildURL("/chat/completions")
	logger.ContextKV(ctx, xlog.DEBUG, "url", u, "model", payload.Model, "stream", stream)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	c.setHeaders(req, stream)

	r, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}

	if r.StatusCode != http.StatusOK {
		defer func() { _ = r.Body.Close() }()
		msg := fmt.Sprintf("API returned unexpected status code: %d", r.StatusCode)
		if r.StatusCode == http.StatusNotFound {
			msg += ": url: " + u
		}
		var errResp errorMessage
		if err := json.NewDecoder(r.Body).Decode(&errResp); err != nil || errResp.Error.Message == "" {
			return nil, errors.New(msg)
		}
		return nil, errors.Newf("%s: %s", msg, errResp.Error.Message)
	}
	return r, nil
}
