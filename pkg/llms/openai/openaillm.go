package openai

import (
	"context"
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/toolchat/pkg/llms/openai/internal/openaiclient"
	"github.com/effective-security/x/values"
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

var (
	// ErrEmptyResponse is returned when the API returns no choices.
	ErrEmptyResponse = openaiclient.ErrEmptyResponse
	// ErrMissingToken is returned when no API token is configured.
	ErrMissingToken = errors.New("missing the OpenAI API key, set it in the OPENAI_API_KEY environment variable")
)

// LLM is an OpenAI compatible Chat Completions backend.
type LLM struct {
	client   *openaiclient.Client
	provider llms.ProviderType
}

var _ llms.StreamingModel = (*LLM)(nil)

// New returns a new OpenAI compatible LLM.
func New(opts ...Option) (*LLM, error) {
	o := &options{
		token:        os.Getenv(tokenEnvVarName),
		model:        os.Getenv(modelEnvVarName),
		baseURL:      os.Getenv(baseURLEnvVarName),
		organization: os.Getenv(organizationEnvVarName),
		provider:     llms.ProviderOpenAI,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.token == "" {
		return nil, ErrMissingToken
	}
	if o.baseURL == "" && o.provider == llms.ProviderDeepSeek {
		o.baseURL = DefaultDeepSeekURL
	}

	return &LLM{
		client:   openaiclient.New(o.model, o.token, o.baseURL, o.organization, o.httpClient),
		provider: o.provider,
	}, nil
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return o.provider
}

// GenerateContent implements the Model interface.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	req, err := newChatRequest(messages, llms.NewCallOptions(options...))
	if err != nil {
		return nil, err
	}

	result, err := o.client.CreateChat(ctx, req)
	if err != nil {
		return nil, err
	}

	choices := make([]*llms.ContentChoice, len(result.Choices))
	for i, c := range result.Choices {
		choices[i] = &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: c.FinishReason,
			GenerationInfo: map[string]any{
				"CompletionTokens": result.Usage.CompletionTokens,
				"PromptTokens":     result.Usage.PromptTokens,
				"TotalTokens":      result.Usage.TotalTokens,
			},
		}
		for _, tool := range c.Message.ToolCalls {
			choices[i].ToolCalls = append(choices[i].ToolCalls, llms.ToolCall{
				ID:   tool.ID,
				Type: values.StringsCoalesce(tool.Type, "function"),
				FunctionCall: &llms.FunctionCall{
					Name:      tool.Function.Name,
					Arguments: tool.Function.Arguments,
				},
			})
		}
	}
	return &llms.ContentResponse{Choices: choices}, nil
}

// StreamContent implements the StreamingModel interface.
// Tool call fragments keep the slot index reported by the API.
func (o *LLM) StreamContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (llms.FragmentStream, error) {
	req, err := newChatRequest(messages, llms.NewCallOptions(options...))
	if err != nil {
		return nil, err
	}

	out, sctx := llms.NewChannelStream(ctx, 16)
	stream, err := o.client.CreateChatStream(sctx, req)
	if err != nil {
		out.Finish(nil)
		_ = out.Close()
		return nil, err
	}

	go func() {
		defer func() { _ = stream.Close() }()
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			for _, f := range chunkFragments(&chunk.Choices[0]) {
				if !out.Send(sctx, f) {
					out.Finish(sctx.Err())
					return
				}
			}
		}
		out.Finish(stream.Err())
	}()
	return out, nil
}

func chunkFragments(choice *openai.ChatCompletionChunkChoice) []*llms.Fragment {
	var res []*llms.Fragment
	if choice.Delta.Content != "" {
		res = append(res, &llms.Fragment{Text: choice.Delta.Content})
	}
	for _, tc := range choice.Delta.ToolCalls {
		res = append(res, &llms.Fragment{
			ToolCall: &llms.ToolCallFragment{
				Index:     int(tc.Index),
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	if choice.FinishReason != "" {
		res = append(res, &llms.Fragment{StopReason: choice.FinishReason})
	}
	return res
}

func newChatRequest(messages []llms.Message, opts *llms.CallOptions) (*openai.ChatCompletionNewParams, error) {
	req := &openai.ChatCompletionNewParams{
		Model: opts.Model,
	}
	for _, mc := range messages {
		msgs, err := toChatMessages(mc)
		if err != nil {
			return nil, err
		}
		req.Messages = append(req.Messages, msgs...)
	}

	if opts.MaxTokens > 0 {
		req.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		req.Temperature = openai.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		req.TopP = openai.Float(opts.TopP)
	}
	if opts.Seed != 0 {
		req.Seed = openai.Int(int64(opts.Seed))
	}
	if len(opts.StopWords) > 0 {
		req.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: opts.StopWords}
	}
	if choice, ok := opts.ToolChoice.(string); ok && choice != "" {
		req.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String(choice)}
	}

	for _, tool := range opts.Tools {
		t, err := toolFromTool(tool)
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert llms tool to openai tool")
		}
		req.Tools = append(req.Tools, t)
	}
	return req, nil
}

func toChatMessages(mc llms.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	switch mc.Role {
	case llms.RoleSystem:
		return []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(mc.Text())}, nil
	case llms.RoleHuman:
		return []openai.ChatCompletionMessageParamUnion{openai.UserMessage(mc.Text())}, nil
	case llms.RoleAI:
		msg := openai.ChatCompletionAssistantMessageParam{}
		if text := mc.Text(); text != "" {
			msg.Content.OfString = openai.String(text)
		}
		for _, tc := range mc.ToolCalls() {
			if tc.FunctionCall == nil {
				continue
			}
			msg.ToolCalls = append(msg.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      tc.FunctionCall.Name,
						Arguments: tc.FunctionCall.Arguments,
					},
				},
			})
		}
		return []openai.ChatCompletionMessageParamUnion{{OfAssistant: &msg}}, nil
	case llms.RoleTool:
		var res []openai.ChatCompletionMessageParamUnion
		for _, part := range mc.Parts {
			p, ok := part.(llms.ToolCallResponse)
			if !ok {
				return nil, errors.Newf("expected part of type ToolCallResponse for role %v, got %T", mc.Role, part)
			}
			res = append(res, openai.ToolMessage(p.Content, p.ToolCallID))
		}
		if len(res) == 0 {
			return nil, errors.Newf("expected at least one part for role %v", mc.Role)
		}
		return res, nil
	default:
		return nil, errors.Wrapf(llms.ErrUnexpectedRole, "role %v not supported", mc.Role)
	}
}

// toolFromTool converts an llms.Tool to a function tool.
func toolFromTool(t llms.Tool) (openai.ChatCompletionToolUnionParam, error) {
	if t.Type != "function" || t.Function == nil {
		return openai.ChatCompletionToolUnionParam{}, errors.Newf("tool type %v not supported", t.Type)
	}
	params, err := schemaParameters(t.Function.Parameters)
	if err != nil {
		return openai.ChatCompletionToolUnionParam{}, err
	}
	def := shared.FunctionDefinitionParam{
		Name:       t.Function.Name,
		Parameters: params,
	}
	if t.Function.Description != "" {
		def.Description = openai.String(t.Function.Description)
	}
	if t.Function.Strict {
		def.Strict = openai.Bool(true)
	}
	return openai.ChatCompletionFunctionTool(def), nil
}

func schemaParameters(s *jsonschema.Schema) (shared.FunctionParameters, error) {
	if s == nil {
		return shared.FunctionParameters{"type": "object", "properties": map[string]any{}}, nil
	}
	js, err := json.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshal schema")
	}
	var params shared.FunctionParameters
	if err := json.Unmarshal(js, &params); err != nil {
		return nil, errors.Wrap(err, "unmarshal schema")
	}
	return params, nil
}
