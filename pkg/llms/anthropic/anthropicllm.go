package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/llms"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolchat", "anthropic")

var (
	ErrEmptyResponse          = errors.New("anthropic: no response")
	ErrMissingToken           = errors.New("anthropic: missing API key, set it in the ANTHROPIC_API_KEY environment variable")
	ErrInvalidContentType     = errors.New("anthropic: invalid content type")
	ErrUnsupportedMessageType = errors.New("anthropic: unsupported message type")
)

const (
	DefaultMaxTokens = 4096
	DefaultModel     = "claude-sonnet-4-5"
)

type LLM struct {
	Client  *anthropic.Client
	Options *Options
}

var _ llms.StreamingModel = (*LLM)(nil)

// New creates a new Anthropic LLM client using the official Anthropic SDK.
// If no token is provided via options, the API key is read
// from the ANTHROPIC_API_KEY environment variable.
func New(opts ...Option) (*LLM, error) {
	options := &Options{
		Token:      os.Getenv(TokenEnvVarName),
		Model:      os.Getenv(ModelEnvVarName),
		BaseURL:    "https://api.anthropic.com",
		HttpClient: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(options)
	}

	if len(options.Token) == 0 {
		return nil, ErrMissingToken
	}
	options.Model = values.StringsCoalesce(options.Model, DefaultModel)

	return &LLM{
		Client:  newClient(options),
		Options: options,
	}, nil
}

func newClient(options *Options) *anthropic.Client {
	sdkOpts := []option.RequestOption{
		option.WithAPIKey(options.Token),
		option.WithMaxRetries(2),
		option.WithRequestTimeout(5 * time.Minute),
	}

	if options.BaseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(options.BaseURL))
	}

	if options.HttpClient != nil {
		sdkOpts = append(sdkOpts, option.WithHTTPClient(options.HttpClient))
	}

	if options.AnthropicBetaHeader != "" {
		sdkOpts = append(sdkOpts, option.WithHeader("anthropic-beta", options.AnthropicBetaHeader))
	}

	client := anthropic.NewClient(sdkOpts...)
	return &client
}

// GetProviderType implements the Model interface.
func (o *LLM) GetProviderType() llms.ProviderType {
	return llms.ProviderAnthropic
}

// GenerateContent implements the Model interface.
// Text blocks of the response are joined into one choice, which also
// carries every tool_use block as a tool call.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	params, err := o.newParams(messages, options...)
	if err != nil {
		return nil, err
	}

	result, err := o.Client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrap(err, "anthropic: failed to create message")
	}
	if len(result.Content) == 0 {
		return nil, ErrEmptyResponse
	}

	var text strings.Builder
	choice := &llms.ContentChoice{
		StopReason: string(result.StopReason),
		GenerationInfo: map[string]any{
			"InputTokens":  result.Usage.InputTokens,
			"OutputTokens": result.Usage.OutputTokens,
			"TotalTokens":  result.Usage.InputTokens + result.Usage.OutputTokens,
			"ID":           result.ID,
		},
	}
	for _, contentBlock := range result.Content {
		switch content := contentBlock.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(content.Text)
		case anthropic.ToolUseBlock:
			args := string(content.Input)
			if args == "" {
				args = "{}"
			}
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   content.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      content.Name,
					Arguments: args,
				},
			})
		default:
			logger.ContextKV(ctx, xlog.DEBUG, "status", "skipped_block", "type", contentBlock.Type)
		}
	}
	choice.Content = text.String()

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{choice},
	}, nil
}

// StreamContent implements the StreamingModel interface.
// The content block index is used as the tool call slot index.
func (o *LLM) StreamContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (llms.FragmentStream, error) {
	params, err := o.newParams(messages, options...)
	if err != nil {
		return nil, err
	}

	out, sctx := llms.NewChannelStream(ctx, 16)
	stream := o.Client.Messages.NewStreaming(sctx, params)

	go func() {
		defer func() { _ = stream.Close() }()
		for stream.Next() {
			f := eventFragment(stream.Current())
			if f == nil {
				continue
			}
			if !out.Send(sctx, f) {
				out.Finish(sctx.Err())
				return
			}
		}
		if err := stream.Err(); err != nil {
			out.Finish(errors.Wrap(err, "anthropic: streaming error"))
			return
		}
		out.Finish(nil)
	}()
	return out, nil
}

func eventFragment(event anthropic.MessageStreamEventUnion) *llms.Fragment {
	switch evt := event.AsAny().(type) {
	case anthropic.ContentBlockStartEvent:
		if block, ok := evt.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
			return &llms.Fragment{
				ToolCall: &llms.ToolCallFragment{
					Index: int(evt.Index),
					ID:    block.ID,
					Name:  block.Name,
				},
			}
		}
	case anthropic.ContentBlockDeltaEvent:
		switch delta := evt.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			return &llms.Fragment{Text: delta.Text}
		case anthropic.InputJSONDelta:
			return &llms.Fragment{
				ToolCall: &llms.ToolCallFragment{
					Index:     int(evt.Index),
					Arguments: delta.PartialJSON,
				},
			}
		}
	case anthropic.MessageDeltaEvent:
		if evt.Delta.StopReason != "" {
			return &llms.Fragment{StopReason: string(evt.Delta.StopReason)}
		}
	}
	return nil
}

func (o *LLM) newParams(messages []llms.Message, options ...llms.CallOption) (anthropic.MessageNewParams, error) {
	opts := llms.NewCallOptions(options...)

	sdkMessages, systemPrompt, err := ProcessMessages(messages)
	if err != nil {
		return anthropic.MessageNewParams{}, errors.WithMessage(err, "anthropic: failed to process messages")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(values.StringsCoalesce(opts.Model, o.Options.Model)),
		Messages:  sdkMessages,
		MaxTokens: values.NumbersCoalesce(int64(opts.MaxTokens), DefaultMaxTokens),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: systemPrompt,
			},
		}
	}
	if opts.Temperature > 0 {
		params.Temperature = anthropic.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = anthropic.Float(opts.TopP)
	}
	if len(opts.StopWords) > 0 {
		params.StopSequences = opts.StopWords
	}
	if tools := ToTools(opts.Tools); len(tools) > 0 {
		params.Tools = tools
	}
	return params, nil
}

// ToTools converts tool definitions to Anthropic SDK tool parameters.
func ToTools(tools []llms.Tool) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	sdkTools := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		if tool.Function == nil {
			continue
		}
		sdkTools = append(sdkTools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Function.Name,
				Description: anthropic.String(tool.Function.Description),
				InputSchema: toInputSchema(tool.Function.Parameters),
			},
		})
	}
	return sdkTools
}

func toInputSchema(s *jsonschema.Schema) anthropic.ToolInputSchemaParam {
	inputSchema := anthropic.ToolInputSchemaParam{
		Properties: map[string]any{},
	}
	if s == nil {
		return inputSchema
	}
	if s.Properties != nil {
		properties := make(map[string]any)
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			properties[pair.Key] = pair.Value
		}
		inputSchema.Properties = properties
	}
	if len(s.Required) > 0 {
		inputSchema.Required = s.Required
	}
	return inputSchema
}

// ProcessMessages converts messages to Anthropic SDK message parameters.
// System messages are returned as a separate system prompt; consecutive
// tool messages are merged into one user message of tool_result blocks.
func ProcessMessages(messages []llms.Message) ([]anthropic.MessageParam, string, error) {
	chatMessages := make([]anthropic.MessageParam, 0, len(messages))
	systemPrompt := ""
	lastTool := false
	for _, msg := range messages {
		if len(msg.Parts) == 0 {
			continue
		}
		isTool := false
		switch msg.Role {
		case llms.RoleSystem:
			if systemPrompt != "" {
				systemPrompt += "\n"
			}
			systemPrompt += msg.Text()
		case llms.RoleHuman:
			chatMessages = append(chatMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text())))
		case llms.RoleAI:
			chatMessage, err := HandleAIMessage(msg)
			if err != nil {
				return nil, "", err
			}
			chatMessages = append(chatMessages, chatMessage)
		case llms.RoleTool:
			blocks, err := HandleToolMessage(msg)
			if err != nil {
				return nil, "", err
			}
			if lastTool {
				last := &chatMessages[len(chatMessages)-1]
				last.Content = append(last.Content, blocks...)
			} else {
				chatMessages = append(chatMessages, anthropic.NewUserMessage(blocks...))
			}
			isTool = true
		default:
			return nil, "", errors.WithMessagef(ErrUnsupportedMessageType, "anthropic: %v", msg.Role)
		}
		lastTool = isTool
	}
	return chatMessages, systemPrompt, nil
}

// HandleAIMessage converts an assistant message with text and tool calls.
func HandleAIMessage(msg llms.Message) (anthropic.MessageParam, error) {
	var contents []anthropic.ContentBlockParamUnion

	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.ToolCall:
			if p.FunctionCall == nil {
				continue
			}
			args := p.FunctionCall.Arguments
			if args == "" || !gjson.Valid(args) {
				args = "{}"
			}
			contents = append(contents, anthropic.NewToolUseBlock(
				p.ID,
				json.RawMessage(args),
				p.FunctionCall.Name,
			))
		case llms.TextContent:
			if p.Text != "" {
				contents = append(contents, anthropic.NewTextBlock(p.Text))
			}
		default:
			return anthropic.MessageParam{}, errors.Newf("anthropic: unsupported AI message part type: %T", part)
		}
	}

	if len(contents) == 0 {
		return anthropic.MessageParam{}, errors.New("anthropic: no valid content in AI message")
	}

	return anthropic.NewAssistantMessage(contents...), nil
}

// HandleToolMessage converts a tool message to tool_result blocks.
func HandleToolMessage(msg llms.Message) ([]anthropic.ContentBlockParamUnion, error) {
	var contents []anthropic.ContentBlockParamUnion

	for _, part := range msg.Parts {
		resp, ok := part.(llms.ToolCallResponse)
		if !ok {
			return nil, errors.WithMessagef(ErrInvalidContentType, "anthropic: for tool message part type: %T", part)
		}
		contents = append(contents, anthropic.NewToolResultBlock(resp.ToolCallID, resp.Content, resp.IsError))
	}
	return contents, nil
}
