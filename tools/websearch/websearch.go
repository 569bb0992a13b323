// Package websearch provides the web_search tool backed by the Tavily API.
package websearch

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/cockroachdb/errors"
	tavilygo "github.com/diverged/tavily-go"
	tavilyModels "github.com/diverged/tavily-go/models"
	"github.com/effective-security/toolchat/tools/local"
	"github.com/effective-security/x/values"
)

// ToolName is the name of the tool.
const ToolName = "web_search"

// APIKeyEnv is the environment variable with the Tavily API key.
const APIKeyEnv = "TAVILY_API_KEY"

// SearchRequest represents the tool input.
type SearchRequest struct {
	Query string `json:"query" yaml:"query" jsonschema:"title=query,description=The query to search web."`
}

// SearchResult represents the tool output.
type SearchResult struct {
	Results []tavilyModels.SearchResult `json:"results" yaml:"results"`
	Answer  string                      `json:"answer,omitempty" yaml:"answer,omitempty"`
}

// Config for the tool.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

type searcher struct {
	cfg Config
}

// New returns the tool, the API key is read from TAVILY_API_KEY if not provided.
func New(cfg Config) (*local.Func[SearchRequest, SearchResult], error) {
	cfg.APIKey = values.StringsCoalesce(cfg.APIKey, os.Getenv(APIKeyEnv))
	if cfg.APIKey == "" {
		return nil, errors.Newf("%s is not set", APIKeyEnv)
	}
	s := &searcher{cfg: cfg}
	return local.NewFunc(ToolName, "Searches the web and returns an aggregated answer with sources.", s.run)
}

func (s *searcher) run(_ context.Context, req *SearchRequest) (*SearchResult, error) {
	if req.Query == "" {
		return nil, errors.New("invalid request: empty query")
	}

	client := tavilygo.NewClient(s.cfg.APIKey)
	if s.cfg.BaseURL != "" {
		client.BaseURL = s.cfg.BaseURL
	}
	if s.cfg.HTTPClient != nil {
		client.HTTPClient = s.cfg.HTTPClient
	}

	searchResp, err := tavilygo.Search(client, tavilyModels.SearchRequest{
		Query:         req.Query,
		SearchDepth:   "basic",
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform search")
	}

	return &SearchResult{
		Results: searchResp.Results,
		Answer:  searchResp.Answer,
	}, nil
}

func (r *SearchResult) String() string {
	var buf bytes.Buffer
	if r.Answer != "" {
		fmt.Fprintf(&buf, "ANSWER: %s\n", r.Answer)
	}
	for _, result := range r.Results {
		fmt.Fprintf(&buf, "- URL: %s\n", result.URL)
		fmt.Fprintf(&buf, "  TITLE: %s\n", result.Title)
		fmt.Fprintf(&buf, "  CONTENT: %s\n", result.Content)
	}
	return buf.String()
}
