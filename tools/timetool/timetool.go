// Package timetool provides the get_current_time tool.
package timetool

import (
	"context"
	"time"
	_ "time/tzdata"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/tools/local"
)

// ToolName is the name of the tool.
const ToolName = "get_current_time"

// Request is the tool input.
type Request struct {
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty" jsonschema:"title=timezone,description=IANA time zone name such as Asia/Tokyo. Local time zone if empty."`
}

// Response is the tool output.
type Response struct {
	Timezone string `json:"timezone" yaml:"timezone"`
	Time     string `json:"time" yaml:"time"`
	Weekday  string `json:"weekday" yaml:"weekday"`
}

// Clock returns the current time, replaced in tests.
var Clock = time.Now

// New returns the tool.
func New() (*local.Func[Request, Response], error) {
	return local.NewFunc(ToolName, "Returns the current date and time in the given time zone.", run)
}

func run(_ context.Context, req *Request) (*Response, error) {
	loc := time.Local
	if req.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(req.Timezone)
		if err != nil {
			return nil, errors.Newf("unknown time zone: %q", req.Timezone)
		}
	}
	now := Clock().In(loc)
	return &Response{
		Timezone: loc.String(),
		Time:     now.Format(time.RFC3339),
		Weekday:  now.Weekday().String(),
	}, nil
}
