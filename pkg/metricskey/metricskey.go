package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMMessagesSent is base for counter metric for total messages sent to LLM
	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_sent",
		Help:         "stats_llm_bytes_sent provides total bytes sent to LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMBytesReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_received",
		Help:         "stats_llm_bytes_received provides total bytes received from LLM",
		RequiredTags: []string{"provider", "model"},
	}

	StatsLLMCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_calls_failed",
		Help:         "stats_llm_calls_failed provides total failed model calls",
		RequiredTags: []string{"provider", "model"},
	}

	StatsRunsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_runs_succeeded",
		Help:         "stats_runs_succeeded provides total tool loop runs that produced an answer",
		RequiredTags: []string{"provider"},
	}

	StatsRunsAborted = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_runs_aborted",
		Help:         "stats_runs_aborted provides total tool loop runs aborted on a bound or model failure",
		RequiredTags: []string{"provider", "reason"},
	}

	StatsRunIterations = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_run_iterations",
		Help:         "stats_run_iterations provides total tool dispatch iterations",
		RequiredTags: []string{"provider"},
	}

	StatsToolCallsExtracted = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_extracted",
		Help:         "stats_tool_calls_extracted provides total tool calls extracted from model output",
		RequiredTags: []string{"mode"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed after all attempts",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsRetried = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_retried",
		Help:         "stats_tool_calls_retried provides total tool call retries",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	StatsSessionCleanupFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_session_cleanup_failed",
		Help:         "stats_session_cleanup_failed provides total failed session cleanups",
		RequiredTags: []string{"session"},
	}
)

// Perf
var (
	PerfRun = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_run",
		Help:         "perf_run provides duration of a tool loop run",
		RequiredTags: []string{"provider"},
	}

	PerfLLMCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_llm_call",
		Help:         "perf_llm_call provides duration of model call",
		RequiredTags: []string{"provider", "model"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of a tool call attempt",
		RequiredTags: []string{"tool"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfLLMCall,
	&PerfRun,
	&PerfToolCall,
	&StatsLLMBytesReceived,
	&StatsLLMBytesSent,
	&StatsLLMCallsFailed,
	&StatsLLMMessagesSent,
	&StatsRunIterations,
	&StatsRunsAborted,
	&StatsRunsSucceeded,
	&StatsSessionCleanupFailed,
	&StatsToolCallsExtracted,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsRetried,
	&StatsToolCallsSucceeded,
}
