// Package metrics names the counters and timings the service emits and keeps
// their tag sets consistent.
package metrics

import (
	"maps"
	"time"

	obserrors "github.com/target/mmk-task-service/internal/observability/errors"
	"github.com/target/mmk-task-service/internal/observability/statsd"
)

// Values of the "result" tag.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Values of the "mode" tag on job metrics.
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// JobExecutionMetric is one finished job execution.
type JobExecutionMetric struct {
	Module   string
	Mode     string
	Result   string
	Duration time.Duration
	Err      error // classified only when Result is ResultError
}

// EmitJobExecution counts the execution and, when a duration is known, times it.
func EmitJobExecution(sink statsd.Sink, in JobExecutionMetric) {
	if sink == nil {
		return
	}
	var err error
	if in.Result == ResultError {
		err = in.Err
	}
	tags := resultTags(in.Result, err)
	tags["module"] = in.Module
	tags["mode"] = in.Mode

	sink.Count("job.execution", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.execution_duration", in.Duration, maps.Clone(tags))
	}
}

// HistorySaveFailed counts history rows that could not be persisted.
func HistorySaveFailed(sink statsd.Sink, err error) {
	if sink == nil {
		return
	}
	sink.Count("job.history_save_failed", 1, map[string]string{
		"error_class": obserrors.Classify(err),
	})
}

// LoopRun is one pass of a periodic background loop such as the scheduler
// sync or the history reaper.
type LoopRun struct {
	Component string // "scheduler"
	Op        string // "sync"
	Changed   bool   // false with a nil Err reports a noop
	Duration  time.Duration
	Err       error
}

// EmitLoopRun emits <component>.<op> and <component>.<op>_duration tagged by
// result, plus <component>.last_success_epoch when the run did not fail. The
// returned tags may be reused by the caller for op-specific metrics.
func EmitLoopRun(sink statsd.Sink, run LoopRun) map[string]string {
	result := ResultSuccess
	switch {
	case run.Err != nil:
		result = ResultError
	case !run.Changed:
		result = ResultNoop
	}
	tags := resultTags(result, run.Err)
	if sink == nil {
		return tags
	}

	name := run.Component + "." + run.Op
	sink.Count(name, 1, tags)
	if run.Duration > 0 {
		sink.Timing(name+"_duration", run.Duration, maps.Clone(tags))
	}
	if run.Err == nil {
		sink.Gauge(run.Component+".last_success_epoch", float64(time.Now().Unix()), nil)
	}
	return maps.Clone(tags)
}

func resultTags(result string, err error) map[string]string {
	tags := map[string]string{"result": result}
	if err == nil {
		return tags
	}
	if class := obserrors.Classify(err); class != "" {
		tags["error_class"] = class
	}
	return tags
}
