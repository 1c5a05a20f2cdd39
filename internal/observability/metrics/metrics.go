// Package metrics defines the service's metric names and tag sets.
package metrics

import (
	"time"

	obserrors "github.com/target/engage-api/internal/observability/errors"
	"github.com/target/engage-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Conversion outcomes.
const (
	OutcomeConverted    = "converted"
	OutcomeNotConverted = "not_converted"
	OutcomeDisabled     = "disabled"
)

// PageFetch describes one keyset page request.
type PageFetch struct {
	Resource string
	Anchor   string
	Result   string
	Rows     int
	Duration time.Duration
	Err      error
}

// EmitPageFetch emits page.fetch count, duration and row metrics.
func EmitPageFetch(sink statsd.Sink, in PageFetch) {
	if sink == nil {
		return
	}
	anchor := in.Anchor
	if anchor == "" {
		anchor = "none"
	}
	tags := withErrorClass(map[string]string{
		"resource": in.Resource,
		"anchor":   anchor,
		"result":   in.Result,
	}, in.Result, in.Err)

	sink.Count("page.fetch", 1, tags)
	if in.Duration > 0 {
		sink.Timing("page.fetch.duration", in.Duration, CloneTags(tags))
	}
	if in.Result == ResultSuccess {
		sink.Gauge("page.fetch.rows", float64(in.Rows), CloneTags(tags))
	}
}

// Conversion describes one conversion evaluation.
type Conversion struct {
	Outcome  string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitConversion emits conversion.evaluate metrics.
func EmitConversion(sink statsd.Sink, in Conversion) {
	if sink == nil {
		return
	}
	tags := withErrorClass(map[string]string{"result": in.Result}, in.Result, in.Err)
	if in.Outcome != "" {
		tags["outcome"] = in.Outcome
	}

	sink.Count("conversion.evaluate", 1, tags)
	if in.Duration > 0 {
		sink.Timing("conversion.evaluate.duration", in.Duration, CloneTags(tags))
	}
}

// Backfill describes one backfill run over a journey.
type Backfill struct {
	Result    string
	Evaluated int
	Converted int
	Duration  time.Duration
	Err       error
}

// EmitBackfill emits conversion.backfill metrics.
func EmitBackfill(sink statsd.Sink, in Backfill) {
	if sink == nil {
		return
	}
	tags := withErrorClass(map[string]string{"result": in.Result}, in.Result, in.Err)

	sink.Count("conversion.backfill", 1, tags)
	sink.Count("conversion.backfill.evaluated", int64(in.Evaluated), CloneTags(tags))
	sink.Count("conversion.backfill.converted", int64(in.Converted), CloneTags(tags))
	if in.Duration > 0 {
		sink.Timing("conversion.backfill.duration", in.Duration, CloneTags(tags))
	}
}

func withErrorClass(tags map[string]string, result string, err error) map[string]string {
	if err != nil && result == ResultError {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}
	return tags
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
