package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/paperlens/paperlens/domain/fault"
)

// AnalyzeStream handles POST /analyze/stream: the same pipeline as
// /analyze, but with the outcome delivered as server-sent events. The
// stream opens before the pipeline runs, so every exit, including
// denials, arrives as an event on an HTTP 200 stream.
func (h *AnalysisHandler) AnalyzeStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeErrorBody(w, http.StatusInternalServerError,
			fault.New(fault.Internal, "streaming unsupported"), nil)
		return
	}

	req, ok := h.pipelineRequest(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	emit := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			h.logger.Error().Err(err).Str("event", event).Msg("failed to marshal sse payload")
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	emit("status", map[string]string{"state": "accepted"})

	prog, done := h.dispatchGauge()
	out := h.service.Handle(r.Context(), req, func(stage string) {
		prog(stage)
		emit("progress", map[string]string{"stage": stage})
	})
	done()
	h.observeOutcome(out)

	if out.Err != nil {
		kind, _ := fault.KindOf(out.Err)
		payload := map[string]any{
			"error":  publicMessage(out.Err),
			"status": out.Status,
		}
		if kind == fault.QuotaExceeded && out.Decision != nil {
			payload["limit"] = out.Decision.Limit
			payload["resetAt"] = out.Decision.ResetAt.UTC().Format(time.RFC3339)
			payload["retryAfter"] = out.Decision.RetryAfter(h.clock.Now())
		}
		if h.environment != "production" {
			payload["code"] = string(kind)
			payload["details"] = out.Err.Error()
		}
		emit("error", payload)
		return
	}

	result := analyzeResponseBody{Result: out.Result, CostUSD: out.Cost}
	if out.Usage.Reported() {
		result.Usage = &usageBody{
			InputTokens:  out.Usage.InputTokens,
			OutputTokens: out.Usage.OutputTokens,
			TotalTokens:  out.Usage.Total(),
		}
	}
	emit("result", result)
}
