// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/paperlens/paperlens/domain/analysis"
	"github.com/paperlens/paperlens/domain/envelope"
	"github.com/paperlens/paperlens/domain/fault"
	"github.com/paperlens/paperlens/domain/pricing"
	"github.com/paperlens/paperlens/domain/ratelimit"
	"github.com/paperlens/paperlens/domain/record"
	"github.com/paperlens/paperlens/ports"
)

// AnalysisService runs the admission pipeline for one request: session
// resolution, envelope validation, quota admission, dispatch to the
// analysis backend, then cost accounting and audit bookkeeping.
type AnalysisService struct {
	sessions    ports.SessionProvider
	rateWindows ports.RateWindowStore
	ledger      ports.CostLedger
	activities  ports.ActivityStore
	audit       ports.AuditRecorder
	analyzer    ports.Analyzer
	clock       ports.Clock
	idGen       ports.IDGenerator
	log         zerolog.Logger

	// Hot-reloadable settings.
	dynamicCfg atomic.Pointer[RuntimeConfig]
}

// Deps contains dependencies for AnalysisService.
type Deps struct {
	Sessions    ports.SessionProvider
	RateWindows ports.RateWindowStore
	Ledger      ports.CostLedger
	Activities  ports.ActivityStore
	Audit       ports.AuditRecorder
	Analyzer    ports.Analyzer
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      zerolog.Logger
}

// RuntimeConfig contains hot-reloadable pipeline settings.
type RuntimeConfig struct {
	AnalyzeLimit int  // per-hour ceiling for the analyze endpoint
	DefaultLimit int  // per-hour ceiling for everything else
	FailOpen     bool // admit when the counter store is unavailable

	Model     string // backend model, empty means backend default
	MaxTokens int    // 0 means no explicit budget
}

// NewAnalysisService creates the pipeline service.
func NewAnalysisService(deps Deps, cfg RuntimeConfig) *AnalysisService {
	s := &AnalysisService{
		sessions:    deps.Sessions,
		rateWindows: deps.RateWindows,
		ledger:      deps.Ledger,
		activities:  deps.Activities,
		audit:       deps.Audit,
		analyzer:    deps.Analyzer,
		clock:       deps.Clock,
		idGen:       deps.IDGen,
		log:         deps.Logger,
	}
	s.UpdateConfig(cfg)
	return s
}

// UpdateConfig swaps the hot-reloadable settings. Safe to call while
// handling requests.
func (s *AnalysisService) UpdateConfig(cfg RuntimeConfig) {
	if cfg.AnalyzeLimit == 0 {
		cfg.AnalyzeLimit = ratelimit.AnalyzeLimit
	}
	if cfg.DefaultLimit == 0 {
		cfg.DefaultLimit = ratelimit.DefaultLimit
	}
	s.dynamicCfg.Store(&cfg)
}

func (s *AnalysisService) config() *RuntimeConfig {
	return s.dynamicCfg.Load()
}

// Request is one admission attempt as seen by the pipeline.
type Request struct {
	Credential   string // opaque session credential, empty when absent
	Method       string
	Path         string
	Body         []byte
	DeclaredSize int64 // Content-Length as declared, -1 when unknown
}

// Outcome is the pipeline result handed back to the transport layer.
// Err is nil on success; otherwise it carries a fault kind that maps to
// the HTTP status.
type Outcome struct {
	Status   int
	Result   analysis.Result
	Usage    analysis.TokenUsage
	Cost     float64
	Model    string
	Identity string

	// Decision is set whenever the quota stage ran; it feeds the
	// X-RateLimit-* headers on both allowed and denied exchanges.
	Decision *ratelimit.Decision

	LatencyMs int64
	Err       error
}

// ProgressFunc receives coarse stage notifications while a request moves
// through the pipeline. Used by the SSE transport; nil is valid.
type ProgressFunc func(stage string)

// Pipeline stages reported to ProgressFunc.
const (
	StageValidating  = "validating"
	StageRateLimit   = "rate_limit"
	StageDispatching = "dispatching"
	StageAccounting  = "accounting"
)

// Handle runs the pipeline for one request. Exactly one audit row is
// recorded per call, on every exit path.
func (s *AnalysisService) Handle(ctx context.Context, req Request, progress ProgressFunc) Outcome {
	if progress == nil {
		progress = func(string) {}
	}
	start := s.clock.Now()

	out := s.handle(ctx, req, progress)

	out.LatencyMs = s.clock.Now().Sub(start).Milliseconds()
	if out.Err != nil {
		out.Status = statusFor(out.Err)
	} else {
		out.Status = 200
	}

	auditRow := record.APIRequest{
		ID:           s.idGen.New(),
		Endpoint:     req.Path,
		Method:       req.Method,
		StatusCode:   out.Status,
		LatencyMs:    out.LatencyMs,
		RequestBytes: int64(len(req.Body)),
		Identity:     out.Identity,
		CreatedAt:    start,
	}
	if out.Err != nil {
		auditRow.Error = out.Err.Error()
	}
	s.audit.Record(auditRow)

	return out
}

func (s *AnalysisService) handle(ctx context.Context, req Request, progress ProgressFunc) Outcome {
	cfg := s.config()
	now := s.clock.Now()

	// 1. Session resolution. Nothing else runs for anonymous requests.
	identity, err := s.sessions.IdentityFor(ctx, req.Credential)
	if err != nil {
		if errors.Is(err, ports.ErrNoSession) {
			return Outcome{Err: fault.New(fault.AuthRequired, "authentication required")}
		}
		return Outcome{Err: fault.Wrap(fault.Internal, "session lookup failed", err)}
	}
	out := Outcome{Identity: identity}

	// 2. Envelope validation: size bound, schema, sanitization.
	progress(StageValidating)
	env, err := envelope.Validate(req.Body, req.DeclaredSize)
	if err != nil {
		out.Err = err
		return out
	}

	// 3. Quota admission.
	progress(StageRateLimit)
	key := ratelimit.KeyFor(identity, quotaEndpoint(req.Path), now)
	limit := cfg.AnalyzeLimit
	if key.Endpoint != quotaAnalyze {
		limit = cfg.DefaultLimit
	}

	count, admitted, admitErr := s.rateWindows.Admit(ctx, key, limit)
	switch {
	case admitErr != nil && cfg.FailOpen:
		s.log.Warn().Err(admitErr).Str("identity", identity).
			Msg("rate window store unavailable, admitting")
		dec := ratelimit.Allow(key, limit)
		out.Decision = &dec
	case admitErr != nil:
		out.Err = fault.Wrap(fault.Internal, "quota check failed", admitErr)
		return out
	case !admitted:
		dec := ratelimit.Deny(key, limit)
		out.Decision = &dec
		out.Err = fault.New(fault.QuotaExceeded, "hourly quota exceeded")
		return out
	default:
		dec := ratelimit.Decide(key, count, limit)
		out.Decision = &dec
	}

	s.recordActivity(identity, record.ActivityAnalysisRequested, map[string]string{
		"inputType": string(env.Type),
	})

	// 4. Dispatch. The backend call may run for minutes and is never
	// cancelled by a client disconnect: bookkeeping must still run, and
	// the call is billed whether or not anyone is waiting for it.
	progress(StageDispatching)
	model := cfg.Model
	dispatchCtx := context.WithoutCancel(ctx)
	result, usage, err := s.analyzer.Analyze(dispatchCtx, analysis.Input{
		Type:      env.Type,
		Content:   env.Content,
		Model:     model,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		s.recordActivity(identity, record.ActivityAnalysisFailed, map[string]string{
			"inputType": string(env.Type),
			"error":     err.Error(),
		})
		if _, tagged := fault.KindOf(err); tagged {
			out.Err = err
		} else {
			out.Err = fault.Wrap(fault.UpstreamFailure, "analysis dispatch failed", err)
		}
		return out
	}
	if result.Model == "" {
		result.Model = model
	}
	out.Result = result
	out.Usage = usage
	out.Model = result.Model

	// 5. Cost accounting, only for reported token usage. Failures here
	// are bookkeeping: logged and swallowed, never change the outcome.
	progress(StageAccounting)
	if usage.Reported() {
		out.Cost = pricing.Cost(out.Model, usage.InputTokens, usage.OutputTokens)
		entry := record.Cost{
			ID:           s.idGen.New(),
			Identity:     identity,
			Model:        out.Model,
			InputTokens:  usage.InputTokens,
			OutputTokens: usage.OutputTokens,
			Cost:         out.Cost,
			CreatedAt:    s.clock.Now(),
		}
		if err := s.ledger.Append(context.WithoutCancel(ctx), entry); err != nil {
			s.logBookkeeping(err, identity, "cost ledger append failed")
		}
		if err := s.ledger.AddUsage(context.WithoutCancel(ctx), identity, out.Cost, s.clock.Now()); err != nil {
			s.logBookkeeping(err, identity, "usage totals update failed")
		}
	}

	s.recordActivity(identity, record.ActivityAnalysisCompleted, map[string]string{
		"inputType":   string(env.Type),
		"model":       out.Model,
		"totalTokens": strconv.FormatInt(usage.Total(), 10),
		"costUsd":     strconv.FormatFloat(out.Cost, 'f', -1, 64),
	})

	return out
}

// Totals returns the running usage aggregate for an identity.
func (s *AnalysisService) Totals(ctx context.Context, identity string) (record.UsageTotals, error) {
	return s.ledger.Totals(ctx, identity)
}

// UsageOutcome is the result of a usage summary request.
type UsageOutcome struct {
	Status   int
	Totals   record.UsageTotals
	Identity string
	Decision *ratelimit.Decision
	Err      error
}

// HandleUsage serves the per-identity totals readback. It runs the same
// auth and quota stages as Handle, against the default ceiling, and
// records one audit row.
func (s *AnalysisService) HandleUsage(ctx context.Context, credential, method, path string) UsageOutcome {
	cfg := s.config()
	start := s.clock.Now()

	out := s.handleUsage(ctx, credential, path, cfg)
	if out.Err != nil {
		out.Status = statusFor(out.Err)
	} else {
		out.Status = 200
	}

	auditRow := record.APIRequest{
		ID:         s.idGen.New(),
		Endpoint:   path,
		Method:     method,
		StatusCode: out.Status,
		LatencyMs:  s.clock.Now().Sub(start).Milliseconds(),
		Identity:   out.Identity,
		CreatedAt:  start,
	}
	if out.Err != nil {
		auditRow.Error = out.Err.Error()
	}
	s.audit.Record(auditRow)

	return out
}

func (s *AnalysisService) handleUsage(ctx context.Context, credential, path string, cfg *RuntimeConfig) UsageOutcome {
	identity, err := s.sessions.IdentityFor(ctx, credential)
	if err != nil {
		if errors.Is(err, ports.ErrNoSession) {
			return UsageOutcome{Err: fault.New(fault.AuthRequired, "authentication required")}
		}
		return UsageOutcome{Err: fault.Wrap(fault.Internal, "session lookup failed", err)}
	}
	out := UsageOutcome{Identity: identity}

	key := ratelimit.KeyFor(identity, quotaEndpoint(path), s.clock.Now())
	count, admitted, admitErr := s.rateWindows.Admit(ctx, key, cfg.DefaultLimit)
	switch {
	case admitErr != nil && cfg.FailOpen:
		s.log.Warn().Err(admitErr).Str("identity", identity).
			Msg("rate window store unavailable, admitting")
		dec := ratelimit.Allow(key, cfg.DefaultLimit)
		out.Decision = &dec
	case admitErr != nil:
		out.Err = fault.Wrap(fault.Internal, "quota check failed", admitErr)
		return out
	case !admitted:
		dec := ratelimit.Deny(key, cfg.DefaultLimit)
		out.Decision = &dec
		out.Err = fault.New(fault.QuotaExceeded, "hourly quota exceeded")
		return out
	default:
		dec := ratelimit.Decide(key, count, cfg.DefaultLimit)
		out.Decision = &dec
	}

	totals, err := s.ledger.Totals(ctx, identity)
	if err != nil {
		out.Err = fault.Wrap(fault.Internal, "usage lookup failed", err)
		return out
	}
	out.Totals = totals
	return out
}

func (s *AnalysisService) recordActivity(identity, kind string, detail map[string]string) {
	a := record.Activity{
		ID:        s.idGen.New(),
		Identity:  identity,
		Type:      kind,
		Detail:    detail,
		CreatedAt: s.clock.Now(),
	}
	if err := s.activities.Record(context.Background(), a); err != nil {
		s.logBookkeeping(err, identity, fmt.Sprintf("activity record failed (%s)", kind))
	}
}

func (s *AnalysisService) logBookkeeping(err error, identity, msg string) {
	s.log.Error().Err(fault.Wrap(fault.Bookkeeping, msg, err)).
		Str("identity", identity).Msg(msg)
}

const quotaAnalyze = "/analyze"

// quotaEndpoint maps a request path to its quota bucket. The plain and
// streaming analyze routes share one bucket.
func quotaEndpoint(path string) string {
	if path == quotaAnalyze || path == quotaAnalyze+"/stream" {
		return quotaAnalyze
	}
	return path
}

func statusFor(err error) int {
	if kind, ok := fault.KindOf(err); ok {
		return kind.HTTPStatus()
	}
	return fault.Internal.HTTPStatus()
}
