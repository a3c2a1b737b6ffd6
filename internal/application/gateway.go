package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/quotaguard/internal/domain"
	"github.com/bnema/quotaguard/internal/ports"
	"go.uber.org/zap"
)

const (
	ResponseSuccess = "success"
	ResponseFailure = "failure"
)

// CommandResponse is the administrative reply. Failures carry a readable
// message and the account id.
type CommandResponse struct {
	Status         string           `json:"status"`
	AccountID      string           `json:"account_id"`
	IsBlocked      bool             `json:"is_blocked"`
	BlockType      domain.BlockType `json:"block_type"`
	PerformedBy    string           `json:"performed_by,omitempty"`
	ExpiresAt      *time.Time       `json:"expires_at"`
	Message        string           `json:"message,omitempty"`
	AlreadyBlocked bool             `json:"already_blocked,omitempty"`
	PolicyPending  bool             `json:"policy_pending,omitempty"`
	Steps          []StepView       `json:"steps,omitempty"`
	Usage          *UsageView       `json:"usage,omitempty"`
}

type StepView struct {
	Step  string `json:"step"`
	OK    bool   `json:"ok"`
	Fatal bool   `json:"fatal,omitempty"`
	Error string `json:"error,omitempty"`
}

type UsageView struct {
	RequestsToday     int64 `json:"requests_today"`
	RequestsThisMonth int64 `json:"requests_this_month"`
	DailyLimit        int   `json:"daily_limit"`
	MonthlyLimit      int   `json:"monthly_limit"`
}

// UsageOutcome describes what a usage event caused.
type UsageOutcome struct {
	AccountID   domain.AccountID
	ShouldBlock bool
	Reason      string
	Snapshot    domain.UsageSnapshot
	Expired     *TransitionResult
	Block       *TransitionResult
}

// Gateway routes usage events to the evaluator and administrative commands
// to the state machine.
type Gateway struct {
	evaluator *Evaluator
	machine   *StateMachine
	stores    Stores
	recorder  ports.UsageRecorder
	opts      Options
}

// NewGateway wires the entry point. recorder may be nil when usage counters
// are written by an external collaborator.
func NewGateway(evaluator *Evaluator, machine *StateMachine, stores Stores, recorder ports.UsageRecorder, opts Options) *Gateway {
	return &Gateway{
		evaluator: evaluator,
		machine:   machine,
		stores:    stores,
		recorder:  recorder,
		opts:      opts.withDefaults(),
	}
}

// HandleCommand validates raw, executes it and maps the result to an HTTP
// style status code: 200, 400 or 500.
func (g *Gateway) HandleCommand(ctx context.Context, raw RawCommand) (CommandResponse, int) {
	cmd, err := ParseCommand(raw)
	if err != nil {
		return failureResponse(domain.AccountID(strings.TrimSpace(raw.AccountID)), err), http.StatusBadRequest
	}

	resp, err := g.Execute(ctx, cmd)
	if err != nil {
		return resp, StatusCode(err)
	}
	return resp, http.StatusOK
}

// StatusCode maps an engine error to the administrative status code.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrInvalidTransitionRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (g *Gateway) Execute(ctx context.Context, cmd Command) (CommandResponse, error) {
	switch req := cmd.(type) {
	case BlockRequest:
		result, err := g.machine.ManualBlock(ctx, req)
		return g.Describe(result, err), err
	case UnblockRequest:
		result, err := g.machine.ManualUnblock(ctx, req)
		return g.Describe(result, err), err
	case StatusRequest:
		status, err := g.Status(ctx, req.AccountID)
		if err != nil {
			return failureResponse(req.AccountID, err), err
		}
		return StatusResponse(status), nil
	default:
		err := fmt.Errorf("%w: unsupported command %T", domain.ErrInvalidTransitionRequest, cmd)
		return failureResponse("", err), err
	}
}

// Status returns the account state plus a best-effort usage snapshot.
func (g *Gateway) Status(ctx context.Context, id domain.AccountID) (AccountStatus, error) {
	status, err := g.machine.Status(ctx, id)
	if err != nil {
		return AccountStatus{}, err
	}

	snapshot, err := g.evaluator.Snapshot(ctx, id, status.AsOf)
	if err != nil {
		g.opts.Logger.Warn("usage snapshot unavailable for status", zap.String("account_id", string(id)), zap.Error(err))
		return status, nil
	}
	status.Usage = &snapshot
	return status, nil
}

// HandleUsageEvent records the request when configured to, lazily expires a
// due block, evaluates usage and blocks when required. Failures are returned
// for logging only; there is no synchronous caller to report them to.
func (g *Gateway) HandleUsageEvent(ctx context.Context, event UsageEvent) (UsageOutcome, error) {
	event.AccountID = strings.TrimSpace(event.AccountID)
	if err := validate.Struct(event); err != nil {
		return UsageOutcome{}, fmt.Errorf("%w: %s", domain.ErrInvalidTransitionRequest, describeValidation(err))
	}

	id := domain.AccountID(event.AccountID)
	outcome := UsageOutcome{AccountID: id}

	if g.recorder != nil {
		at := event.Timestamp
		if at.IsZero() {
			at = g.opts.Clock.Now()
		}
		if err := g.recorder.RecordRequest(ctx, id, at); err != nil {
			return outcome, fmt.Errorf("record usage event: %w", err)
		}
	}

	record, err := loadRecord(ctx, g.stores.Blocks, id)
	if err != nil {
		return outcome, err
	}
	if record.Expired(g.opts.Clock.Now()) {
		result, err := g.machine.ExpireBlock(ctx, id)
		outcome.Expired = &result
		if err != nil {
			return outcome, fmt.Errorf("expire block before evaluation: %w", err)
		}
		record = result.Record
	}
	if record.IsBlocked() {
		return outcome, nil
	}

	shouldBlock, reason, snapshot, err := g.evaluator.Evaluate(ctx, id)
	if err != nil {
		return outcome, fmt.Errorf("evaluate usage: %w", err)
	}
	outcome.ShouldBlock = shouldBlock
	outcome.Reason = reason
	outcome.Snapshot = snapshot
	if !shouldBlock {
		return outcome, nil
	}

	result, err := g.machine.AutoBlock(ctx, id, reason, snapshot)
	outcome.Block = &result
	if err != nil {
		return outcome, fmt.Errorf("automatic block: %w", err)
	}
	return outcome, nil
}

// Describe renders a transition result as a command response.
func (g *Gateway) Describe(result TransitionResult, err error) CommandResponse {
	resp := CommandResponse{
		Status:         ResponseSuccess,
		AccountID:      string(result.AccountID),
		IsBlocked:      result.Record.IsBlocked(),
		BlockType:      result.Record.EffectiveType(g.opts.Location),
		PerformedBy:    result.Record.PerformedBy,
		ExpiresAt:      result.Record.ExpiresAt,
		AlreadyBlocked: result.AlreadyBlocked(),
		PolicyPending:  result.Record.PolicyPending,
		Steps:          stepViews(result.Steps),
	}

	switch result.Outcome {
	case OutcomeAlreadyBlocked:
		resp.Message = "account already blocked"
	case OutcomeAlreadyActive:
		resp.Message = "account already active; protection applied"
	case OutcomeApplied:
		resp.Message = fmt.Sprintf("%s applied", strings.ToLower(string(result.Operation)))
	}

	if err != nil {
		resp.Status = ResponseFailure
		resp.Message = err.Error()
	}
	return resp
}

// StatusResponse renders an account status as a command response.
func StatusResponse(status AccountStatus) CommandResponse {
	resp := CommandResponse{
		Status:        ResponseSuccess,
		AccountID:     string(status.Account.ID),
		IsBlocked:     status.IsBlocked(),
		BlockType:     status.BlockType,
		PerformedBy:   status.Record.PerformedBy,
		ExpiresAt:     status.Record.ExpiresAt,
		Message:       status.Record.Reason,
		PolicyPending: status.Record.PolicyPending,
	}
	if status.Usage != nil {
		resp.Usage = &UsageView{
			RequestsToday:     status.Usage.RequestsToday,
			RequestsThisMonth: status.Usage.RequestsThisMonth,
			DailyLimit:        status.Account.DailyLimit,
			MonthlyLimit:      status.Account.MonthlyLimit,
		}
	}
	return resp
}

func failureResponse(id domain.AccountID, err error) CommandResponse {
	return CommandResponse{
		Status:    ResponseFailure,
		AccountID: string(id),
		BlockType: domain.BlockTypeNone,
		Message:   err.Error(),
	}
}

func stepViews(steps []StepResult) []StepView {
	if len(steps) == 0 {
		return nil
	}
	views := make([]StepView, 0, len(steps))
	for _, s := range steps {
		view := StepView{Step: string(s.Step), OK: s.OK, Fatal: s.Fatal}
		if s.Err != nil {
			view.Error = s.Err.Error()
		}
		views = append(views, view)
	}
	return views
}
