package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bnema/quotaguard/internal/application"
	"github.com/bnema/quotaguard/internal/domain"
)

// accountCommandBody is the body of the per-account block and unblock
// routes; the account and action come from the path.
type accountCommandBody struct {
	Reason      string     `json:"reason"`
	PerformedBy string     `json:"performed_by"`
	Duration    string     `json:"duration"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type usageEventResponse struct {
	AccountID   string                       `json:"account_id"`
	ShouldBlock bool                         `json:"should_block"`
	Reason      string                       `json:"reason,omitempty"`
	Usage       application.UsageView        `json:"usage"`
	Expired     *application.CommandResponse `json:"expired,omitempty"`
	Blocked     *application.CommandResponse `json:"blocked,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *Handler) command(w http.ResponseWriter, r *http.Request) {
	var raw application.RawCommand
	if err := decodeBody(r, &raw, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.dispatch(w, r, raw)
}

func (h *Handler) block(w http.ResponseWriter, r *http.Request) {
	h.accountCommand(w, r, application.ActionBlock)
}

func (h *Handler) unblock(w http.ResponseWriter, r *http.Request) {
	h.accountCommand(w, r, application.ActionUnblock)
}

func (h *Handler) accountCommand(w http.ResponseWriter, r *http.Request, action application.Action) {
	var body accountCommandBody
	if err := decodeBody(r, &body, true); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.dispatch(w, r, application.RawCommand{
		Action:      string(action),
		AccountID:   chi.URLParam(r, "account_id"),
		Reason:      body.Reason,
		PerformedBy: body.PerformedBy,
		Duration:    body.Duration,
		ExpiresAt:   body.ExpiresAt,
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, application.RawCommand{
		Action:    string(application.ActionCheckStatus),
		AccountID: chi.URLParam(r, "account_id"),
	})
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, raw application.RawCommand) {
	resp, code := h.gateway.HandleCommand(r.Context(), raw)
	if code >= http.StatusInternalServerError {
		h.logger.Error("administrative command failed",
			zap.String("action", raw.Action),
			zap.String("account_id", raw.AccountID),
			zap.String("message", resp.Message))
	}
	writeJSON(w, code, resp)
}

func (h *Handler) usageEvent(w http.ResponseWriter, r *http.Request) {
	var event application.UsageEvent
	if err := decodeBody(r, &event, false); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.gateway.HandleUsageEvent(r.Context(), event)
	if err != nil {
		code := application.StatusCode(err)
		if code >= http.StatusInternalServerError {
			h.logger.Error("usage event failed", zap.String("account_id", event.AccountID), zap.Error(err))
		}
		writeError(w, code, err.Error())
		return
	}

	resp := usageEventResponse{
		AccountID:   string(outcome.AccountID),
		ShouldBlock: outcome.ShouldBlock,
		Reason:      outcome.Reason,
		Usage: application.UsageView{
			RequestsToday:     outcome.Snapshot.RequestsToday,
			RequestsThisMonth: outcome.Snapshot.RequestsThisMonth,
		},
	}
	if outcome.Expired != nil {
		view := h.gateway.Describe(*outcome.Expired, nil)
		resp.Expired = &view
	}
	if outcome.Block != nil {
		view := h.gateway.Describe(*outcome.Block, nil)
		resp.Blocked = &view
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// decodeBody rejects unknown fields. An empty body is accepted when
// allowEmpty is set.
func decodeBody(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return fmt.Errorf("%w: invalid json body: %w", domain.ErrInvalidTransitionRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Status: application.ResponseFailure, Message: message})
}
