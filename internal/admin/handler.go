package admin

import (
	"context"
	"fmt"
	"log/slog"
)

// Actions accepted on the command channel.
const (
	ActionResetDefaults = "resetDefaults"
	ActionSetEnabled    = "setEnabled"
	ActionResetStats    = "resetStats"
)

// Request is a message on the command channel.
type Request struct {
	Action  string `json:"action"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// Response answers a Request.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Envelope carries a request and where to send its response. Reply must have
// room for one value or a reader waiting on it.
type Envelope struct {
	Request Request
	Reply   chan<- Response
}

// Handler answers command-channel requests with a Service.
type Handler struct {
	svc *Service
}

// NewHandler returns a handler backed by svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Handle runs one request. Failures are reported in the response, never
// returned.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	var err error
	switch req.Action {
	case ActionResetDefaults:
		err = h.svc.ResetDefaults(ctx)
	case ActionSetEnabled:
		if req.Enabled == nil {
			err = fmt.Errorf("%s: missing enabled", req.Action)
			break
		}
		err = h.svc.SetEnabled(ctx, *req.Enabled)
	case ActionResetStats:
		err = h.svc.ResetStats(ctx)
	default:
		err = fmt.Errorf("unknown action %q", req.Action)
	}
	if err != nil {
		slog.Error("Command failed", "action", req.Action, "error", err)
		return Response{OK: false, Error: err.Error()}
	}
	return Response{OK: true}
}

// Serve answers envelopes from in until in is closed or ctx is done.
// It returns ctx.Err() when stopped by the context.
func (h *Handler) Serve(ctx context.Context, in <-chan Envelope) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-in:
			if !ok {
				return nil
			}
			resp := h.Handle(ctx, env.Request)
			if env.Reply == nil {
				continue
			}
			select {
			case env.Reply <- resp:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Send posts req on out and waits for the response.
func Send(ctx context.Context, out chan<- Envelope, req Request) (Response, error) {
	reply := make(chan Response, 1)
	select {
	case out <- Envelope{Request: req, Reply: reply}:
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	select {
	case resp := <-reply:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}
