// Package proxy implements the stateless relay between shopping clients and
// the remote assistant API. Each operation validates its input, forwards it
// upstream unchanged, and passes the upstream JSON back verbatim. Every
// upstream failure collapses into one fixed error per operation.
//
// The relay is exposed over REST (gorilla/mux) and Connect:
//
//	p := proxy.New(upstream, proxy.WithObserver(obs))
//	p.Register(router.PathPrefix("/api/shop").Subrouter())
//	path, handler := p.ConnectHandler()
package proxy

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/tailored-agentic-units/shopassist/observability"
)

// Upstream abstracts the remote assistant API. *remote.Client implements it.
type Upstream interface {
	SendMessage(ctx context.Context, sessionID, message string) ([]byte, error)
	ListSessions(ctx context.Context, userID string) ([]byte, error)
	SessionMessages(ctx context.Context, sessionID string) ([]byte, error)
	SubmitFeedback(ctx context.Context, feedback []byte) ([]byte, error)
}

// Route names used in events and metrics.
const (
	RouteMessage  = "message"
	RouteSessions = "sessions"
	RouteHistory  = "session_messages"
	RouteFeedback = "feedback"
)

type sendInput struct {
	SessionID *string `json:"sessionId,omitempty"`
	Message   *string `json:"message" validate:"required"`
}

type feedbackInput struct {
	SessionID    *string  `json:"sessionId" validate:"required"`
	MessageID    *string  `json:"messageID" validate:"required"`
	ProductID    *string  `json:"productId" validate:"required"`
	Rating       *float64 `json:"rating" validate:"required,min=1,max=5"`
	Reason       []string `json:"reason,omitempty"`
	ReasonText   *string  `json:"reason_text,omitempty"`
	UserQuery    *string  `json:"user_query,omitempty"`
	FeedbackType *string  `json:"feedback_type,omitempty"`
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithObserver overrides the default no-op observer.
func WithObserver(o observability.Observer) Option {
	return func(p *Proxy) { p.observer = o }
}

// WithConfig overrides the default configuration.
func WithConfig(cfg Config) Option {
	return func(p *Proxy) { p.cfg = cfg }
}

// Proxy holds no per-request state and is safe for concurrent use.
type Proxy struct {
	upstream Upstream
	observer observability.Observer
	validate *validator.Validate
	cfg      Config
}

// New creates a Proxy relaying to upstream.
func New(upstream Upstream, opts ...Option) *Proxy {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	p := &Proxy{
		upstream: upstream,
		observer: observability.NoOpObserver{},
		validate: v,
		cfg:      DefaultConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SendMessage validates a `{sessionId?, message}` body and relays it.
func (p *Proxy) SendMessage(ctx context.Context, body []byte) ([]byte, error) {
	var in sendInput
	if err := p.decode(ctx, RouteMessage, body, &in); err != nil {
		return nil, err
	}

	var sessionID string
	if in.SessionID != nil {
		sessionID = *in.SessionID
	}

	return p.relay(ctx, RouteMessage, MsgSendFailed, func(ctx context.Context) ([]byte, error) {
		return p.upstream.SendMessage(ctx, sessionID, *in.Message)
	})
}

// ListSessions relays a session listing for userID.
func (p *Proxy) ListSessions(ctx context.Context, userID string) ([]byte, error) {
	if userID == "" {
		return nil, p.reject(ctx, RouteSessions, errors.New("userId is required"))
	}
	return p.relay(ctx, RouteSessions, MsgSessionsFailed, func(ctx context.Context) ([]byte, error) {
		return p.upstream.ListSessions(ctx, userID)
	})
}

// SessionMessages relays a history fetch for sessionID.
func (p *Proxy) SessionMessages(ctx context.Context, sessionID string) ([]byte, error) {
	if sessionID == "" {
		return nil, p.reject(ctx, RouteHistory, errors.New("sessionId is required"))
	}
	return p.relay(ctx, RouteHistory, MsgHistoryFailed, func(ctx context.Context) ([]byte, error) {
		return p.upstream.SessionMessages(ctx, sessionID)
	})
}

// SubmitFeedback validates a product rating and relays the accepted fields
// as JSON. Unknown fields are dropped.
func (p *Proxy) SubmitFeedback(ctx context.Context, body []byte) ([]byte, error) {
	var in feedbackInput
	if err := p.decode(ctx, RouteFeedback, body, &in); err != nil {
		return nil, err
	}

	forward, err := json.Marshal(in)
	if err != nil {
		return nil, upstreamFailure(MsgFeedbackFailed, errors.Wrap(err, "encode feedback"))
	}

	return p.relay(ctx, RouteFeedback, MsgFeedbackFailed, func(ctx context.Context) ([]byte, error) {
		return p.upstream.SubmitFeedback(ctx, forward)
	})
}

func (p *Proxy) decode(ctx context.Context, route string, body []byte, dst any) error {
	if int64(len(body)) > p.cfg.MaxBodyBytes {
		return p.reject(ctx, route, errors.Errorf("body exceeds %d bytes", p.cfg.MaxBodyBytes))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return p.reject(ctx, route, errors.Wrap(err, "invalid JSON body"))
	}
	if err := p.validate.Struct(dst); err != nil {
		return p.reject(ctx, route, describe(err))
	}
	return nil
}

func (p *Proxy) reject(ctx context.Context, route string, cause error) error {
	observability.Emit(ctx, p.observer, EventValidationError, observability.LevelWarning, "proxy."+route, map[string]any{
		observability.KeyRoute: route,
		"error":                cause.Error(),
	})
	return badRequest(cause.Error(), cause)
}

func (p *Proxy) relay(ctx context.Context, route, failure string, call func(context.Context) ([]byte, error)) ([]byte, error) {
	source := "proxy." + route
	observability.Emit(ctx, p.observer, EventRelayStart, observability.LevelVerbose, source, map[string]any{
		observability.KeyRoute: route,
	})

	start := time.Now()
	data, err := call(ctx)
	elapsed := time.Since(start)

	if err != nil {
		observability.Emit(ctx, p.observer, EventRelayError, observability.LevelWarning, source, map[string]any{
			observability.KeyRoute:    route,
			observability.KeyDuration: elapsed,
			"error":                   err.Error(),
		})
		return nil, upstreamFailure(failure, err)
	}

	observability.Emit(ctx, p.observer, EventRelayComplete, observability.LevelInfo, source, map[string]any{
		observability.KeyRoute:    route,
		observability.KeyDuration: elapsed,
		"bytes":                   len(data),
	})
	return data, nil
}

// describe turns validator output into a short caller-facing sentence.
func describe(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "min":
			parts = append(parts, fe.Field()+" must be at least "+fe.Param())
		case "max":
			parts = append(parts, fe.Field()+" must be at most "+fe.Param())
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return errors.New(strings.Join(parts, "; "))
}
