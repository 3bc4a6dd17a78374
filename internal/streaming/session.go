package streaming

import (
	"context"
	"errors"
	"net/http"
	"time"

	"brandgen-go/internal/constants"
	apperrors "brandgen-go/internal/errors"
	"brandgen-go/internal/logging"
	mw "brandgen-go/internal/middleware"
	"brandgen-go/internal/monitoring"
	"brandgen-go/internal/monitoring/tracing"
	"brandgen-go/internal/upstream"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// errMaxDuration marks a stream cut off by the overall duration cap.
var errMaxDuration = apperrors.New(http.StatusGatewayTimeout, "timeout", "timeout_error", "stream exceeded maximum duration")

// SessionConfig describes one relay.
type SessionConfig struct {
	// Kind labels metrics and logs: "chat" or "image".
	Kind   string
	Model  string
	UserID string
	// ErrorHeadline is the "message" of the JSON error body sent when the
	// stream fails before any byte was written.
	ErrorHeadline string
	MaxDuration   time.Duration
	Hook          *Hook
	// Observe sees every delta after the accumulator, e.g. for URL scanning.
	Observe func(Delta)
	// TerminalExtra adds fields to the terminal frame.
	TerminalExtra func() map[string]any
}

// Result summarizes a finished session.
type Result struct {
	SessionID  string
	State      State
	Content    string
	Deltas     int
	ClientGone bool
	Err        error
	Persisted  bool
}

// Session relays one upstream stream to one downstream response. It is used
// by a single goroutine, the request handler.
type Session struct {
	ID      string
	cfg     SessionConfig
	state   stateMachine
	acc     Accumulator
	emitter *Emitter
	log     *log.Entry
	deltas  int
	started time.Time
	ran     bool
}

// NewSession binds a new session to w. entry may carry request fields.
func NewSession(w http.ResponseWriter, cfg SessionConfig, entry *log.Entry) *Session {
	if cfg.Kind == "" {
		cfg.Kind = "chat"
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = constants.UpstreamStreamTimeout
	}
	if cfg.ErrorHeadline == "" {
		cfg.ErrorHeadline = "Streaming request failed"
	}
	id := uuid.NewString()
	entry = logging.WithSession(entry, id, cfg.Model)
	return &Session{
		ID:      id,
		cfg:     cfg,
		state:   stateMachine{state: StateOpen, log: entry},
		emitter: NewEmitter(w),
		log:     entry,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state.state }

// Emitter exposes the downstream writer, mostly for tests.
func (s *Session) Emitter() *Emitter { return s.emitter }

// Run drives produce to completion. It always ends the downstream response
// with a terminal frame, an error frame or a JSON error body, unless the
// client is gone, and then runs the persistence hook exactly once.
func (s *Session) Run(ctx context.Context, produce Producer) Result {
	if s.ran {
		s.log.Warn("session already ran")
		return Result{SessionID: s.ID, State: s.state.state}
	}
	s.ran = true
	s.started = time.Now()
	monitoring.RelaySessionsActive.WithLabelValues(s.cfg.Kind).Inc()
	defer monitoring.RelaySessionsActive.WithLabelValues(s.cfg.Kind).Dec()

	spanCtx, span := tracing.StartSpan(ctx, "streaming", "Session.Run", trace.WithAttributes(
		attribute.String("relay.session_id", s.ID),
		attribute.String("relay.kind", s.cfg.Kind),
		attribute.String("relay.model", s.cfg.Model),
	))
	streamCtx, cancel := context.WithTimeout(spanCtx, s.cfg.MaxDuration)
	defer cancel()

	err := produce(streamCtx, func(d Delta) error {
		if d.Err != nil {
			return d.Err
		}
		s.acc.Apply(d)
		if s.cfg.Observe != nil {
			s.cfg.Observe(d)
		}
		if d.Done {
			return nil
		}
		s.deltas++
		monitoring.RelayDeltasTotal.WithLabelValues(s.cfg.Kind, s.cfg.Model).Inc()
		if werr := s.emitter.Content(d.Text); werr != nil {
			cancel()
			return werr
		}
		return nil
	})

	res := s.finish(ctx, streamCtx, err)
	span.SetAttributes(
		attribute.String("relay.state", res.State.String()),
		attribute.Int("relay.deltas", res.Deltas),
		attribute.Int("relay.content_len", len(res.Content)),
	)
	tracing.EndSpan(span, res.Err)
	return res
}

func (s *Session) finish(parent, streamCtx context.Context, err error) Result {
	clientGone := parent.Err() != nil || errors.Is(err, ErrClientGone) || s.emitter.Suppressed()
	if clientGone {
		s.emitter.Suppress()
	}
	if err != nil && !clientGone && errors.Is(streamCtx.Err(), context.DeadlineExceeded) {
		err = errMaxDuration
	}

	outcome := "completed"
	switch {
	case clientGone:
		s.state.to(StateClosing)
		outcome = "client_gone"
		mw.RecordSSEClose("client_gone")
		err = nil
	case err == nil:
		s.state.to(StateClosing)
		var extra map[string]any
		if s.cfg.TerminalExtra != nil {
			extra = s.cfg.TerminalExtra()
		}
		if werr := s.emitter.Terminal(s.acc.String(), extra); werr != nil {
			clientGone = true
			outcome = "client_gone"
			mw.RecordSSEClose("write_failed")
		}
	default:
		s.state.to(StateError)
		outcome = "error"
		s.reportError(err)
	}

	persisted := false
	if s.cfg.Hook != nil {
		persisted, _ = s.cfg.Hook.Run(parent, Outcome{
			SessionID:  s.ID,
			UserID:     s.cfg.UserID,
			Model:      s.cfg.Model,
			Content:    s.acc.String(),
			State:      s.state.state,
			ClientGone: clientGone,
			Err:        err,
			StartedAt:  s.started,
			EndedAt:    time.Now(),
		})
	}
	s.state.to(StateClosed)
	monitoring.RelaySessionsTotal.WithLabelValues(s.cfg.Kind, s.cfg.Model, outcome).Inc()

	entry := s.log.WithFields(log.Fields{
		"outcome":     outcome,
		"deltas":      s.deltas,
		"content_len": s.acc.Len(),
		"persisted":   persisted,
		"duration_ms": logging.DurationMS(time.Since(s.started)),
	})
	if err != nil {
		entry.WithError(err).Warn("relay session ended with error")
	} else {
		entry.Info("relay session closed")
	}

	return Result{
		SessionID:  s.ID,
		State:      s.state.state,
		Content:    s.acc.String(),
		Deltas:     s.deltas,
		ClientGone: clientGone,
		Err:        err,
		Persisted:  persisted,
	}
}

// reportError writes a JSON 500 if nothing was sent yet, else an SSE error frame.
func (s *Session) reportError(err error) {
	_, env := apperrors.EnvelopeFor(s.cfg.ErrorHeadline, err)
	if !s.emitter.Started() {
		if werr := s.emitter.JSONError(http.StatusInternalServerError, env); werr != nil {
			mw.RecordSSEClose("write_failed")
		}
		return
	}
	if werr := s.emitter.Error(env.Error); werr != nil {
		mw.RecordSSEClose("write_failed")
		return
	}
	mw.RecordSSEClose("upstream_error")
}

// StreamOpener opens an upstream completion stream.
type StreamOpener interface {
	Stream(ctx context.Context, req upstream.ChatRequest) (*http.Response, error)
}

// UpstreamProducer streams req from client and parses it with adapter. The
// upstream body is closed when the producer returns.
func UpstreamProducer(client StreamOpener, req upstream.ChatRequest, adapter upstream.Adapter, entry *log.Entry) Producer {
	return func(ctx context.Context, fn DeltaFunc) error {
		resp, err := client.Stream(ctx, req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return ParseStream(ctx, resp.Body, adapter, fn, entry)
	}
}
