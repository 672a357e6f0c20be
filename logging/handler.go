package logging

import (
	"context"
	"net/http"
	"time"
)

type contextKey struct{}

// Handler logs an access entry for every request served by the wrapped
// handler.
type Handler struct {
	next http.Handler
	now  func() time.Time
}

// NewHandler wraps a handler with access logging.
func NewHandler(next http.Handler) *Handler {
	return &Handler{next: next, now: time.Now}
}

func entryFrom(ctx context.Context) *AccessEntry {
	e, _ := ctx.Value(contextKey{}).(*AccessEntry)
	return e
}

// SetFlowID sets the flow ID in the access entry of the current request.
// Without access logging, it has no effect.
func SetFlowID(ctx context.Context, flowID string) {
	if e := entryFrom(ctx); e != nil {
		e.FlowID = flowID
	}
}

// SetDecision sets the kind of the routing decision in the access entry
// of the current request.
func SetDecision(ctx context.Context, kind string) {
	if e := entryFrom(ctx); e != nil {
		e.Decision = kind
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entry := &AccessEntry{Request: r, RequestTime: h.now()}
	lw := &loggingWriter{writer: w}
	h.next.ServeHTTP(lw, r.WithContext(context.WithValue(r.Context(), contextKey{}, entry)))

	if lw.code == 0 {
		lw.code = http.StatusOK
	}

	entry.StatusCode = lw.code
	entry.ResponseSize = lw.bytes
	entry.Duration = h.now().Sub(entry.RequestTime)
	LogAccess(entry)
}
