package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jaminalder/time-travel-tic-tac-toe/internal/app"
)

const defaultHeartbeat = 15 * time.Second

// NewServer wires routes and returns an http.Handler. It also installs the
// board fragment as the service's broadcast renderer. A zero heartbeat
// uses the default SSE ping interval.
func NewServer(s *app.Service, log *zap.Logger, heartbeat time.Duration) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	h := &handlers{svc: s, tpl: loadTemplates(), log: log.Named("web"), heartbeat: heartbeat}
	s.SetRenderer(h.renderState)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/", h.index)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/play", h.play)
		r.Post("/jump", h.jump)
		r.Post("/order", h.order)
		r.Get("/events", h.events)
	})
	return r
}

// requestLogger logs one line per request once the handler returns.
func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
