package http

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"iqplay/internal/app"
	"iqplay/internal/identity"
	"iqplay/internal/logging"
)

// RouterConfig wires the handlers served by NewRouter.
type RouterConfig struct {
	Service  *app.QuizService
	Verifier *identity.Verifier
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Logger  zerolog.Logger
}

// NewRouter mounts health, metrics, websocket and REST routes behind the
// bearer token middleware.
func NewRouter(cfg RouterConfig) http.Handler {
	router := httprouter.New()
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		cfg.Logger.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("handler panic")
		writeJSON(w, http.StatusInternalServerError, errorPayload{Code: "internal", Message: "internal error"})
	}

	router.GET("/healthz", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		router.Handler(http.MethodGet, "/metrics", cfg.Metrics)
	}
	router.HandlerFunc(http.MethodGet, "/ws", NewWSHandler(cfg.Service, cfg.Logger).ServeWS)
	NewRESTHandler(cfg.Service, cfg.Logger).Register(router)

	var handler http.Handler = router
	if cfg.Verifier != nil {
		handler = identity.Middleware(cfg.Verifier, cfg.Logger)(router)
	}
	return withLogger(cfg.Logger, handler)
}

// withLogger attaches a request-scoped logger to the context.
func withLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
		next.ServeHTTP(w, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))
	})
}
