package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"iqplay/internal/app"
	"iqplay/internal/domain"
	"iqplay/internal/logging"
)

// RESTHandler exposes the lobby, round and result use cases over JSON.
type RESTHandler struct {
	service *app.QuizService
	logger  zerolog.Logger
}

func NewRESTHandler(service *app.QuizService, logger zerolog.Logger) *RESTHandler {
	return &RESTHandler{service: service, logger: logger}
}

// Register mounts the routes on router.
func (h *RESTHandler) Register(router *httprouter.Router) {
	router.POST("/games", h.createGame)
	router.GET("/games", h.listGames)
	router.DELETE("/games/:id", h.endGame)
	router.GET("/games/:id/points", h.standings)
	router.GET("/games/:id/result", h.result)
	router.GET("/games/:id/review", h.review)

	router.POST("/games/:id/round", h.start)
	router.GET("/games/:id/round", h.snapshot)
	router.DELETE("/games/:id/round", h.exit)
	router.POST("/games/:id/round/select", h.selectOption)
	router.POST("/games/:id/round/next", h.next)
	router.POST("/games/:id/round/retry", h.retry)
}

type startRequest struct {
	Category string `json:"category"`
	Tier     string `json:"tier"`
}

type selectRequest struct {
	Option string `json:"option"`
}

func (h *RESTHandler) createGame(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var draft domain.GameDraft
	if !decode(w, r, &draft) {
		return
	}
	game, err := h.service.CreateGame(r.Context(), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

// listGames serves GET /games?q=name.
func (h *RESTHandler) listGames(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	games, err := h.service.ListGames(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (h *RESTHandler) start(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req startRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.service.Start(r.Context(), app.StartRequest{GameID: p.ByName("id"), Category: req.Category, Tier: req.Tier})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (h *RESTHandler) snapshot(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	snap, err := h.service.Snapshot(r.Context(), p.ByName("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *RESTHandler) selectOption(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.service.Select(r.Context(), p.ByName("id"), req.Option)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *RESTHandler) next(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	snap, err := h.service.Next(r.Context(), p.ByName("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *RESTHandler) retry(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	snap, err := h.service.Retry(r.Context(), p.ByName("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *RESTHandler) exit(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := h.service.Exit(r.Context(), p.ByName("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTHandler) result(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	res, err := h.service.Result(r.Context(), p.ByName("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *RESTHandler) review(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	responses, err := h.service.Review(r.Context(), p.ByName("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, responses)
}

func (h *RESTHandler) standings(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	st, err := h.service.Standings(r.Context(), p.ByName("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *RESTHandler) endGame(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	if err := h.service.EndGame(r.Context(), p.ByName("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RESTHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal || kind == domain.KindPersistence {
		logger := logging.FromContext(r.Context())
		if logger.GetLevel() == zerolog.Disabled {
			logger = h.logger
		}
		logger.Error().Err(err).Str("kind", string(kind)).Msg("request failed")
	}
	writeError(w, err)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, &domain.ValidationError{Err: errors.New("invalid request body")})
		return false
	}
	return true
}
