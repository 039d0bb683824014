package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"devoverflow/internal/api"
	"devoverflow/internal/engine"
	"devoverflow/internal/middleware"
	"devoverflow/internal/query"
	"devoverflow/internal/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

// Server holds all server dependencies, including the engine that runs every
// operation.
type Server struct {
	Engine      *engine.Engine
	JWT         *middleware.JWTManager
	Metrics     *utils.MetricsCollector
	CORS        *middleware.CORSConfig
	OAuthSecret string
	Logger      *slog.Logger
}

// NewServer creates a new Server instance with the given components
func NewServer(e *engine.Engine, jwt *middleware.JWTManager, metrics *utils.MetricsCollector, cors *middleware.CORSConfig, oauthSecret string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Engine:      e,
		JWT:         jwt,
		Metrics:     metrics,
		CORS:        cors,
		OAuthSecret: oauthSecret,
		Logger:      logger,
	}
}

// Routes builds the router. Reads take an optional session so responses can
// include the caller's own votes and saves; writes require one.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware(s.CORS))

	r.Get("/health", s.HandleHealth())
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.HandleRegister())
		r.Post("/login", s.HandleLogin())
		r.With(middleware.RequireSecret(middleware.OAuthSecretHeader, s.OAuthSecret)).
			Post("/oauth", s.HandleOAuthSignIn())
	})

	r.Get("/users/{id}", s.HandleGetUser())

	r.Route("/questions", func(r chi.Router) {
		r.With(s.JWT.Optional).Get("/", s.HandleListQuestions())
		r.With(s.JWT.Required).Post("/", s.HandleCreateQuestion())

		r.Route("/{id}", func(r chi.Router) {
			r.With(s.JWT.Optional).Get("/", s.HandleGetQuestion())
			r.With(s.JWT.Required).Patch("/", s.HandleEditQuestion())
			r.Get("/answers", s.HandleListAnswers())
			r.With(s.JWT.Required).Post("/answers", s.HandleCreateAnswer())
			r.With(s.JWT.Required).Post("/answers/draft", s.HandleGenerateDraft())
		})
	})

	r.Route("/votes", func(r chi.Router) {
		r.With(s.JWT.Required).Post("/", s.HandleCastVote())
		r.With(s.JWT.Optional).Get("/status", s.HandleVoteStatus())
	})

	r.Route("/collections", func(r chi.Router) {
		r.Use(s.JWT.Required)
		r.Get("/", s.HandleListSaved())
		r.Post("/{questionId}/toggle", s.HandleToggleSave())
	})

	r.Route("/tags", func(r chi.Router) {
		r.Get("/", s.HandleListTags())
		r.Get("/popular", s.HandlePopularTags())
		r.Get("/{id}", s.HandleGetTag())
		r.Get("/{id}/questions", s.HandleTaggedQuestions())
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respond writes data in the success envelope, or err in the failure one.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, data any, err error) {
	if err != nil {
		body, code := api.Fail(err)
		if code >= http.StatusInternalServerError {
			s.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", code, utils.ErrAttr(err))
		}
		writeJSON(w, code, body)
		return
	}
	writeJSON(w, status, api.OK(data))
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return utils.NewValidationError("request body is required", nil)
		}
		return utils.NewValidationError("invalid request body", map[string]string{"body": err.Error()})
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, utils.NewValidationError("invalid id", map[string]string{name: "must be a UUID"})
	}
	return id, nil
}

func listParams(r *http.Request) query.ListParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	return query.ListParams{
		Query:    q.Get("query"),
		Filter:   q.Get("filter"),
		Page:     page,
		PageSize: pageSize,
	}
}
