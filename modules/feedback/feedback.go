// Package feedback stores survey submissions: a 1-5 rating plus an optional
// free-text comment.
package feedback

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wavsocial/wavscan/core"
	"github.com/wavsocial/wavscan/pkg/logger"
	"github.com/wavsocial/wavscan/pkg/sanitizer"
	"github.com/wavsocial/wavscan/pkg/session"
	"github.com/wavsocial/wavscan/pkg/validator"
)

// maxCommentLen bounds the free-text comment in runes.
const maxCommentLen = 2000

// Feedback is one survey submission.
type Feedback struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Storage persists feedback rows.
type Storage interface {
	Insert(ctx context.Context, fb *Feedback) error
}

// Service wires feedback submission to HTTP.
type Service struct {
	storage  Storage
	sessions *session.Manager
	log      *slog.Logger
}

// New creates the feedback module.
func New(storage Storage, sessions *session.Manager, log *slog.Logger) *Service {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Service{storage: storage, sessions: sessions, log: log}
}

// Handle returns the module router, mounted by the caller under /feedback.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(s.sessions.RequireUser)
	r.Post("/", s.submit)
	return r
}

type submitRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *Service) submit(w http.ResponseWriter, r *http.Request) {
	u, ok := session.UserFromContext(r.Context())
	if !ok {
		core.RespondError(w, core.ErrUnauthorized)
		return
	}

	var req submitRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.RespondError(w, err)
		return
	}

	if err := validator.Apply(
		validator.InRange("rating", req.Rating, 1, 5),
		validator.MaxLen("comment", req.Comment, maxCommentLen*4),
	); err != nil {
		core.RespondError(w, err)
		return
	}

	fb := &Feedback{
		ID:        uuid.New(),
		UserID:    u.ID,
		Rating:    req.Rating,
		Comment:   sanitizer.TrimText(req.Comment, maxCommentLen),
		CreatedAt: time.Now(),
	}
	if err := s.storage.Insert(r.Context(), fb); err != nil {
		s.log.Error("failed to store feedback", logger.Error(err), logger.UserID(u.ID.String()))
		core.RespondError(w, err)
		return
	}

	core.RespondCreated(w, fb)
}
