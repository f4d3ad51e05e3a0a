// Package history records scans a user has run and serves them back, gated
// by the plan's monthly allowance.
package history

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
	"github.com/wavsocial/wavscan/svc/billing"
)

// listLimit caps a single history page.
const listLimit = 100

// Scan is one recorded lookup.
type Scan struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"-"`
	Query     string    `json:"query"`
	Platform  string    `json:"platform"`
	Result    string    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// Storage persists scan rows.
type Storage interface {
	Insert(ctx context.Context, scan *Scan) error
	// ListByUser returns the user's scans newest first, at most limit rows.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Scan, error)
	// CountSince counts the user's scans created at or after since.
	CountSince(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
}

// Service wires scan history to HTTP.
type Service struct {
	storage  Storage
	catalog  *billing.Catalog
	sessions *session.Manager
	log      *slog.Logger
}

// New creates the history module.
func New(storage Storage, catalog *billing.Catalog, sessions *session.Manager, log *slog.Logger) *Service {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Service{storage: storage, catalog: catalog, sessions: sessions, log: log}
}

// Handle returns the module router, mounted by the caller under /history.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(s.sessions.RequireUser)
	r.Post("/", s.record)
	r.Get("/", s.list)
	return r
}

type recordRequest struct {
	Query    string `json:"query"`
	Platform string `json:"platform"`
	Result   string `json:"result"`
}

func (s *Service) record(w http.ResponseWriter, r *http.Request) {
	u, ok := session.UserFromContext(r.Context())
	if !ok {
		core.RespondError(w, core.ErrUnauthorized)
		return
	}

	var req recordRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.RespondError(w, err)
		return
	}
	if req.Query == "" {
		core.RespondError(w, core.ErrBadRequest.WithMessage("query is required"))
		return
	}

	monthStart := startOfMonth(time.Now())
	used, err := s.storage.CountSince(r.Context(), u.ID, monthStart)
	if err != nil {
		s.log.Error("failed to count scans", logger.Error(err), logger.UserID(u.ID.String()))
		core.RespondError(w, err)
		return
	}
	if used >= s.catalog.ScanLimit(u.Plan) {
		core.RespondError(w, core.NewHTTPError(http.StatusForbidden, "scan_limit_reached",
			"monthly scan limit reached, upgrade to continue"))
		return
	}

	scan := &Scan{
		ID:        uuid.New(),
		UserID:    u.ID,
		Query:     req.Query,
		Platform:  req.Platform,
		Result:    sanitizer.TrimText(req.Result, 10000),
		CreatedAt: time.Now(),
	}
	if err := s.storage.Insert(r.Context(), scan); err != nil {
		s.log.Error("failed to record scan", logger.Error(err), logger.UserID(u.ID.String()))
		core.RespondError(w, err)
		return
	}

	core.RespondCreated(w, scan)
}

func (s *Service) list(w http.ResponseWriter, r *http.Request) {
	u, ok := session.UserFromContext(r.Context())
	if !ok {
		core.RespondError(w, core.ErrUnauthorized)
		return
	}

	scans, err := s.storage.ListByUser(r.Context(), u.ID, listLimit)
	if err != nil {
		s.log.Error("failed to list scans", logger.Error(err), logger.UserID(u.ID.String()))
		core.RespondError(w, err)
		return
	}

	core.RespondOK(w, scans)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
