// Package workspace serves tenant-scoped endpoints. Every query runs in the
// partition of the tenant bound to the request; handlers never name a schema.
package workspace

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantkit/core"
	"github.com/dmitrymomot/tenantkit/handler"
	"github.com/dmitrymomot/tenantkit/pkg/binder"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/schemarouter"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Announcement is a row of the partition's announcements table.
type Announcement struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Body        string    `json:"body" db:"body"`
	Pinned      bool      `json:"pinned" db:"pinned"`
	PublishedAt time.Time `json:"published_at" db:"published_at"`
}

type RouterOptions struct {
	Router *schemarouter.Router
	Logger *slog.Logger
}

// Router must be mounted behind tenant.Middleware. It mounts:
//
//	GET  /partition       the resolved partition of the bound tenant
//	GET  /announcements   pinned first, newest first (?limit=)
//	POST /announcements   publish an announcement
func Router(opts RouterOptions) chi.Router {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	h := &handlers{log: log.With(logger.Component("workspace"))}
	wrapOpts := []handler.Option{handler.WithLogger(h.log)}

	r := chi.NewRouter()
	r.Use(opts.Router.Middleware(nil))
	r.Get("/partition", handler.Wrap(h.partition, wrapOpts...))
	r.Get("/announcements", handler.Wrap(h.listAnnouncements, append(wrapOpts, handler.WithBinders(binder.Query()))...))
	r.Post("/announcements", handler.Wrap(h.createAnnouncement, append(wrapOpts, handler.WithBinders(binder.JSON(0)))...))
	return r
}

type handlers struct {
	log *slog.Logger
}

type listRequest struct {
	Limit int `query:"limit"`
}

type createRequest struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Pinned bool   `json:"pinned"`
}

func (h *handlers) target(ctx context.Context) (*schemarouter.Target, core.Response) {
	target, ok := schemarouter.FromContext(ctx)
	if !ok {
		return nil, core.JSONError(tenant.HTTPError(tenant.ErrPartitionUnavailable))
	}
	return target, nil
}

func (h *handlers) fail(ctx context.Context, err error) core.Response {
	h.log.ErrorContext(ctx, "workspace request failed", logger.Error(err))
	return core.JSONError(tenant.HTTPError(err))
}

func (h *handlers) partition(ctx context.Context, _ struct{}) core.Response {
	target, errResp := h.target(ctx)
	if errResp != nil {
		return errResp
	}
	return core.JSON("ok", target, nil)
}

func (h *handlers) listAnnouncements(ctx context.Context, req listRequest) core.Response {
	target, errResp := h.target(ctx)
	if errResp != nil {
		return errResp
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	var list []Announcement
	err := target.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, title, body, pinned, published_at
			FROM announcements
			ORDER BY pinned DESC, published_at DESC
			LIMIT $1`, limit)
		if err != nil {
			return err
		}
		list, err = pgx.CollectRows(rows, pgx.RowToStructByName[Announcement])
		return err
	})
	if err != nil {
		return h.fail(ctx, err)
	}
	if list == nil {
		list = []Announcement{}
	}
	return core.JSON("ok", list, map[string]any{"count": len(list)})
}

func (h *handlers) createAnnouncement(ctx context.Context, req createRequest) core.Response {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return core.JSONError(core.ErrUnprocessableEntity)
	}
	target, errResp := h.target(ctx)
	if errResp != nil {
		return errResp
	}

	a := Announcement{
		ID:     uuid.New(),
		Title:  title,
		Body:   req.Body,
		Pinned: req.Pinned,
	}
	err := target.InTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return tx.QueryRow(ctx, `
			INSERT INTO announcements (id, title, body, pinned)
			VALUES ($1, $2, $3, $4)
			RETURNING published_at`,
			a.ID, a.Title, a.Body, a.Pinned,
		).Scan(&a.PublishedAt)
	})
	if err != nil {
		return h.fail(ctx, err)
	}
	return core.JSONWithStatus(http.StatusCreated, "created", a, nil)
}
