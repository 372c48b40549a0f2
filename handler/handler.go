package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/tenantkit/core"
	"github.com/dmitrymomot/tenantkit/pkg/binder"
	"github.com/dmitrymomot/tenantkit/pkg/logger"
)

// HandlerFunc handles a decoded request of type R.
type HandlerFunc[R any] func(ctx context.Context, req R) core.Response

// ErrorHandler answers requests whose binding failed.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type config struct {
	binders      []binder.Func
	errorHandler ErrorHandler
	log          *slog.Logger
}

// Option configures Wrap.
type Option func(*config)

// WithBinders sets the binders applied to the request value, in order.
func WithBinders(binders ...binder.Func) Option {
	return func(c *config) {
		c.binders = append(c.binders, binders...)
	}
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(c *config) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithLogger sets the logger for render failures.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) {
		if log != nil {
			c.log = log
		}
	}
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	_ = core.JSONError(err).Render(w, r)
}

// Wrap converts h into an http.HandlerFunc.
func Wrap[R any](h HandlerFunc[R], opts ...Option) http.HandlerFunc {
	cfg := &config{
		errorHandler: defaultErrorHandler,
		log:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req R
		if err := binder.Bind(r, &req, cfg.binders...); err != nil {
			if errors.Is(err, binder.ErrBinding) {
				err = errors.Join(core.ErrBadRequest, err)
			}
			cfg.errorHandler(w, r, err)
			return
		}

		resp := h(r.Context(), req)
		if resp == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err := resp.Render(w, r); err != nil {
			cfg.log.ErrorContext(r.Context(), "failed to render response", logger.Error(err))
		}
	}
}
