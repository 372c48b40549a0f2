package schemarouter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/pg"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/provision"
)

// Catalog looks up partition catalog rows. *provision.Engine and
// *provision.PostgresStore satisfy it.
type Catalog interface {
	Partition(ctx context.Context, slug string) (provision.Partition, error)
}

// Beginner starts transactions. *pgxpool.Pool satisfies it.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Router resolves the partition of the tenant bound to a context.
type Router struct {
	catalog Catalog
	db      Beginner
	log     *slog.Logger
}

func New(catalog Catalog, db Beginner, log *slog.Logger) *Router {
	if log == nil {
		log = logger.Discard()
	}
	return &Router{
		catalog: catalog,
		db:      db,
		log:     log.With(logger.Component("schemarouter")),
	}
}

// ResolveTarget returns the partition for the tenant bound to ctx. Only
// ready partitions are returned.
func (r *Router) ResolveTarget(ctx context.Context) (*Target, error) {
	id, err := tenant.Current(ctx)
	if err != nil {
		return nil, err
	}

	schema, err := tenant.PartitionName(id.Slug)
	if err != nil {
		return nil, err
	}

	p, err := r.catalog.Partition(ctx, id.Slug)
	if errors.Is(err, provision.ErrPartitionNotFound) {
		r.log.WarnContext(ctx, "tenant has no partition", logger.Tenant(id.Slug))
		return nil, tenant.ErrPartitionUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("lookup partition: %w", err)
	}
	if !p.State.Routable() {
		r.log.WarnContext(ctx, "partition not routable",
			logger.Tenant(id.Slug),
			logger.State(string(p.State)),
		)
		return nil, tenant.ErrPartitionUnavailable
	}
	if p.Schema != schema {
		return nil, fmt.Errorf("%w: catalog schema %q for tenant %q", tenant.ErrPartitionUnavailable, p.Schema, id.Slug)
	}

	return &Target{
		Tenant:   id,
		Schema:   schema,
		Revision: p.Revision,
		db:       r.db,
	}, nil
}

// InTx resolves the target of ctx and runs fn in a transaction scoped to it.
func (r *Router) InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	target, err := r.ResolveTarget(ctx)
	if err != nil {
		return err
	}
	return target.InTx(ctx, fn)
}

// Target is a resolved partition. It is only valid together with a context
// bound to the same tenant.
type Target struct {
	Tenant   tenant.Identity `json:"tenant"`
	Schema   string          `json:"schema"`
	Revision int64           `json:"revision"`

	db Beginner
}

// InTx runs fn inside a transaction whose search_path is the target schema.
// The search_path is transaction-local, so the connection goes back to the
// pool unscoped. fn's error rolls the transaction back.
func (t *Target) InTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if t == nil || t.db == nil {
		return ErrTargetMismatch
	}
	if err := t.check(ctx); err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, t.db, func(tx pgx.Tx) error {
		if err := pg.SetLocalSearchPath(ctx, tx, t.Schema); err != nil {
			return err
		}
		// The binding may have been released while waiting for a connection.
		if err := t.check(ctx); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}

func (t *Target) check(ctx context.Context) error {
	id, err := tenant.Current(ctx)
	if err != nil {
		return errors.Join(ErrTargetMismatch, err)
	}
	if id.ID != t.Tenant.ID || id.Slug != t.Tenant.Slug {
		return ErrTargetMismatch
	}
	return nil
}
