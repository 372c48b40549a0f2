package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/tenantkit/pkg/logger"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
)

// bookkeepingTimeout bounds catalog writes that must happen even after the
// operation's own context expired.
const bookkeepingTimeout = 10 * time.Second

// Result reports what Provision did.
type Result struct {
	// Created is true only for the call that actually built the partition.
	Created  bool  `json:"created"`
	Revision int64 `json:"revision"`
}

// Report summarises an UpgradeAll run. Slices hold partition slugs.
type Report struct {
	Target   int64             `json:"target"`
	Upgraded []string          `json:"upgraded"`
	UpToDate []string          `json:"up_to_date"`
	Skipped  []string          `json:"skipped"`
	Failed   map[string]string `json:"failed"`
}

// Engine creates, upgrades and removes tenant partitions.
type Engine struct {
	store     Store
	revisions []Revision
	cfg       Config
	log       *slog.Logger
}

// New returns an engine applying revisions through store. revisions must be
// sorted by version, as returned by LoadRevisions.
func New(store Store, revisions []Revision, cfg Config, log *slog.Logger) *Engine {
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{
		store:     store,
		revisions: slices.Clone(revisions),
		cfg:       cfg.withDefaults(),
		log:       log.With(logger.Component("provision")),
	}
}

// Provision makes sure t has a complete partition at the current shared
// revision. Concurrent calls for the same slug are serialised by an advisory
// lock; only the call that builds the partition gets Created=true. A failed
// build leaves the catalog row quarantined and returns a *ProvisioningError.
// A quarantined partition is rebuilt from scratch on the next call. A schema
// that already exists under the partition's name is never touched; the build
// fails with ErrSchemaExists instead.
func (e *Engine) Provision(ctx context.Context, t *tenant.Tenant) (Result, error) {
	if t == nil {
		return Result{}, &ProvisioningError{Stage: "validate", Err: tenant.ErrInvalidBinding}
	}
	schema, err := tenant.PartitionName(t.Slug)
	if err != nil {
		return Result{}, &ProvisioningError{Slug: t.Slug, Stage: "validate", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.ProvisionTimeout)
	defer cancel()

	unlock, err := e.store.Lock(ctx, t.Slug)
	if err != nil {
		return Result{}, &ProvisioningError{Slug: t.Slug, Stage: "lock", Err: err}
	}
	defer unlock()

	existing, err := e.store.Partition(ctx, t.Slug)
	switch {
	case err == nil && existing.State == StateReady:
		return Result{Created: false, Revision: existing.Revision}, nil
	case err == nil && existing.State == StateDegraded:
		// Complete partition with tenant data in it: repair, never rebuild.
		shared, err := e.store.SharedRevision(ctx)
		if err != nil {
			return Result{}, &ProvisioningError{Slug: t.Slug, Stage: "shared revision", Err: err}
		}
		rev, err := e.upgradeLocked(ctx, existing, shared)
		if err != nil {
			return Result{}, &ProvisioningError{Slug: t.Slug, Stage: "repair", Err: err}
		}
		return Result{Created: false, Revision: rev}, nil
	case err != nil && !errors.Is(err, ErrPartitionNotFound):
		return Result{}, &ProvisioningError{Slug: t.Slug, Stage: "catalog", Err: err}
	}

	shared, err := e.store.SharedRevision(ctx)
	if err != nil {
		return Result{}, &ProvisioningError{Slug: t.Slug, Stage: "shared revision", Err: err}
	}
	if shared <= 0 {
		return Result{}, &ProvisioningError{Slug: t.Slug, Stage: "shared revision", Err: ErrNoBaseline}
	}
	steps := Plan(e.revisions, 0, shared)

	log := e.log.With(logger.Tenant(t.Slug), logger.Partition(schema))
	start := time.Now()

	if err := e.store.BeginProvisioning(ctx, t.Slug, schema); err != nil {
		return Result{}, &ProvisioningError{Slug: t.Slug, Stage: "catalog", Err: err}
	}
	if err := e.store.CreatePartition(ctx, t.Slug, schema, steps); err != nil {
		e.mark(ctx, t.Slug, StateQuarantined, err)
		log.ErrorContext(ctx, "partition quarantined", logger.Error(err))
		return Result{}, &ProvisioningError{Slug: t.Slug, Stage: "create", Err: err}
	}

	log.InfoContext(ctx, "partition provisioned",
		logger.Revision(shared),
		logger.Duration(time.Since(start)),
	)
	return Result{Created: true, Revision: shared}, nil
}

// UpgradeAll migrates the shared namespace to target (latest when target <= 0)
// and then every complete partition behind it, revision by revision, with
// bounded parallelism. Each revision commits together with its stamp, so an
// interrupted run resumes where it stopped. A failing partition is marked
// degraded and the others proceed; the error is then ErrUpgradeIncomplete.
// Quarantined and provisioning partitions are skipped.
func (e *Engine) UpgradeAll(ctx context.Context, target int64) (Report, error) {
	shared, err := e.store.MigrateShared(ctx, target)
	if err != nil {
		return Report{Target: target}, fmt.Errorf("migrate shared namespace: %w", err)
	}
	if target <= 0 {
		target = shared
	}
	if shared < target {
		return Report{Target: target}, fmt.Errorf("%w: %d (shared namespace is at %d)", ErrUnknownRevision, target, shared)
	}

	partitions, err := e.store.ListPartitions(ctx)
	if err != nil {
		return Report{Target: target}, fmt.Errorf("list partitions: %w", err)
	}

	report := Report{
		Target:   target,
		Upgraded: []string{},
		UpToDate: []string{},
		Skipped:  []string{},
		Failed:   map[string]string{},
	}
	var mu sync.Mutex
	record := func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}

	e.log.InfoContext(ctx, "upgrade started",
		logger.Revision(target),
		slog.Int("partitions", len(partitions)),
	)

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.UpgradeParallelism)
	for _, p := range partitions {
		switch {
		case p.State == StateQuarantined || p.State == StateProvisioning:
			report.Skipped = append(report.Skipped, p.Slug)
			continue
		case p.State == StateReady && p.Revision >= target:
			report.UpToDate = append(report.UpToDate, p.Slug)
			continue
		}
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			_, err := e.upgradeOne(ctx, p.Slug, target)
			record(func() {
				if err != nil {
					report.Failed[p.Slug] = err.Error()
				} else {
					report.Upgraded = append(report.Upgraded, p.Slug)
				}
			})
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(report.Upgraded)
	slices.Sort(report.UpToDate)
	slices.Sort(report.Skipped)

	e.log.InfoContext(ctx, "upgrade finished",
		logger.Revision(target),
		slog.Int("upgraded", len(report.Upgraded)),
		slog.Int("failed", len(report.Failed)),
		slog.Int("skipped", len(report.Skipped)),
	)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if len(report.Failed) > 0 {
		return report, ErrUpgradeIncomplete
	}
	return report, nil
}

// Deprovision drops the partition of slug together with its catalog row.
// Operator-only: the partition's data is destroyed.
func (e *Engine) Deprovision(ctx context.Context, slug string) error {
	schema, err := tenant.PartitionName(slug)
	if err != nil {
		return err
	}

	unlock, err := e.store.Lock(ctx, slug)
	if err != nil {
		return err
	}
	defer unlock()

	p, err := e.store.Partition(ctx, slug)
	if err != nil {
		return err
	}

	switch p.State {
	case StateReady, StateDegraded:
		if err := e.store.DropPartition(ctx, slug, p.Schema); err != nil {
			return fmt.Errorf("drop partition %q: %w", schema, err)
		}
		e.log.WarnContext(ctx, "partition deprovisioned", logger.Tenant(slug), logger.Partition(schema))
	default:
		// Never built: a schema with this name, if any, is not ours.
		if err := e.store.ForgetPartition(ctx, slug); err != nil {
			return fmt.Errorf("forget partition %q: %w", schema, err)
		}
		e.log.WarnContext(ctx, "unbuilt partition removed from catalog",
			logger.Tenant(slug),
			logger.State(string(p.State)),
		)
	}
	return nil
}

// RequireReady returns nil only when slug has a routable partition.
func (e *Engine) RequireReady(ctx context.Context, slug string) error {
	p, err := e.store.Partition(ctx, slug)
	if err != nil {
		return err
	}
	if !p.State.Routable() {
		return fmt.Errorf("%w: %s", ErrPartitionNotReady, p.State)
	}
	return nil
}

// Partition returns the catalog row of slug.
func (e *Engine) Partition(ctx context.Context, slug string) (Partition, error) {
	return e.store.Partition(ctx, slug)
}

// Partitions returns every catalog row.
func (e *Engine) Partitions(ctx context.Context) ([]Partition, error) {
	return e.store.ListPartitions(ctx)
}

// SharedRevision returns the structural revision of the shared namespace.
func (e *Engine) SharedRevision(ctx context.Context) (int64, error) {
	return e.store.SharedRevision(ctx)
}

func (e *Engine) upgradeOne(ctx context.Context, slug string, target int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.UpgradeTimeout)
	defer cancel()

	unlock, err := e.store.Lock(ctx, slug)
	if err != nil {
		return 0, err
	}
	defer unlock()

	// Re-read under the lock: another process may have moved it meanwhile.
	p, err := e.store.Partition(ctx, slug)
	if err != nil {
		return 0, err
	}
	return e.upgradeLocked(ctx, p, target)
}

// upgradeLocked expects the caller to hold the slug lock.
func (e *Engine) upgradeLocked(ctx context.Context, p Partition, target int64) (int64, error) {
	if p.State != StateReady && p.State != StateDegraded {
		return p.Revision, ErrNotUpgradable
	}

	log := e.log.With(logger.Tenant(p.Slug), logger.Partition(p.Schema))
	for _, step := range Plan(e.revisions, p.Revision, target) {
		if err := e.store.ApplyRevision(ctx, p.Slug, p.Schema, step); err != nil {
			e.mark(ctx, p.Slug, StateDegraded, err)
			log.ErrorContext(ctx, "partition degraded",
				logger.Revision(step.Version),
				logger.Error(err),
			)
			return p.Revision, fmt.Errorf("revision %d: %w", step.Version, err)
		}
		p.Revision = step.Version
		log.DebugContext(ctx, "revision applied", logger.Revision(step.Version))
	}

	if p.State != StateReady {
		if err := e.store.MarkState(ctx, p.Slug, StateReady, ""); err != nil {
			return p.Revision, err
		}
		log.InfoContext(ctx, "partition recovered", logger.Revision(p.Revision))
	}
	return p.Revision, nil
}

// mark records a failure state even when ctx already expired.
func (e *Engine) mark(ctx context.Context, slug string, state State, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()

	if err := e.store.MarkState(ctx, slug, state, cause.Error()); err != nil {
		e.log.ErrorContext(ctx, "failed to record partition state",
			logger.Tenant(slug),
			logger.State(string(state)),
			logger.Error(err),
		)
	}
}
