package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dmitrymomot/tenantkit/internal/app"
	"github.com/dmitrymomot/tenantkit/pkg/tenant"
	"github.com/dmitrymomot/tenantkit/svc/provision"
)

type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, format string) printer {
	return printer{w: w, json: format == "json"}
}

// partitionOf returns nil when the tenant has no catalog entry yet.
func partitionOf(ctx context.Context, a *app.App, t *tenant.Tenant) *provision.Partition {
	p, err := a.Engine.Partition(ctx, t.Slug)
	if err != nil {
		return nil
	}
	return &p
}

func (p printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p printer) tenant(t *tenant.Tenant, part *provision.Partition) error {
	if p.json {
		return p.encode(struct {
			*tenant.Tenant
			Partition *provision.Partition `json:"partition,omitempty"`
		}{t, part})
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t%s\n", t.ID)
	fmt.Fprintf(tw, "Slug\t%s\n", t.Slug)
	fmt.Fprintf(tw, "Name\t%s\n", t.Name)
	fmt.Fprintf(tw, "Status\t%s\n", t.Status)
	fmt.Fprintf(tw, "Tier\t%s\n", t.SubscriptionTier)
	fmt.Fprintf(tw, "Created\t%s\n", t.CreatedAt.Format(time.RFC3339))
	if part == nil {
		fmt.Fprintf(tw, "Partition\t-\n")
	} else {
		fmt.Fprintf(tw, "Partition\t%s (%s, revision %d)\n", part.Schema, part.State, part.Revision)
		if part.LastError != "" {
			fmt.Fprintf(tw, "Last error\t%s\n", part.LastError)
		}
	}
	return tw.Flush()
}

func (p printer) tenants(list []*tenant.Tenant) error {
	if p.json {
		return p.encode(list)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSLUG\tNAME\tSTATUS\tTIER")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Slug, t.Name, t.Status, t.SubscriptionTier)
	}
	return tw.Flush()
}

func (p printer) partitions(list []provision.Partition) error {
	if p.json {
		return p.encode(list)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tSCHEMA\tSTATE\tREVISION\tATTEMPTS\tUPDATED")
	for _, part := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			part.Slug, part.Schema, part.State, part.Revision, part.Attempts, part.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func (p printer) report(r provision.Report) error {
	if p.json {
		return p.encode(r)
	}
	fmt.Fprintf(p.w, "target revision %d: %d upgraded, %d up to date, %d skipped, %d failed\n",
		r.Target, len(r.Upgraded), len(r.UpToDate), len(r.Skipped), len(r.Failed))
	slugs := make([]string, 0, len(r.Failed))
	for slug := range r.Failed {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	for _, slug := range slugs {
		fmt.Fprintf(p.w, "  %s: %s\n", slug, r.Failed[slug])
	}
	return nil
}
