// Package ontology applies candidate ontologies to containers. An update of a
// container without ontology versioning is a diff against the live ontology
// that refuses to remove anything data still depends on; every other run is a
// straight bulk create.
package ontology

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/metrics"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/pkg/logger"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize   = 1000
	DefaultConcurrency = 2
)

// Options selects how Apply treats the candidate.
type Options struct {
	DryRun bool
	Update bool
}

// Target is the container a candidate is applied to and the ontology version
// whose status tracks the run. VersionID is nil only for dry runs.
type Target struct {
	Container models.Container
	VersionID *uuid.UUID
}

func (t Target) versioned() bool { return t.Container.Config.OntologyVersioningEnabled }

// Config bounds the chunked key and pair writes.
type Config struct {
	BatchSize   int
	Concurrency int
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Metatypes     Metatypes
	Keys          MetatypeKeys
	Relationships Relationships
	Pairs         Pairs
	Probe         Probe
	Versions      Versions
	Alerts        Alerts
	Metrics       *metrics.Evolution
}

type Engine struct {
	planner  planner
	writer   writer
	keys     MetatypeKeys
	pairs    Pairs
	versions Versions
	alerts   Alerts
	metrics  *metrics.Evolution
}

func NewEngine(d Deps, cfg Config) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Engine{
		planner: planner{
			metatypes:     d.Metatypes,
			keys:          d.Keys,
			relationships: d.Relationships,
			pairs:         d.Pairs,
			probe:         d.Probe,
		},
		writer: writer{
			metatypes:     d.Metatypes,
			keys:          d.Keys,
			relationships: d.Relationships,
			pairs:         d.Pairs,
			batchSize:     cfg.BatchSize,
			concurrency:   cfg.Concurrency,
		},
		keys:     d.Keys,
		pairs:    d.Pairs,
		versions: d.Versions,
		alerts:   d.Alerts,
		metrics:  d.Metrics,
	}
}

const partialUpdateNotice = " Some changes were already written; the live ontology may be partially updated."

// Apply reconciles c with the target container. A dry run returns an
// explanation of what would happen and writes nothing. Otherwise Apply
// returns the container id; on failure the target version is rolled back
// and an error alert is posted before the error is returned.
func (e *Engine) Apply(ctx context.Context, c *Candidate, t Target, user string, opts Options) (string, error) {
	s, err := newState(c)
	if err != nil {
		if !opts.DryRun {
			e.Rollback(ctx, t, user, err.Error())
		}
		return "", err
	}
	if opts.DryRun {
		return e.explain(ctx, s, t, opts)
	}

	mode := "create"
	if e.diffs(t, opts) {
		mode = "update"
	}
	started := time.Now()
	committed, err := e.apply(ctx, s, t, user, opts)
	e.metrics.Observe(mode, started, err)
	if err != nil {
		logger.L().Error("ontology import failed",
			zap.String("container_id", t.Container.ID.String()),
			zap.String("mode", mode),
			zap.Bool("partially_written", committed),
			zap.Error(err))
		e.rollback(ctx, t, user, err.Error(), committed)
		return "", err
	}
	return t.Container.ID.String(), nil
}

// diffs reports whether a run evolves the live ontology in place.
func (e *Engine) diffs(t Target, opts Options) bool {
	return opts.Update && !t.versioned()
}

// apply reports whether any write was committed before an error.
func (e *Engine) apply(ctx context.Context, s *state, t Target, user string, opts Options) (bool, error) {
	containerID := t.Container.ID
	plan := newPlan()
	if e.diffs(t, opts) {
		if err := e.keys.RefreshView(ctx); err != nil {
			return false, err
		}
		var err error
		if plan, err = e.planner.plan(ctx, s, containerID, true); err != nil {
			return false, err
		}
	}

	var version *uuid.UUID
	if t.versioned() {
		version = t.VersionID
	}
	n, err := e.writer.write(ctx, s, plan, containerID, version, user)
	e.metrics.Rows("metatype", n.metatypes)
	e.metrics.Rows("metatype_key", n.keys)
	e.metrics.Rows("relationship", n.relationships)
	e.metrics.Rows("relationship_pair", n.pairs)
	if err != nil {
		return n.committed, err
	}

	if err := e.keys.RefreshView(ctx); err != nil {
		logger.L().Error("refresh metatype keys view", zap.Error(err))
	}
	if err := e.pairs.RefreshView(ctx); err != nil {
		logger.L().Error("refresh relationship pairs view", zap.Error(err))
	}

	logger.L().Info("ontology imported",
		zap.String("container_id", containerID.String()),
		zap.Int("metatypes", n.metatypes),
		zap.Int("keys", n.keys),
		zap.Int("relationships", n.relationships),
		zap.Int("pairs", n.pairs),
		zap.Int("removed_metatypes", len(plan.DeleteMetatypes)),
		zap.Int("removed_keys", len(plan.DeleteKeys)),
		zap.Int("removed_pairs", len(plan.DeletePairs)),
		zap.Int("removed_relationships", len(plan.DeleteRelationships)))

	status := models.VersionPublished
	if t.versioned() {
		status = models.VersionReady
	}
	e.setStatus(ctx, t, status, "")
	e.alert(ctx, t, user, models.AlertInfo, "Container ontology successfully loaded")
	return true, nil
}

// Rollback records a failed or abandoned run: the version goes back to
// published when versioning is disabled and to error otherwise. An error
// alert naming the cause is posted either way.
func (e *Engine) Rollback(ctx context.Context, t Target, user, cause string) {
	e.rollback(ctx, t, user, cause, false)
}

// rollback is Rollback for a run that may have committed some writes. Without
// versioning those writes landed on the live ontology, and the alert says so.
func (e *Engine) rollback(ctx context.Context, t Target, user, cause string, committed bool) {
	ctx = context.WithoutCancel(ctx)
	status := models.VersionPublished
	if t.versioned() {
		status = models.VersionError
	}
	e.setStatus(ctx, t, status, cause)
	message := "Unable to import ontology. " + cause
	if committed && !t.versioned() {
		message += partialUpdateNotice
	}
	e.alert(ctx, t, user, models.AlertError, message)
	e.metrics.RolledBack()
}

func (e *Engine) setStatus(ctx context.Context, t Target, status models.VersionStatus, message string) {
	if t.VersionID == nil {
		return
	}
	if err := e.versions.SetStatus(ctx, *t.VersionID, status, message); err != nil {
		logger.L().Error("set ontology version status",
			zap.String("version_id", t.VersionID.String()),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (e *Engine) alert(ctx context.Context, t Target, user string, kind models.AlertType, message string) {
	if t.Container.ID == uuid.Nil {
		return
	}
	if err := e.alerts.Alert(ctx, t.Container.ID, kind, message, user); err != nil {
		logger.L().Error("post container alert",
			zap.String("container_id", t.Container.ID.String()),
			zap.Error(err))
	}
}

// explain describes a run without writing. Updates of an existing container
// also summarize the diff, computed without probing data.
func (e *Engine) explain(ctx context.Context, s *state, t Target, opts Options) (string, error) {
	c := s.candidate
	verb := "created"
	if opts.Update {
		verb = "updated"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s will be %s. ", c.Name, verb)
	if d := strings.TrimSpace(c.Description); d != "" {
		b.WriteString(strings.TrimSuffix(d, "."))
		b.WriteString(". ")
	}
	fmt.Fprintf(&b, "The ontology will contain %d classes, %d data properties and %d relationships.",
		len(c.Classes), len(c.DataProperties), len(c.Relationships))

	if opts.Update && t.Container.ID != uuid.Nil {
		plan := newPlan()
		if !t.versioned() {
			var err error
			if plan, err = e.planner.plan(ctx, s, t.Container.ID, false); err != nil {
				return "", err
			}
		}
		b.WriteString(" ")
		b.WriteString(summarize(s, plan).String())
	}
	return b.String(), nil
}
