// Package repository is the only path from ontology domain objects to
// storage. Every write runs in one transaction and keeps the cache coherent
// on a best-effort basis.
package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/storage"
	appErr "github.com/graphwarehouse/engine/pkg/errors"
)

// Load selects what a FindByID reads besides the entity row.
type Load struct {
	// Nested loads keys and, for metatypes, relationship pairs.
	Nested bool
	// FromView reads nested rows from the materialized views. Such loads are
	// never cached and their keys must not be saved back.
	FromView bool
}

var (
	Shallow        = Load{}
	Nested         = Load{Nested: true}
	NestedFromView = Load{Nested: true, FromView: true}
)

func (l Load) cacheable() bool { return l.Nested && !l.FromView }

// inTx runs fn in a transaction and commits it when fn succeeds.
func inTx(ctx context.Context, t Transactor, fn func(tx storage.Tx) error) error {
	tx, err := t.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func hasDataConflict(kind, name string) error {
	return appErr.Newf(appErr.CodeConflict,
		"%s %s has associated data, please delete the data before container update", kind, name).
		WithMeta("entity", kind)
}

func uniq(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Set holds one instance of every repository, wired to a single store.
type Set struct {
	Cache            *Cached
	Containers       *ContainerRepository
	Versions         *VersionRepository
	Metatypes        *MetatypeRepository
	MetatypeKeys     *MetatypeKeyRepository
	Relationships    *RelationshipRepository
	RelationshipKeys *RelationshipKeyRepository
	Pairs            *PairRepository
}

// NewSet wires the repositories over s.
func NewSet(s *storage.Store, c *Cached) *Set {
	return &Set{
		Cache:            c,
		Containers:       NewContainerRepository(s.Containers, s.Alerts),
		Versions:         NewVersionRepository(s.Versions),
		Metatypes:        NewMetatypeRepository(s, s.Metatypes, s.MetatypeKeys, s.Pairs, s.Probe, c),
		MetatypeKeys:     NewMetatypeKeyRepository(s, s.MetatypeKeys, c),
		Relationships:    NewRelationshipRepository(s, s.Relationships, s.RelationshipKeys, s.Pairs, s.Probe, c),
		RelationshipKeys: NewRelationshipKeyRepository(s, s.RelationshipKeys, c),
		Pairs:            NewPairRepository(s, s.Pairs, s.Metatypes, s.Probe, c),
	}
}
