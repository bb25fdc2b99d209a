package ontology

import (
	"context"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/storage"
)

// The engine reaches storage only through the repositories. These are the
// slices of them it uses.

type Metatypes interface {
	List(ctx context.Context, opts storage.ListOptions) ([]models.Metatype, error)
	BulkSave(ctx context.Context, ms []models.Metatype, user string) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) error
	SetParents(ctx context.Context, containerID uuid.UUID, links map[uuid.UUID]uuid.UUID) error
}

type MetatypeKeys interface {
	ListSelf(ctx context.Context, metatypeIDs ...uuid.UUID) (map[uuid.UUID][]models.MetatypeKey, error)
	BulkSave(ctx context.Context, keys []models.MetatypeKey, user string) error
	DeleteMany(ctx context.Context, keys []models.MetatypeKey) error
	RefreshView(ctx context.Context) error
}

type Relationships interface {
	List(ctx context.Context, opts storage.ListOptions) ([]models.MetatypeRelationship, error)
	BulkSave(ctx context.Context, rels []models.MetatypeRelationship, user string) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) error
}

type Pairs interface {
	List(ctx context.Context, opts storage.ListOptions) ([]models.MetatypeRelationshipPair, error)
	BulkSave(ctx context.Context, ps []models.MetatypeRelationshipPair, user string) error
	DeleteMany(ctx context.Context, pairs []models.MetatypeRelationshipPair) error
	RefreshView(ctx context.Context) error
}

// Probe answers whether any data still references an ontology entity.
type Probe interface {
	NodesForMetatype(ctx context.Context, tx storage.Tx, metatypeID uuid.UUID) (bool, error)
	EdgesForPair(ctx context.Context, tx storage.Tx, pairID uuid.UUID) (bool, error)
}

type Versions interface {
	SetStatus(ctx context.Context, id uuid.UUID, status models.VersionStatus, message string) error
}

type Alerts interface {
	Alert(ctx context.Context, containerID uuid.UUID, kind models.AlertType, message, user string) error
}
