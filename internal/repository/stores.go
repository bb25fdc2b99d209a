package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"github.com/graphwarehouse/engine/internal/storage"
)

// The interfaces below are the slices of internal/storage each repository
// depends on. *storage.Store and its mappers satisfy them.

// Transactor opens transactions the stores can share.
type Transactor interface {
	Begin(ctx context.Context) (storage.Tx, error)
}

type crudStore[T any] interface {
	Create(ctx context.Context, tx storage.Tx, user string, r *T) error
	BulkCreate(ctx context.Context, tx storage.Tx, user string, rows []T) ([]T, error)
	Update(ctx context.Context, tx storage.Tx, user string, r *T) error
	BulkUpdate(ctx context.Context, tx storage.Tx, user string, rows []T) ([]T, error)
	Retrieve(ctx context.Context, tx storage.Tx, id uuid.UUID) (T, error)
	Delete(ctx context.Context, tx storage.Tx, id uuid.UUID) error
	BulkDelete(ctx context.Context, tx storage.Tx, ids []uuid.UUID) error
	Archive(ctx context.Context, tx storage.Tx, user string, id uuid.UUID) error
	Unarchive(ctx context.Context, tx storage.Tx, user string, id uuid.UUID) error
	List(ctx context.Context, tx storage.Tx, opts storage.ListOptions) ([]T, error)
}

type bulkWriter[T any] interface {
	BulkCreate(ctx context.Context, tx storage.Tx, user string, rows []T) ([]T, error)
	BulkUpdate(ctx context.Context, tx storage.Tx, user string, rows []T) ([]T, error)
}

// Lineage resolves the inheritance tree stored in the database.
type Lineage interface {
	ListInheritance(ctx context.Context, tx storage.Tx, containerID uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
	ListAncestors(ctx context.Context, tx storage.Tx, id uuid.UUID) ([]uuid.UUID, error)
	ListDescendants(ctx context.Context, tx storage.Tx, id uuid.UUID) ([]uuid.UUID, error)
}

type MetatypeStore interface {
	crudStore[models.Metatype]
	Lineage
	UpsertInheritance(ctx context.Context, tx storage.Tx, child, parent uuid.UUID) error
	BulkUpsertInheritance(ctx context.Context, tx storage.Tx, links []storage.InheritanceLink) error
	DeleteInheritance(ctx context.Context, tx storage.Tx, child uuid.UUID) error
}

type MetatypeKeyStore interface {
	crudStore[models.MetatypeKey]
	ListSelf(ctx context.Context, tx storage.Tx, metatypeID uuid.UUID) ([]models.MetatypeKey, error)
	ListSelfMany(ctx context.Context, tx storage.Tx, metatypeIDs []uuid.UUID) ([]models.MetatypeKey, error)
	ListForMetatype(ctx context.Context, tx storage.Tx, metatypeID uuid.UUID) ([]models.MetatypeKey, error)
	ListFromView(ctx context.Context, tx storage.Tx, metatypeID uuid.UUID) ([]models.MetatypeKey, error)
	RefreshView(ctx context.Context, tx storage.Tx) error
	ArchiveForMetatype(ctx context.Context, tx storage.Tx, user string, metatypeID uuid.UUID) error
	UnarchiveForMetatype(ctx context.Context, tx storage.Tx, user string, metatypeID uuid.UUID) error
}

type RelationshipStore interface {
	crudStore[models.MetatypeRelationship]
}

type RelationshipKeyStore interface {
	crudStore[models.MetatypeRelationshipKey]
	ListForRelationship(ctx context.Context, tx storage.Tx, relationshipID uuid.UUID) ([]models.MetatypeRelationshipKey, error)
	ListForRelationships(ctx context.Context, tx storage.Tx, relationshipIDs []uuid.UUID) ([]models.MetatypeRelationshipKey, error)
	ArchiveForRelationship(ctx context.Context, tx storage.Tx, user string, relationshipID uuid.UUID) error
	UnarchiveForRelationship(ctx context.Context, tx storage.Tx, user string, relationshipID uuid.UUID) error
}

type PairStore interface {
	crudStore[models.MetatypeRelationshipPair]
	ListForMetatype(ctx context.Context, tx storage.Tx, metatypeID uuid.UUID) ([]models.MetatypeRelationshipPair, error)
	ListFromView(ctx context.Context, tx storage.Tx, metatypeID uuid.UUID) ([]models.MetatypeRelationshipPair, error)
	ListForRelationship(ctx context.Context, tx storage.Tx, relationshipID uuid.UUID) ([]models.MetatypeRelationshipPair, error)
	RefreshView(ctx context.Context, tx storage.Tx) error
}

type VersionStore interface {
	Create(ctx context.Context, tx storage.Tx, user string, r *models.OntologyVersion) error
	Retrieve(ctx context.Context, tx storage.Tx, id uuid.UUID) (models.OntologyVersion, error)
	SetStatus(ctx context.Context, tx storage.Tx, id uuid.UUID, status models.VersionStatus, message string) error
	LatestByStatus(ctx context.Context, tx storage.Tx, containerID uuid.UUID, status models.VersionStatus) (models.OntologyVersion, error)
	ListForContainer(ctx context.Context, tx storage.Tx, containerID uuid.UUID) ([]models.OntologyVersion, error)
	ListStale(ctx context.Context, tx storage.Tx, status models.VersionStatus, cutoff time.Time) ([]models.OntologyVersion, error)
}

type ContainerStore interface {
	Create(ctx context.Context, tx storage.Tx, user string, r *models.Container) error
	Retrieve(ctx context.Context, tx storage.Tx, id uuid.UUID) (models.Container, error)
	Archive(ctx context.Context, tx storage.Tx, user string, id uuid.UUID) error
	List(ctx context.Context, tx storage.Tx, opts storage.ListOptions) ([]models.Container, error)
}

type AlertStore interface {
	Create(ctx context.Context, tx storage.Tx, user string, r *models.ContainerAlert) error
	ListForContainer(ctx context.Context, tx storage.Tx, containerID uuid.UUID, unacknowledgedOnly bool) ([]models.ContainerAlert, error)
	Acknowledge(ctx context.Context, tx storage.Tx, user string, id uuid.UUID) error
}

// Prober checks whether instance data references an ontology element.
type Prober interface {
	NodesForMetatype(ctx context.Context, tx storage.Tx, metatypeID uuid.UUID) (bool, error)
	EdgesForPair(ctx context.Context, tx storage.Tx, pairID uuid.UUID) (bool, error)
}
