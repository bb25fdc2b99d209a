package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"gorm.io/gorm"
)

// VersionMapper persists ontology versions.
type VersionMapper struct {
	mapper[models.OntologyVersion, *models.OntologyVersion]
}

func NewVersionMapper(db *gorm.DB) *VersionMapper {
	return &VersionMapper{mapper[models.OntologyVersion, *models.OntologyVersion]{
		db:   db,
		name: "ontology version",
	}}
}

// SetStatus moves a version to status. message is kept only for the error
// status; published_at is stamped on publish.
func (m *VersionMapper) SetStatus(ctx context.Context, tx Tx, id uuid.UUID, status models.VersionStatus, message string) error {
	set := map[string]any{"status": status, "error_message": gorm.Expr("NULL")}
	if status == models.VersionError {
		set["error_message"] = message
	}
	if status == models.VersionPublished {
		set["published_at"] = time.Now()
	}
	res := conn(ctx, m.db, tx).Model(&models.OntologyVersion{}).Where("id = ?", id).Updates(set)
	if res.Error != nil {
		return classify(res.Error, "set ontology version status")
	}
	if res.RowsAffected == 0 {
		return notFound("set ontology version status", id)
	}
	return nil
}

// LatestByStatus returns the newest version of a container in status.
func (m *VersionMapper) LatestByStatus(ctx context.Context, tx Tx, containerID uuid.UUID, status models.VersionStatus) (models.OntologyVersion, error) {
	var out models.OntologyVersion
	err := conn(ctx, m.db, tx).
		Where("container_id = ? AND status = ?", containerID, status).
		Order("created_at DESC").
		Take(&out).Error
	if err != nil {
		return out, classify(err, "latest ontology version")
	}
	return out, nil
}

// ListForContainer returns every version of a container, newest first.
func (m *VersionMapper) ListForContainer(ctx context.Context, tx Tx, containerID uuid.UUID) ([]models.OntologyVersion, error) {
	var out []models.OntologyVersion
	err := conn(ctx, m.db, tx).Where("container_id = ?", containerID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, classify(err, "list ontology versions")
	}
	return out, nil
}

// ListStale returns versions stuck in status since before cutoff.
func (m *VersionMapper) ListStale(ctx context.Context, tx Tx, status models.VersionStatus, cutoff time.Time) ([]models.OntologyVersion, error) {
	var out []models.OntologyVersion
	err := conn(ctx, m.db, tx).
		Where("status = ? AND updated_at < ?", status, cutoff).
		Order("updated_at").
		Find(&out).Error
	if err != nil {
		return nil, classify(err, "list stale ontology versions")
	}
	return out, nil
}
