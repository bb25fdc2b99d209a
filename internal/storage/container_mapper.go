package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/models"
	"gorm.io/gorm"
)

// ContainerMapper persists containers.
type ContainerMapper struct {
	mapper[models.Container, *models.Container]
}

func NewContainerMapper(db *gorm.DB) *ContainerMapper {
	return &ContainerMapper{mapper[models.Container, *models.Container]{db: db, name: "container"}}
}

// AlertMapper persists container alerts.
type AlertMapper struct {
	mapper[models.ContainerAlert, *models.ContainerAlert]
}

func NewAlertMapper(db *gorm.DB) *AlertMapper {
	return &AlertMapper{mapper[models.ContainerAlert, *models.ContainerAlert]{db: db, name: "container alert"}}
}

// ListForContainer returns a container's alerts, newest first.
func (m *AlertMapper) ListForContainer(ctx context.Context, tx Tx, containerID uuid.UUID, unacknowledgedOnly bool) ([]models.ContainerAlert, error) {
	q := conn(ctx, m.db, tx).Where("container_id = ?", containerID)
	if unacknowledgedOnly {
		q = q.Where("acknowledged_at IS NULL")
	}
	var out []models.ContainerAlert
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, classify(err, "list container alerts")
	}
	return out, nil
}

// Acknowledge marks an alert as seen by user.
func (m *AlertMapper) Acknowledge(ctx context.Context, tx Tx, user string, id uuid.UUID) error {
	res := conn(ctx, m.db, tx).Model(&models.ContainerAlert{}).
		Where("id = ? AND acknowledged_at IS NULL", id).
		Updates(map[string]any{"acknowledged_at": time.Now(), "acknowledged_by": user})
	if res.Error != nil {
		return classify(res.Error, "acknowledge container alert")
	}
	if res.RowsAffected == 0 {
		return notFound("acknowledge container alert", id)
	}
	return nil
}
