package storage

import (
	"context"

	appErr "github.com/graphwarehouse/engine/pkg/errors"
	"gorm.io/gorm"
)

// Store groups the mappers over one database handle.
type Store struct {
	db *gorm.DB

	Containers       *ContainerMapper
	Alerts           *AlertMapper
	Versions         *VersionMapper
	Metatypes        *MetatypeMapper
	MetatypeKeys     *MetatypeKeyMapper
	Relationships    *RelationshipMapper
	RelationshipKeys *RelationshipKeyMapper
	Pairs            *PairMapper
	Probe            *DataProbe
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:               db,
		Containers:       NewContainerMapper(db),
		Alerts:           NewAlertMapper(db),
		Versions:         NewVersionMapper(db),
		Metatypes:        NewMetatypeMapper(db),
		MetatypeKeys:     NewMetatypeKeyMapper(db),
		Relationships:    NewRelationshipMapper(db),
		RelationshipKeys: NewRelationshipKeyMapper(db),
		Pairs:            NewPairMapper(db),
		Probe:            NewDataProbe(db),
	}
}

// Begin starts a transaction the mappers can share.
func (s *Store) Begin(ctx context.Context) (Tx, error) { return Begin(ctx, s.db) }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return appErr.Wrap(err, appErr.CodeStorage, "database handle unavailable")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "database ping failed")
	}
	return nil
}
