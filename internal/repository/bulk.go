package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/graphwarehouse/engine/internal/storage"
)

// splitByID returns the positions of rows that already have an id and of
// rows that do not.
func splitByID[T any](rows []T, id func(*T) uuid.UUID) (updates, creates []int) {
	for i := range rows {
		if id(&rows[i]) != uuid.Nil {
			updates = append(updates, i)
		} else {
			creates = append(creates, i)
		}
	}
	return updates, creates
}

// bulkWrite updates the rows with ids and creates the rest, then writes the
// stored rows back into their original positions.
func bulkWrite[T any](ctx context.Context, w bulkWriter[T], tx storage.Tx, user string, rows []T, id func(*T) uuid.UUID) error {
	updates, creates := splitByID(rows, id)
	if len(updates) > 0 {
		out, err := w.BulkUpdate(ctx, tx, user, pick(rows, updates))
		if err != nil {
			return err
		}
		place(rows, updates, out)
	}
	if len(creates) > 0 {
		out, err := w.BulkCreate(ctx, tx, user, pick(rows, creates))
		if err != nil {
			return err
		}
		place(rows, creates, out)
	}
	return nil
}

func pick[T any](rows []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

func place[T any](rows []T, idx []int, stored []T) {
	for i, j := range idx {
		if i < len(stored) {
			rows[j] = stored[i]
		}
	}
}
