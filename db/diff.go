package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// reconcile returns the ids of existing that are absent from incoming. Ids in
// incoming that are not persisted yet (zero or negative) never match.
func reconcile(existing, incoming []int) []int {
	keep := make(map[int]bool, len(incoming))
	for _, id := range incoming {
		if id > 0 {
			keep[id] = true
		}
	}
	var out []int
	for _, id := range existing {
		if !keep[id] {
			out = append(out, id)
		}
	}
	return out
}

// persistedID maps the temporary ids of new entities to 0 so the database
// assigns one from its sequence.
func persistedID(id int) int {
	if id < 0 {
		return 0
	}
	return id
}

func idSet(ids []int) map[int]bool {
	m := make(map[int]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

// upsertByID inserts rows with a zero id and updates the others in a single
// statement. Assigned ids are written back into rows.
func upsertByID[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Omit(clause.Associations).Create(&rows).Error
}

// deleteByID deletes the rows of model with the given ids.
func deleteByID(tx *gorm.DB, model any, ids []int) error {
	if len(ids) == 0 {
		return nil
	}
	return tx.Where("id IN ?", ids).Delete(model).Error
}
