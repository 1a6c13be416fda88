package dummydb

import (
	"context"
	"sort"

	"github.com/knowledgelearning/backend/core/progress"
)

type progressRepository struct {
	db *progressTable
}

var _ progress.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) progress.Repository {
	return &progressRepository{db: db.progress}
}

func (repo *progressRepository) GetProgress(ctx context.Context, userID, lessonID string) (progress.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if prg, ok := repo.db.table[userID+lessonID]; ok {
		return *prg, nil
	}
	return progress.Progress{}, progress.ErrNotFound
}

func (repo *progressRepository) UpsertProgress(ctx context.Context, prg progress.Progress) (progress.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.table[prg.UserID+prg.LessonID] = &prg
	return prg, nil
}

func (repo *progressRepository) QueryProgressByUser(ctx context.Context, userID string) ([]progress.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var res []progress.Progress
	for _, prg := range repo.db.table {
		if prg.UserID == userID {
			res = append(res, *prg)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UpdatedAt.After(res[j].UpdatedAt) })
	return res, nil
}

func (repo *progressRepository) FilterValidatedLessonIDs(ctx context.Context, userID string, lessonIDs []string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ids []string
	for _, id := range lessonIDs {
		if prg, ok := repo.db.table[userID+id]; ok && prg.Validated {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
