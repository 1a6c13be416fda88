package dummydb

import (
	"context"
	"sort"

	"github.com/knowledgelearning/backend/core/certification"
)

type certificationRepository struct {
	db *certificationTable
}

var _ certification.Repository = (*certificationRepository)(nil) // interface compliance check

func NewCertificationRepository(db *DB) certification.Repository {
	return &certificationRepository{db: db.certification}
}

func (repo *certificationRepository) CreateCertification(ctx context.Context, crt certification.Certification) (certification.Certification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := crt.UserID + crt.ThemeID
	if _, ok := repo.db.table[key]; ok {
		return certification.Certification{}, certification.ErrExists
	}
	repo.db.table[key] = &crt
	return crt, nil
}

func (repo *certificationRepository) GetCertification(ctx context.Context, userID, themeID string) (certification.Certification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crt, ok := repo.db.table[userID+themeID]; ok {
		return *crt, nil
	}
	return certification.Certification{}, certification.ErrNotFound
}

func (repo *certificationRepository) QueryCertificationsByUser(ctx context.Context, userID string) ([]certification.Certification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(func(crt certification.Certification) bool { return crt.UserID == userID }), nil
}

func (repo *certificationRepository) QueryAllCertifications(ctx context.Context) ([]certification.Certification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(func(certification.Certification) bool { return true }), nil
}

func (repo *certificationRepository) query(match func(certification.Certification) bool) []certification.Certification {
	crts := make([]certification.Certification, 0, len(repo.db.table))
	for _, crt := range repo.db.table {
		if match(*crt) {
			crts = append(crts, *crt)
		}
	}
	sort.Slice(crts, func(i, j int) bool { return crts[i].IssuedAt.After(crts[j].IssuedAt) })
	return crts
}
