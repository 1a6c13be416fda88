package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/knowledgelearning/backend/core/catalog"
)

type catalogRepository struct {
	db *catalogTables
}

var _ catalog.Repository = (*catalogRepository)(nil) // interface compliance check

func NewCatalogRepository(db *DB) catalog.Repository {
	return &catalogRepository{db: db.catalog}
}

// Themes

func (repo *catalogRepository) CreateTheme(ctx context.Context, thm catalog.Theme) (catalog.Theme, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if thm.ID == "" {
		thm.ID = uuid.New().String()
	}
	repo.db.themes[thm.ID] = &thm
	return thm, nil
}

func (repo *catalogRepository) GetThemeByID(ctx context.Context, id string) (catalog.Theme, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if thm, ok := repo.db.themes[id]; ok {
		return *thm, nil
	}
	return catalog.Theme{}, catalog.ErrThemeNotFound
}

func (repo *catalogRepository) QueryAllThemes(ctx context.Context) ([]catalog.Theme, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	themes := make([]catalog.Theme, 0, len(repo.db.themes))
	for _, thm := range repo.db.themes {
		themes = append(themes, *thm)
	}
	sort.Slice(themes, func(i, j int) bool { return themes[i].Name < themes[j].Name })
	return themes, nil
}

func (repo *catalogRepository) UpdateTheme(ctx context.Context, thm catalog.Theme) (catalog.Theme, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.themes[thm.ID]
	if !ok {
		return catalog.Theme{}, catalog.ErrThemeNotFound
	}
	orig.Name = thm.Name
	orig.UpdatedAt = thm.UpdatedAt
	return *orig, nil
}

func (repo *catalogRepository) DeleteThemesByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.themes, id)
		// cascade
		for cid, cur := range repo.db.cursus {
			if cur.ThemeID != id {
				continue
			}
			delete(repo.db.cursus, cid)
			for lid, lsn := range repo.db.lessons {
				if lsn.CursusID == cid {
					delete(repo.db.lessons, lid)
				}
			}
		}
	}
	return nil
}

// Cursus

func (repo *catalogRepository) CreateCursus(ctx context.Context, cur catalog.Cursus) (catalog.Cursus, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if cur.ID == "" {
		cur.ID = uuid.New().String()
	}
	repo.db.cursus[cur.ID] = &cur
	return cur, nil
}

func (repo *catalogRepository) GetCursusByID(ctx context.Context, id string) (catalog.Cursus, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cur, ok := repo.db.cursus[id]; ok {
		return *cur, nil
	}
	return catalog.Cursus{}, catalog.ErrCursusNotFound
}

func (repo *catalogRepository) QueryAllCursus(ctx context.Context) ([]catalog.Cursus, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryCursus(func(catalog.Cursus) bool { return true }), nil
}

func (repo *catalogRepository) QueryCursusByTheme(ctx context.Context, themeID string) ([]catalog.Cursus, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryCursus(func(cur catalog.Cursus) bool { return cur.ThemeID == themeID }), nil
}

func (repo *catalogRepository) queryCursus(match func(catalog.Cursus) bool) []catalog.Cursus {
	cursus := make([]catalog.Cursus, 0, len(repo.db.cursus))
	for _, cur := range repo.db.cursus {
		if match(*cur) {
			cursus = append(cursus, *cur)
		}
	}
	sort.Slice(cursus, func(i, j int) bool { return cursus[i].Name < cursus[j].Name })
	return cursus
}

func (repo *catalogRepository) UpdateCursus(ctx context.Context, cur catalog.Cursus) (catalog.Cursus, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.cursus[cur.ID]
	if !ok {
		return catalog.Cursus{}, catalog.ErrCursusNotFound
	}
	orig.Name = cur.Name
	orig.Price = cur.Price
	orig.UpdatedAt = cur.UpdatedAt
	return *orig, nil
}

func (repo *catalogRepository) DeleteCursusByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, id := range ids {
		delete(repo.db.cursus, id)
		// cascade
		for lid, lsn := range repo.db.lessons {
			if lsn.CursusID == id {
				delete(repo.db.lessons, lid)
			}
		}
	}
	return nil
}

// Lessons

func (repo *catalogRepository) CreateLesson(ctx context.Context, lsn catalog.Lesson) (catalog.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if lsn.ID == "" {
		lsn.ID = uuid.New().String()
	}
	repo.db.lessons[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *catalogRepository) GetLessonByID(ctx context.Context, id string) (catalog.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if lsn, ok := repo.db.lessons[id]; ok {
		return *lsn, nil
	}
	return catalog.Lesson{}, catalog.ErrLessonNotFound
}

func (repo *catalogRepository) QueryAllLessons(ctx context.Context) ([]catalog.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryLessons(func(catalog.Lesson) bool { return true }), nil
}

func (repo *catalogRepository) QueryLessonsByCursus(ctx context.Context, cursusID string) ([]catalog.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryLessons(func(lsn catalog.Lesson) bool { return lsn.CursusID == cursusID }), nil
}

func (repo *catalogRepository) QueryLessonsByTheme(ctx context.Context, themeID string) ([]catalog.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.queryLessons(func(lsn catalog.Lesson) bool {
		cur, ok := repo.db.cursus[lsn.CursusID]
		return ok && cur.ThemeID == themeID
	}), nil
}

func (repo *catalogRepository) queryLessons(match func(catalog.Lesson) bool) []catalog.Lesson {
	lessons := make([]catalog.Lesson, 0, len(repo.db.lessons))
	for _, lsn := range repo.db.lessons {
		if match(*lsn) {
			lessons = append(lessons, *lsn)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].CursusID != lessons[j].CursusID {
			return lessons[i].CursusID < lessons[j].CursusID
		}
		return lessons[i].Position < lessons[j].Position
	})
	return lessons
}

func (repo *catalogRepository) UpdateLesson(ctx context.Context, lsn catalog.Lesson) (catalog.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.lessons[lsn.ID]
	if !ok {
		return catalog.Lesson{}, catalog.ErrLessonNotFound
	}
	orig.Title = lsn.Title
	orig.Content = lsn.Content
	orig.VideoURL = lsn.VideoURL
	orig.Price = lsn.Price
	orig.Position = lsn.Position
	orig.UpdatedAt = lsn.UpdatedAt
	return *orig, nil
}

func (repo *catalogRepository) DeleteLessonsByID(ctx context.Context, ids ...string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	for _, id := range ids {
		delete(repo.db.lessons, id)
	}
	return nil
}
