package catalog

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrThemeNotFound  = errors.New("theme not found")
	ErrCursusNotFound = errors.New("cursus not found")
	ErrLessonNotFound = errors.New("lesson not found")
)

type (
	Repository interface {
		CreateTheme(ctx context.Context, thm Theme) (Theme, error)
		GetThemeByID(ctx context.Context, id string) (Theme, error)
		QueryAllThemes(ctx context.Context) ([]Theme, error)
		UpdateTheme(ctx context.Context, thm Theme) (Theme, error)
		DeleteThemesByID(ctx context.Context, ids ...string) error

		CreateCursus(ctx context.Context, cur Cursus) (Cursus, error)
		GetCursusByID(ctx context.Context, id string) (Cursus, error)
		QueryAllCursus(ctx context.Context) ([]Cursus, error)
		QueryCursusByTheme(ctx context.Context, themeID string) ([]Cursus, error)
		UpdateCursus(ctx context.Context, cur Cursus) (Cursus, error)
		DeleteCursusByID(ctx context.Context, ids ...string) error

		CreateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		GetLessonByID(ctx context.Context, id string) (Lesson, error)
		QueryAllLessons(ctx context.Context) ([]Lesson, error)
		// QueryLessonsByCursus returns the cursus' lessons ordered by position.
		QueryLessonsByCursus(ctx context.Context, cursusID string) ([]Lesson, error)
		// QueryLessonsByTheme returns every lesson transitively under the theme.
		QueryLessonsByTheme(ctx context.Context, themeID string) ([]Lesson, error)
		UpdateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		DeleteLessonsByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Themes

func (svc *Service) CreateTheme(ctx context.Context, nt NewTheme) (Theme, error) {
	now := time.Now().UTC()
	return svc.repo.CreateTheme(ctx, Theme{Name: nt.Name, CreatedAt: now, UpdatedAt: now})
}

func (svc *Service) GetTheme(ctx context.Context, id string) (Theme, error) {
	return svc.repo.GetThemeByID(ctx, id)
}

func (svc *Service) QueryThemes(ctx context.Context) ([]Theme, error) {
	return svc.repo.QueryAllThemes(ctx)
}

func (svc *Service) UpdateTheme(ctx context.Context, id string, ut UpdateTheme) (Theme, error) {
	return svc.repo.UpdateTheme(ctx, Theme{ID: id, Name: ut.Name, UpdatedAt: time.Now().UTC()})
}

func (svc *Service) DeleteThemes(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteThemesByID(ctx, ids...)
}

// Cursus

func (svc *Service) CreateCursus(ctx context.Context, nc NewCursus) (Cursus, error) {
	if _, err := svc.repo.GetThemeByID(ctx, nc.ThemeID); err != nil {
		return Cursus{}, err
	}
	now := time.Now().UTC()
	cur := Cursus{
		ThemeID:   nc.ThemeID,
		Name:      nc.Name,
		Price:     nc.Price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateCursus(ctx, cur)
}

func (svc *Service) GetCursus(ctx context.Context, id string) (Cursus, error) {
	return svc.repo.GetCursusByID(ctx, id)
}

func (svc *Service) QueryCursus(ctx context.Context) ([]Cursus, error) {
	return svc.repo.QueryAllCursus(ctx)
}

func (svc *Service) QueryCursusByTheme(ctx context.Context, themeID string) ([]Cursus, error) {
	return svc.repo.QueryCursusByTheme(ctx, themeID)
}

func (svc *Service) UpdateCursus(ctx context.Context, id string, uc UpdateCursus) (Cursus, error) {
	orig, err := svc.repo.GetCursusByID(ctx, id)
	if err != nil {
		return Cursus{}, err
	}
	orig.Name = uc.Name
	orig.Price = *uc.Price
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCursus(ctx, orig)
}

func (svc *Service) DeleteCursus(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteCursusByID(ctx, ids...)
}

// Lessons

func (svc *Service) CreateLesson(ctx context.Context, nl NewLesson) (Lesson, error) {
	if _, err := svc.repo.GetCursusByID(ctx, nl.CursusID); err != nil {
		return Lesson{}, err
	}
	now := time.Now().UTC()
	lsn := Lesson{
		CursusID:  nl.CursusID,
		Title:     nl.Title,
		Content:   nl.Content,
		VideoURL:  nl.VideoURL,
		Price:     nl.Price,
		Position:  nl.Position,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateLesson(ctx, lsn)
}

func (svc *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLessonByID(ctx, id)
}

func (svc *Service) QueryLessons(ctx context.Context) ([]Lesson, error) {
	return svc.repo.QueryAllLessons(ctx)
}

func (svc *Service) QueryLessonsByCursus(ctx context.Context, cursusID string) ([]Lesson, error) {
	return svc.repo.QueryLessonsByCursus(ctx, cursusID)
}

func (svc *Service) UpdateLesson(ctx context.Context, id string, ul UpdateLesson) (Lesson, error) {
	orig, err := svc.repo.GetLessonByID(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	orig.Title = ul.Title
	orig.Content = *ul.Content
	orig.VideoURL = *ul.VideoURL
	orig.Price = *ul.Price
	orig.Position = *ul.Position
	orig.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLesson(ctx, orig)
}

func (svc *Service) DeleteLessons(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteLessonsByID(ctx, ids...)
}
