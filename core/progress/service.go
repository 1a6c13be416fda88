package progress

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/knowledgelearning/backend/core"
	"github.com/knowledgelearning/backend/core/catalog"
)

var (
	// errors
	ErrNotFound     = errors.New("progress not found")
	ErrNoAccess     = errors.New("lesson not owned")
	ErrNotCompleted = errors.New("lesson not completed yet")
)

type (
	Repository interface {
		GetProgress(ctx context.Context, userID, lessonID string) (Progress, error)
		UpsertProgress(ctx context.Context, prg Progress) (Progress, error)
		QueryProgressByUser(ctx context.Context, userID string) ([]Progress, error)
		// FilterValidatedLessonIDs keeps only the lesson IDs the user has validated.
		FilterValidatedLessonIDs(ctx context.Context, userID string, lessonIDs []string) ([]string, error)
	}

	// AccessChecker tells whether a user may open a lesson.
	AccessChecker interface {
		HasLessonAccess(ctx context.Context, userID string, lsn catalog.Lesson) (bool, error)
	}

	// Certifier re-evaluates a user's certification for a theme after a
	// lesson validation.
	Certifier interface {
		Evaluate(ctx context.Context, userID, themeID string) (issued bool, err error)
	}

	Service struct {
		repo      Repository
		catRepo   catalog.Repository
		access    AccessChecker
		certifier Certifier
		logger    core.Logger
	}
)

func NewService(repo Repository, catRepo catalog.Repository, access AccessChecker, certifier Certifier, logger core.Logger) *Service {
	return &Service{repo: repo, catRepo: catRepo, access: access, certifier: certifier, logger: logger}
}

// Get returns the user's progress on a lesson; a lesson never started yields
// a zero-flag record rather than an error.
func (svc *Service) Get(ctx context.Context, userID, lessonID string) (Progress, error) {
	if _, err := svc.catRepo.GetLessonByID(ctx, lessonID); err != nil {
		return Progress{}, err
	}
	prg, err := svc.repo.GetProgress(ctx, userID, lessonID)
	if errors.Cause(err) == ErrNotFound {
		return Progress{UserID: userID, LessonID: lessonID}, nil
	}
	return prg, err
}

func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]Progress, error) {
	return svc.repo.QueryProgressByUser(ctx, userID)
}

// Complete marks the lesson as finished. The user must own the lesson or its
// cursus. Completing twice is a no-op.
func (svc *Service) Complete(ctx context.Context, userID, lessonID string) (Progress, error) {
	lsn, err := svc.catRepo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Progress{}, err
	}
	ok, err := svc.access.HasLessonAccess(ctx, userID, lsn)
	if err != nil {
		return Progress{}, err
	}
	if !ok {
		return Progress{}, ErrNoAccess
	}

	prg, err := svc.getOrInit(ctx, userID, lessonID)
	if err != nil {
		return Progress{}, err
	}
	if prg.Completed {
		return prg, nil
	}

	now := time.Now().UTC()
	prg.Completed = true
	prg.CompletedAt = &now
	prg.UpdatedAt = now
	return svc.repo.UpsertProgress(ctx, prg)
}

// Validate confirms a completed lesson and re-evaluates the theme's
// certification. Validating twice is a no-op.
func (svc *Service) Validate(ctx context.Context, userID, lessonID string) (Progress, error) {
	lsn, err := svc.catRepo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Progress{}, err
	}
	ok, err := svc.access.HasLessonAccess(ctx, userID, lsn)
	if err != nil {
		return Progress{}, err
	}
	if !ok {
		return Progress{}, ErrNoAccess
	}

	prg, err := svc.repo.GetProgress(ctx, userID, lessonID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Progress{}, ErrNotCompleted
		}
		return Progress{}, err
	}
	if !prg.Completed {
		return Progress{}, ErrNotCompleted
	}

	if !prg.Validated {
		now := time.Now().UTC()
		prg.Validated = true
		prg.ValidatedAt = &now
		prg.UpdatedAt = now
		if prg, err = svc.repo.UpsertProgress(ctx, prg); err != nil {
			return Progress{}, err
		}
	}

	// every validation may complete a theme
	cur, err := svc.catRepo.GetCursusByID(ctx, lsn.CursusID)
	if err != nil {
		return Progress{}, errors.Wrap(err, "resolving lesson theme")
	}
	if _, err = svc.certifier.Evaluate(ctx, userID, cur.ThemeID); err != nil {
		// the validation itself succeeded; certification can be retried later
		svc.logger.Error("evaluating certification", "user", userID, "theme", cur.ThemeID, "error", err)
	}
	return prg, nil
}

func (svc *Service) getOrInit(ctx context.Context, userID, lessonID string) (Progress, error) {
	prg, err := svc.repo.GetProgress(ctx, userID, lessonID)
	if err == nil {
		return prg, nil
	}
	if errors.Cause(err) != ErrNotFound {
		return Progress{}, err
	}
	now := time.Now().UTC()
	return Progress{
		ID:        uuid.New().String(),
		UserID:    userID,
		LessonID:  lessonID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
