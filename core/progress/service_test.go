package progress

import (
	"context"
	"testing"

	"github.com/knowledgelearning/backend/core/catalog"
)

type fakeRepo struct {
	records map[string]Progress // userID+lessonID
}

func newFakeRepo() *fakeRepo { return &fakeRepo{records: make(map[string]Progress)} }

func (r *fakeRepo) GetProgress(ctx context.Context, userID, lessonID string) (Progress, error) {
	prg, ok := r.records[userID+lessonID]
	if !ok {
		return Progress{}, ErrNotFound
	}
	return prg, nil
}
func (r *fakeRepo) UpsertProgress(ctx context.Context, prg Progress) (Progress, error) {
	r.records[prg.UserID+prg.LessonID] = prg
	return prg, nil
}
func (r *fakeRepo) QueryProgressByUser(ctx context.Context, userID string) ([]Progress, error) {
	var res []Progress
	for _, prg := range r.records {
		if prg.UserID == userID {
			res = append(res, prg)
		}
	}
	return res, nil
}
func (r *fakeRepo) FilterValidatedLessonIDs(ctx context.Context, userID string, lessonIDs []string) ([]string, error) {
	var res []string
	for _, id := range lessonIDs {
		if prg, ok := r.records[userID+id]; ok && prg.Validated {
			res = append(res, id)
		}
	}
	return res, nil
}

type fakeCatalogRepo struct {
	catalog.Repository

	lessons map[string]catalog.Lesson
	cursus  map[string]catalog.Cursus
}

func (r *fakeCatalogRepo) GetLessonByID(ctx context.Context, id string) (catalog.Lesson, error) {
	lsn, ok := r.lessons[id]
	if !ok {
		return catalog.Lesson{}, catalog.ErrLessonNotFound
	}
	return lsn, nil
}
func (r *fakeCatalogRepo) GetCursusByID(ctx context.Context, id string) (catalog.Cursus, error) {
	cur, ok := r.cursus[id]
	if !ok {
		return catalog.Cursus{}, catalog.ErrCursusNotFound
	}
	return cur, nil
}

type fakeAccess struct{ allowed map[string]bool }

func (a *fakeAccess) HasLessonAccess(ctx context.Context, userID string, lsn catalog.Lesson) (bool, error) {
	return a.allowed[userID+lsn.ID], nil
}

type fakeCertifier struct{ evaluated []string }

func (c *fakeCertifier) Evaluate(ctx context.Context, userID, themeID string) (bool, error) {
	c.evaluated = append(c.evaluated, userID+":"+themeID)
	return false, nil
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func newTestService(repo *fakeRepo, access *fakeAccess, certifier *fakeCertifier) *Service {
	catRepo := &fakeCatalogRepo{
		lessons: map[string]catalog.Lesson{
			"lsn-1": {ID: "lsn-1", CursusID: "cur-1", Title: "Découverte de l'instrument"},
		},
		cursus: map[string]catalog.Cursus{
			"cur-1": {ID: "cur-1", ThemeID: "thm-1", Name: "Initiation à la guitare"},
		},
	}
	return NewService(repo, catRepo, access, certifier, nopLogger{})
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	access := &fakeAccess{allowed: map[string]bool{}}
	svc := newTestService(repo, access, &fakeCertifier{})

	// no access
	if _, err := svc.Complete(ctx, "usr-1", "lsn-1"); err != ErrNoAccess {
		t.Fatalf("Complete() error = %v, want %v", err, ErrNoAccess)
	}

	// unknown lesson
	if _, err := svc.Complete(ctx, "usr-1", "nope"); err != catalog.ErrLessonNotFound {
		t.Fatalf("Complete() error = %v, want %v", err, catalog.ErrLessonNotFound)
	}

	access.allowed["usr-1lsn-1"] = true
	prg, err := svc.Complete(ctx, "usr-1", "lsn-1")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !prg.Completed || prg.CompletedAt == nil {
		t.Errorf("Complete() = %+v, want completed with timestamp", prg)
	}
	if prg.Validated {
		t.Error("Complete() must not validate")
	}

	// completing twice keeps the original timestamp
	again, err := svc.Complete(ctx, "usr-1", "lsn-1")
	if err != nil {
		t.Fatalf("Complete() again error = %v", err)
	}
	if !again.CompletedAt.Equal(*prg.CompletedAt) {
		t.Error("Complete() is not idempotent")
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	access := &fakeAccess{allowed: map[string]bool{"usr-1lsn-1": true}}
	certifier := &fakeCertifier{}
	svc := newTestService(repo, access, certifier)

	// validation requires completion first
	if _, err := svc.Validate(ctx, "usr-1", "lsn-1"); err != ErrNotCompleted {
		t.Fatalf("Validate() error = %v, want %v", err, ErrNotCompleted)
	}

	if _, err := svc.Complete(ctx, "usr-1", "lsn-1"); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	prg, err := svc.Validate(ctx, "usr-1", "lsn-1")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !prg.Validated || prg.ValidatedAt == nil {
		t.Errorf("Validate() = %+v, want validated with timestamp", prg)
	}

	// the lesson's theme was re-evaluated
	if len(certifier.evaluated) != 1 || certifier.evaluated[0] != "usr-1:thm-1" {
		t.Errorf("certifier.evaluated = %v, want [usr-1:thm-1]", certifier.evaluated)
	}

	// validating twice re-evaluates but keeps the original timestamp
	again, err := svc.Validate(ctx, "usr-1", "lsn-1")
	if err != nil {
		t.Fatalf("Validate() again error = %v", err)
	}
	if !again.ValidatedAt.Equal(*prg.ValidatedAt) {
		t.Error("Validate() is not idempotent")
	}
}

func TestValidateRequiresAccess(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	access := &fakeAccess{allowed: map[string]bool{}}
	svc := newTestService(repo, access, &fakeCertifier{})

	repo.records["usr-1lsn-1"] = Progress{UserID: "usr-1", LessonID: "lsn-1", Completed: true}
	if _, err := svc.Validate(ctx, "usr-1", "lsn-1"); err != ErrNoAccess {
		t.Fatalf("Validate() error = %v, want %v", err, ErrNoAccess)
	}
}

func TestGetNeverStarted(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFakeRepo(), &fakeAccess{}, &fakeCertifier{})

	prg, err := svc.Get(ctx, "usr-1", "lsn-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if prg.Completed || prg.Validated {
		t.Errorf("Get() = %+v, want zero-flag record", prg)
	}

	if _, err = svc.Get(ctx, "usr-1", "nope"); err != catalog.ErrLessonNotFound {
		t.Errorf("Get() error = %v, want %v", err, catalog.ErrLessonNotFound)
	}
}
