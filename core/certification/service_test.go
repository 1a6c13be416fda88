package certification

import (
	"context"
	"testing"
	"time"

	"github.com/knowledgelearning/backend/core"
	"github.com/knowledgelearning/backend/core/catalog"
	"github.com/knowledgelearning/backend/core/progress"
	"github.com/knowledgelearning/backend/core/user"
)

type fakeRepo struct {
	certs map[string]Certification // userID+themeID
}

func newFakeRepo() *fakeRepo { return &fakeRepo{certs: make(map[string]Certification)} }

func (r *fakeRepo) CreateCertification(ctx context.Context, crt Certification) (Certification, error) {
	key := crt.UserID + crt.ThemeID
	if _, ok := r.certs[key]; ok {
		return Certification{}, ErrExists
	}
	r.certs[key] = crt
	return crt, nil
}
func (r *fakeRepo) GetCertification(ctx context.Context, userID, themeID string) (Certification, error) {
	crt, ok := r.certs[userID+themeID]
	if !ok {
		return Certification{}, ErrNotFound
	}
	return crt, nil
}
func (r *fakeRepo) QueryCertificationsByUser(ctx context.Context, userID string) ([]Certification, error) {
	var res []Certification
	for _, crt := range r.certs {
		if crt.UserID == userID {
			res = append(res, crt)
		}
	}
	return res, nil
}
func (r *fakeRepo) QueryAllCertifications(ctx context.Context) ([]Certification, error) {
	res := make([]Certification, 0, len(r.certs))
	for _, crt := range r.certs {
		res = append(res, crt)
	}
	return res, nil
}

type fakeUserRepo struct {
	user.Repository

	users map[string]user.User
}

func (r *fakeUserRepo) GetUserByID(ctx context.Context, id string) (user.User, error) {
	usr, ok := r.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

type fakeCatalogRepo struct {
	catalog.Repository

	themes  map[string]catalog.Theme
	lessons map[string][]catalog.Lesson // by theme
}

func (r *fakeCatalogRepo) GetThemeByID(ctx context.Context, id string) (catalog.Theme, error) {
	thm, ok := r.themes[id]
	if !ok {
		return catalog.Theme{}, catalog.ErrThemeNotFound
	}
	return thm, nil
}
func (r *fakeCatalogRepo) QueryLessonsByTheme(ctx context.Context, themeID string) ([]catalog.Lesson, error) {
	return r.lessons[themeID], nil
}

type fakeProgressRepo struct {
	progress.Repository

	validated map[string]bool // userID+lessonID
}

func (r *fakeProgressRepo) FilterValidatedLessonIDs(ctx context.Context, userID string, lessonIDs []string) ([]string, error) {
	var res []string
	for _, id := range lessonIDs {
		if r.validated[userID+id] {
			res = append(res, id)
		}
	}
	return res, nil
}

type mailServiceMock struct{ sent []*core.EmailMessage }

func (m *mailServiceMock) SendMessages(messages ...*core.EmailMessage) {
	m.sent = append(m.sent, messages...)
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

type testEnv struct {
	svc      *Service
	repo     *fakeRepo
	progRepo *fakeProgressRepo
	mailSvc  *mailServiceMock
}

func newTestEnv() *testEnv {
	repo := newFakeRepo()
	userRepo := &fakeUserRepo{users: map[string]user.User{
		"usr-1": {ID: "usr-1", Name: "Jo", Email: "jo@test.test", Role: user.RoleClient, IsActive: true},
	}}
	catRepo := &fakeCatalogRepo{
		themes: map[string]catalog.Theme{
			"thm-1": {ID: "thm-1", Name: "Musique"},
			"thm-2": {ID: "thm-2", Name: "Jardinage"},
		},
		lessons: map[string][]catalog.Lesson{
			"thm-1": {
				{ID: "lsn-1", CursusID: "cur-1", Title: "Découverte de l'instrument"},
				{ID: "lsn-2", CursusID: "cur-1", Title: "Les accords et les gammes"},
			},
			// thm-2 has no lessons
		},
	}
	progRepo := &fakeProgressRepo{validated: make(map[string]bool)}
	mailSvc := &mailServiceMock{}

	svc := NewService(repo, userRepo, catRepo, progRepo, mailSvc, nopLogger{})
	return &testEnv{svc: svc, repo: repo, progRepo: progRepo, mailSvc: mailSvc}
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	// nothing validated yet
	issued, err := env.svc.Evaluate(ctx, "usr-1", "thm-1")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if issued {
		t.Fatal("Evaluate() issued = true, want false")
	}

	// one of two lessons validated: still no certification
	env.progRepo.validated["usr-1lsn-1"] = true
	if issued, _ = env.svc.Evaluate(ctx, "usr-1", "thm-1"); issued {
		t.Fatal("Evaluate() issued = true with a lesson left, want false")
	}

	// last lesson validated: certification issued, congrats sent
	env.progRepo.validated["usr-1lsn-2"] = true
	if issued, err = env.svc.Evaluate(ctx, "usr-1", "thm-1"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !issued {
		t.Fatal("Evaluate() issued = false with all lessons validated, want true")
	}
	if len(env.mailSvc.sent) != 1 {
		t.Fatalf("len(sent mails) = %d, want 1", len(env.mailSvc.sent))
	}
	if tname := env.mailSvc.sent[0].TemplateName; tname != "certification-earned" {
		t.Errorf("mail template = %s, want certification-earned", tname)
	}

	// re-evaluating does not issue a second one
	if issued, err = env.svc.Evaluate(ctx, "usr-1", "thm-1"); err != nil {
		t.Fatalf("Evaluate() again error = %v", err)
	}
	if issued || len(env.repo.certs) != 1 || len(env.mailSvc.sent) != 1 {
		t.Error("Evaluate() is not idempotent")
	}
}

// racingRepo misses the existence check that a concurrent evaluation has
// already satisfied; only the insert sees the collision.
type racingRepo struct {
	*fakeRepo
}

func (r *racingRepo) GetCertification(ctx context.Context, userID, themeID string) (Certification, error) {
	return Certification{}, ErrNotFound
}

func TestEvaluateConcurrentIssue(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	env.progRepo.validated["usr-1lsn-1"] = true
	env.progRepo.validated["usr-1lsn-2"] = true
	if issued, _ := env.svc.Evaluate(ctx, "usr-1", "thm-1"); !issued {
		t.Fatal("Evaluate() issued = false, want true")
	}
	mails := len(env.mailSvc.sent)

	// a second evaluation races past the existence check and collides on
	// the unique constraint; the collision is absorbed
	env.svc.repo = &racingRepo{env.repo}
	issued, err := env.svc.Evaluate(ctx, "usr-1", "thm-1")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if issued {
		t.Error("Evaluate() issued = true, want false")
	}
	if len(env.repo.certs) != 1 {
		t.Errorf("len(certifications) = %d, want 1", len(env.repo.certs))
	}
	if len(env.mailSvc.sent) != mails {
		t.Errorf("len(sent mails) = %d, want %d", len(env.mailSvc.sent), mails)
	}
}

func TestEvaluateEmptyTheme(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	// an empty theme never certifies by default
	issued, err := env.svc.Evaluate(ctx, "usr-1", "thm-2")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if issued {
		t.Fatal("Evaluate() issued = true for an empty theme, want false")
	}

	// unless the deployment opts in
	env.svc.certifyEmptyThemes = true
	if issued, err = env.svc.Evaluate(ctx, "usr-1", "thm-2"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !issued {
		t.Error("Evaluate() issued = false with certifyEmptyThemes on, want true")
	}
}

func TestEvaluateUnknowns(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	if _, err := env.svc.Evaluate(ctx, "nope", "thm-1"); err != user.ErrNotFound {
		t.Errorf("Evaluate() error = %v, want %v", err, user.ErrNotFound)
	}
	if _, err := env.svc.Evaluate(ctx, "usr-1", "nope"); err != catalog.ErrThemeNotFound {
		t.Errorf("Evaluate() error = %v, want %v", err, catalog.ErrThemeNotFound)
	}
}

func TestCertificationNotRetracted(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()

	env.progRepo.validated["usr-1lsn-1"] = true
	env.progRepo.validated["usr-1lsn-2"] = true
	if issued, _ := env.svc.Evaluate(ctx, "usr-1", "thm-1"); !issued {
		t.Fatal("Evaluate() issued = false, want true")
	}

	// even if the progress store lost a validation, the certification stays
	delete(env.progRepo.validated, "usr-1lsn-2")
	if _, err := env.svc.Evaluate(ctx, "usr-1", "thm-1"); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	crts, err := env.svc.QueryByUser(ctx, "usr-1")
	if err != nil {
		t.Fatalf("QueryByUser() error = %v", err)
	}
	if len(crts) != 1 {
		t.Fatalf("len(certifications) = %d, want 1", len(crts))
	}
	if crts[0].IssuedAt.After(time.Now()) {
		t.Error("IssuedAt is in the future")
	}
}
