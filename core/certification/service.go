package certification

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/knowledgelearning/backend/core"
	"github.com/knowledgelearning/backend/core/catalog"
	"github.com/knowledgelearning/backend/core/progress"
	"github.com/knowledgelearning/backend/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("certification not found")
	// ErrExists is returned by repositories on a (user, theme) collision;
	// the service absorbs it.
	ErrExists = errors.New("certification already issued")
)

type (
	Repository interface {
		CreateCertification(ctx context.Context, crt Certification) (Certification, error)
		GetCertification(ctx context.Context, userID, themeID string) (Certification, error)
		QueryCertificationsByUser(ctx context.Context, userID string) ([]Certification, error)
		QueryAllCertifications(ctx context.Context) ([]Certification, error)
	}

	Service struct {
		repo     Repository
		userRepo user.Repository
		catRepo  catalog.Repository
		progRepo progress.Repository
		mailSvc  core.EmailService
		logger   core.Logger

		certifyEmptyThemes bool
	}
)

func NewService(
	repo Repository,
	userRepo user.Repository,
	catRepo catalog.Repository,
	progRepo progress.Repository,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:               repo,
		userRepo:           userRepo,
		catRepo:            catRepo,
		progRepo:           progRepo,
		mailSvc:            mailSvc,
		logger:             logger,
		certifyEmptyThemes: core.Conf.CertifyEmptyThemes,
	}
}

// Evaluate issues the theme's certification when the user has validated every
// lesson under it. issued is true only when this call created the
// certification; re-evaluating an already certified theme reports false.
func (svc *Service) Evaluate(ctx context.Context, userID, themeID string) (issued bool, err error) {
	usr, err := svc.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}
	thm, err := svc.catRepo.GetThemeByID(ctx, themeID)
	if err != nil {
		return false, err
	}

	if _, err = svc.repo.GetCertification(ctx, userID, themeID); err == nil {
		return false, nil
	} else if errors.Cause(err) != ErrNotFound {
		return false, err
	}

	lessons, err := svc.catRepo.QueryLessonsByTheme(ctx, themeID)
	if err != nil {
		return false, errors.Wrap(err, "querying theme lessons")
	}
	if len(lessons) == 0 && !svc.certifyEmptyThemes {
		return false, nil
	}

	lessonIDs := make([]string, len(lessons))
	for i, lsn := range lessons {
		lessonIDs[i] = lsn.ID
	}
	validated, err := svc.progRepo.FilterValidatedLessonIDs(ctx, userID, lessonIDs)
	if err != nil {
		return false, errors.Wrap(err, "querying validations")
	}
	if len(validated) < len(lessons) {
		return false, nil
	}

	crt := Certification{
		ID:       uuid.New().String(),
		UserID:   userID,
		ThemeID:  themeID,
		IssuedAt: time.Now().UTC(),
	}
	if _, err = svc.repo.CreateCertification(ctx, crt); err != nil {
		if errors.Cause(err) == ErrExists {
			// concurrent evaluation; the first writer won
			return false, nil
		}
		return false, errors.Wrap(err, "creating certification")
	}

	svc.logger.Info("certification issued", "user", userID, "theme", thm.Name)
	svc.sendCongratsMail(usr, thm)
	return true, nil
}

func (svc *Service) QueryByUser(ctx context.Context, userID string) ([]Certification, error) {
	return svc.repo.QueryCertificationsByUser(ctx, userID)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Certification, error) {
	return svc.repo.QueryAllCertifications(ctx)
}

func (svc *Service) sendCongratsMail(usr user.User, thm catalog.Theme) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Congratulations on your certification!",
		TemplateName: "certification-earned",
		TemplateData: struct {
			Name  string
			Theme string
		}{Name: usr.Name, Theme: thm.Name},
	})
}
