package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	. "github.com/knowledgelearning/backend/apps/api/echo"
	"github.com/knowledgelearning/backend/core"
	"github.com/knowledgelearning/backend/core/catalog"
	"github.com/knowledgelearning/backend/core/certification"
	"github.com/knowledgelearning/backend/core/order"
	"github.com/knowledgelearning/backend/core/progress"
	"github.com/knowledgelearning/backend/core/user"
	emailsvc "github.com/knowledgelearning/backend/services/email"
	logsvc "github.com/knowledgelearning/backend/services/logger"
	paymentsvc "github.com/knowledgelearning/backend/services/payment"
	dummydb "github.com/knowledgelearning/backend/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app Server

	userRepo user.Repository
	catRepo  catalog.Repository
	ordRepo  order.Repository
	progRepo progress.Repository
	certRepo certification.Repository

	usrSvc  *user.Service
	ordSvc  *order.Service
	progSvc *progress.Service
	certSvc *certification.Service
	paySvc  *paymentsvc.DummyService
}

func setup(t *testing.T) *testEnv {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	env := &testEnv{
		userRepo: dummydb.NewUserRepository(db),
		catRepo:  dummydb.NewCatalogRepository(db),
		ordRepo:  dummydb.NewOrderRepository(db),
		progRepo: dummydb.NewProgressRepository(db),
		certRepo: dummydb.NewCertificationRepository(db),
		paySvc:   paymentsvc.NewDummyService(),
	}

	mailSvc := emailsvc.NewConsoleServiceMock()
	logger := logsvc.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))

	env.usrSvc = user.NewService(env.userRepo, mailSvc)
	catSvc := catalog.NewService(env.catRepo)
	env.ordSvc = order.NewService(env.ordRepo, env.catRepo, env.paySvc, logger)
	env.certSvc = certification.NewService(env.certRepo, env.userRepo, env.catRepo, env.progRepo, mailSvc, logger)
	env.progSvc = progress.NewService(env.progRepo, env.catRepo, env.ordSvc, env.certSvc, logger)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	env.app = NewServer(
		&Options{
			DisableReqLogs:   true,
			UserSvc:          env.usrSvc,
			CatalogSvc:       catSvc,
			OrderSvc:         env.ordSvc,
			ProgressSvc:      env.progSvc,
			CertificationSvc: env.certSvc,
			Validate:         validate,
			Translator:       translator,
			Logger:           logger,
		},
	)
	return env
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// createUser seeds an active (or not) user directly through the repository.
func (env *testEnv) createUser(t *testing.T, name, uname, email, pwd, role string, isActive bool) user.User {
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := env.userRepo.CreateUser(ctx(t), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

type fixtures struct {
	musicTheme  catalog.Theme
	gardenTheme catalog.Theme
	guitarCur   catalog.Cursus
	pianoCur    catalog.Cursus
	guitarL1    catalog.Lesson
	guitarL2    catalog.Lesson
	pianoL1     catalog.Lesson
}

// seedCatalog loads the standard catalog: two themes, two music cursus and
// three lessons.
func (env *testEnv) seedCatalog(t *testing.T) fixtures {
	var fix fixtures
	var err error

	fix.musicTheme, err = env.catRepo.CreateTheme(ctx(t), catalog.Theme{Name: "Musique"})
	if err == nil {
		fix.gardenTheme, err = env.catRepo.CreateTheme(ctx(t), catalog.Theme{Name: "Jardinage"})
	}
	if err != nil {
		t.Fatalf("seedCatalog() failed: %v", err)
	}

	fix.guitarCur, err = env.catRepo.CreateCursus(ctx(t), catalog.Cursus{
		ThemeID: fix.musicTheme.ID,
		Name:    "Initiation à la guitare",
		Price:   decimal.NewFromInt(50),
	})
	if err == nil {
		fix.pianoCur, err = env.catRepo.CreateCursus(ctx(t), catalog.Cursus{
			ThemeID: fix.musicTheme.ID,
			Name:    "Initiation au piano",
			Price:   decimal.NewFromInt(50),
		})
	}
	if err != nil {
		t.Fatalf("seedCatalog() failed: %v", err)
	}

	fix.guitarL1, err = env.catRepo.CreateLesson(ctx(t), catalog.Lesson{
		CursusID: fix.guitarCur.ID,
		Title:    "Découverte de l'instrument",
		Content:  "Les parties de la guitare et la posture.",
		Price:    decimal.NewFromInt(26),
		Position: 1,
	})
	if err == nil {
		fix.guitarL2, err = env.catRepo.CreateLesson(ctx(t), catalog.Lesson{
			CursusID: fix.guitarCur.ID,
			Title:    "Les accords de base",
			Content:  "Mi mineur, La mineur, Ré majeur.",
			Price:    decimal.NewFromInt(26),
			Position: 2,
		})
	}
	if err == nil {
		fix.pianoL1, err = env.catRepo.CreateLesson(ctx(t), catalog.Lesson{
			CursusID: fix.pianoCur.ID,
			Title:    "Découverte de l'instrument",
			Content:  "Le clavier et les octaves.",
			Price:    decimal.NewFromInt(26),
			Position: 1,
		})
	}
	if err != nil {
		t.Fatalf("seedCatalog() failed: %v", err)
	}
	return fix
}

// buyLesson settles a full checkout+confirm cycle for the user.
func (env *testEnv) buyLesson(t *testing.T, usr user.User, lessonID string) order.Purchase {
	chk, err := env.ordSvc.CheckoutLesson(ctx(t), usr, lessonID)
	if err != nil {
		t.Fatalf("buyLesson() failed: %v", err)
	}
	env.paySvc.SetStatus(chk.OrderID, core.PaymentStatusPaid)
	pur, err := env.ordSvc.ConfirmPayment(ctx(t), chk.OrderID)
	if err != nil {
		t.Fatalf("buyLesson() failed: %v", err)
	}
	return pur
}

func ctx(t *testing.T) context.Context {
	return context.Background()
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
