package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/knowledgelearning/backend/core/catalog"
)

// Order is a pending gateway transaction for a cursus or a lesson.
// Its ID doubles as the gateway order reference. An Order never grants
// access by itself; only a settled Order yields a Purchase.
type Order struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	CursusID  *string         `json:"cursus_id,omitempty"`
	LessonID  *string         `json:"lesson_id,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"` // UTC
	UpdatedAt time.Time       `json:"updated_at"` // UTC
}

// Purchase grants access to a cursus or a lesson. Immutable once created.
type Purchase struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	CursusID    *string         `json:"cursus_id,omitempty"`
	LessonID    *string         `json:"lesson_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Reference   string          `json:"reference"` // gateway order id
	PurchasedAt time.Time       `json:"purchased_at"` // UTC
	CreatedAt   time.Time       `json:"created_at"`   // UTC
	UpdatedAt   time.Time       `json:"updated_at"`   // UTC
}

// Checkout is what the client needs to proceed with the payment.
type Checkout struct {
	OrderID     string          `json:"order_id"`
	Amount      decimal.Decimal `json:"amount"`
	Token       string          `json:"token"`
	RedirectURL string          `json:"redirect_url"`
}

// Catalog browsing, annotated for the requesting user.
type (
	LessonInfo struct {
		ID        string          `json:"id"`
		Title     string          `json:"title"`
		Price     decimal.Decimal `json:"price"`
		Position  int             `json:"position"`
		Purchased bool            `json:"purchased"`
	}

	CursusInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		// AdjustedPrice is the cursus price minus the lessons already owned
		// individually; zero when everything is owned.
		AdjustedPrice decimal.Decimal `json:"adjusted_price"`
		Price         decimal.Decimal `json:"price"`
		Purchased     bool            `json:"purchased"`
		Lessons       []LessonInfo    `json:"lessons"`
	}

	ThemeCatalog struct {
		ID     string       `json:"id"`
		Name   string       `json:"name"`
		Cursus []CursusInfo `json:"cursus"`
	}
)

func newLessonInfo(lsn catalog.Lesson, purchased bool) LessonInfo {
	return LessonInfo{
		ID:        lsn.ID,
		Title:     lsn.Title,
		Price:     lsn.Price,
		Position:  lsn.Position,
		Purchased: purchased,
	}
}
