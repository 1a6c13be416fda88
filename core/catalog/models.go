package catalog

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/knowledgelearning/backend/core"
)

// Theme is the top-level subject grouping (e.g. Musique, Informatique).
type Theme struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Cursus is a course track under one Theme, holding ordered lessons.
type Cursus struct {
	ID        string          `json:"id"`
	ThemeID   string          `json:"theme_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"created_at"` // UTC
	UpdatedAt time.Time       `json:"updated_at"` // UTC
}

// Lesson is the smallest purchasable/completable unit, under one Cursus.
type Lesson struct {
	ID        string          `json:"id"`
	CursusID  string          `json:"cursus_id"`
	Title     string          `json:"title"`
	Content   string          `json:"content,omitempty"`
	VideoURL  string          `json:"video_url,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Position  int             `json:"position"`
	CreatedAt time.Time       `json:"created_at"` // UTC
	UpdatedAt time.Time       `json:"updated_at"` // UTC
}

var errNegativePrice = "price cannot be negative"

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "price", Error: errNegativePrice})
	}
	return nil
}

type NewTheme struct {
	Name string `json:"name" validate:"required"`
}

func (nt *NewTheme) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	return validate.Struct(nt)
}

type UpdateTheme struct {
	Name string `json:"name" validate:"required"`
}

func (ut *UpdateTheme) Validate(validate *validator.Validate) error {
	ut.Name = core.CleanString(ut.Name)
	return validate.Struct(ut)
}

type NewCursus struct {
	ThemeID string          `json:"theme_id" validate:"required,uuid4"`
	Name    string          `json:"name" validate:"required"`
	Price   decimal.Decimal `json:"price"`
}

func (nc *NewCursus) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	if err := validate.Struct(nc); err != nil {
		return err
	}
	return validatePrice(nc.Price)
}

type UpdateCursus struct {
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
}

func (uc *UpdateCursus) Validate(origCur Cursus, validate *validator.Validate) error {
	name := core.CleanString(uc.Name)
	if name != "" {
		uc.Name = name
	} else {
		uc.Name = origCur.Name
	}
	if uc.Price == nil {
		uc.Price = &origCur.Price
	}
	if err := validate.Struct(uc); err != nil {
		return err
	}
	return validatePrice(*uc.Price)
}

type NewLesson struct {
	CursusID string          `json:"cursus_id" validate:"required,uuid4"`
	Title    string          `json:"title" validate:"required"`
	Content  string          `json:"content"`
	VideoURL string          `json:"video_url" validate:"omitempty,url"`
	Price    decimal.Decimal `json:"price"`
	Position int             `json:"position" validate:"min=0"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	if err := validate.Struct(nl); err != nil {
		return err
	}
	return validatePrice(nl.Price)
}

type UpdateLesson struct {
	Title    string           `json:"title"`
	Content  *string          `json:"content"`
	VideoURL *string          `json:"video_url" validate:"omitempty,url"`
	Price    *decimal.Decimal `json:"price"`
	Position *int             `json:"position"`
}

func (ul *UpdateLesson) Validate(origLsn Lesson, validate *validator.Validate) error {
	title := core.CleanString(ul.Title)
	if title != "" {
		ul.Title = title
	} else {
		ul.Title = origLsn.Title
	}
	if ul.Content == nil {
		ul.Content = &origLsn.Content
	}
	if ul.VideoURL == nil {
		ul.VideoURL = &origLsn.VideoURL
	}
	if ul.Price == nil {
		ul.Price = &origLsn.Price
	}
	if ul.Position == nil {
		ul.Position = &origLsn.Position
	}
	if err := validate.Struct(ul); err != nil {
		return err
	}
	return validatePrice(*ul.Price)
}
