package dummydb

import (
	"sync"

	"github.com/knowledgelearning/backend/core/catalog"
	"github.com/knowledgelearning/backend/core/certification"
	"github.com/knowledgelearning/backend/core/order"
	"github.com/knowledgelearning/backend/core/progress"
	"github.com/knowledgelearning/backend/core/user"
)

type (
	DB struct {
		user          *userTable
		catalog       *catalogTables
		order         *orderTables
		progress      *progressTable
		certification *certificationTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	catalogTables struct {
		sync.RWMutex
		themes  map[string]*catalog.Theme
		cursus  map[string]*catalog.Cursus
		lessons map[string]*catalog.Lesson
	}

	orderTables struct {
		sync.RWMutex
		orders    map[string]*order.Order
		purchases map[string]*order.Purchase // keyed by reference
	}

	progressTable struct {
		sync.RWMutex
		table map[string]*progress.Progress // keyed by userID+lessonID
	}

	certificationTable struct {
		sync.RWMutex
		table map[string]*certification.Certification // keyed by userID+themeID
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		catalog: &catalogTables{
			themes:  make(map[string]*catalog.Theme),
			cursus:  make(map[string]*catalog.Cursus),
			lessons: make(map[string]*catalog.Lesson),
		},
		order: &orderTables{
			orders:    make(map[string]*order.Order),
			purchases: make(map[string]*order.Purchase),
		},
		progress:      &progressTable{table: make(map[string]*progress.Progress)},
		certification: &certificationTable{table: make(map[string]*certification.Certification)},
	}
	return db, nil
}
