package dummydb

import (
	"context"
	"sort"

	"github.com/knowledgelearning/backend/core/order"
)

type orderRepository struct {
	db      *orderTables
	catalog *catalogTables
}

var _ order.Repository = (*orderRepository)(nil) // interface compliance check

func NewOrderRepository(db *DB) order.Repository {
	return &orderRepository{db: db.order, catalog: db.catalog}
}

func (repo *orderRepository) CreateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.orders[ord.ID] = &ord
	return ord, nil
}

func (repo *orderRepository) GetOrderByID(ctx context.Context, id string) (order.Order, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ord, ok := repo.db.orders[id]; ok {
		return *ord, nil
	}
	return order.Order{}, order.ErrNotFound
}

func (repo *orderRepository) UpdateOrder(ctx context.Context, ord order.Order) (order.Order, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.orders[ord.ID]
	if !ok {
		return order.Order{}, order.ErrNotFound
	}
	orig.Status = ord.Status
	orig.PaidAt = ord.PaidAt
	orig.UpdatedAt = ord.UpdatedAt
	return *orig, nil
}

func (repo *orderRepository) CreatePurchase(ctx context.Context, pch order.Purchase) (order.Purchase, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.purchases[pch.Reference]; ok {
		return order.Purchase{}, order.ErrDuplicateReference
	}
	for _, p := range repo.db.purchases {
		if p.UserID != pch.UserID {
			continue
		}
		if pch.LessonID != nil && p.LessonID != nil && *p.LessonID == *pch.LessonID {
			return order.Purchase{}, order.ErrDuplicateItem
		}
		if pch.CursusID != nil && p.CursusID != nil && *p.CursusID == *pch.CursusID {
			return order.Purchase{}, order.ErrDuplicateItem
		}
	}
	repo.db.purchases[pch.Reference] = &pch
	return pch, nil
}

func (repo *orderRepository) GetPurchaseByReference(ctx context.Context, ref string) (order.Purchase, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pch, ok := repo.db.purchases[ref]; ok {
		return *pch, nil
	}
	return order.Purchase{}, order.ErrNotFound
}

func (repo *orderRepository) GetPurchaseByItem(ctx context.Context, userID, itemID string) (order.Purchase, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, pch := range repo.db.purchases {
		if pch.UserID != userID {
			continue
		}
		if (pch.LessonID != nil && *pch.LessonID == itemID) || (pch.CursusID != nil && *pch.CursusID == itemID) {
			return *pch, nil
		}
	}
	return order.Purchase{}, order.ErrNotFound
}

func (repo *orderRepository) QueryPurchasesByUser(ctx context.Context, userID string) ([]order.Purchase, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var purchases []order.Purchase
	for _, pch := range repo.db.purchases {
		if pch.UserID == userID {
			purchases = append(purchases, *pch)
		}
	}
	sort.Slice(purchases, func(i, j int) bool { return purchases[i].PurchasedAt.After(purchases[j].PurchasedAt) })
	return purchases, nil
}

func (repo *orderRepository) UserOwnsLesson(ctx context.Context, userID, lessonID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, pch := range repo.db.purchases {
		if pch.UserID == userID && pch.LessonID != nil && *pch.LessonID == lessonID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *orderRepository) UserOwnsCursus(ctx context.Context, userID, cursusID string) (bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, pch := range repo.db.purchases {
		if pch.UserID == userID && pch.CursusID != nil && *pch.CursusID == cursusID {
			return true, nil
		}
	}
	return false, nil
}

func (repo *orderRepository) QueryOwnedLessonIDsByCursus(ctx context.Context, userID, cursusID string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	repo.catalog.RLock()
	defer repo.catalog.RUnlock()

	var ids []string
	for _, pch := range repo.db.purchases {
		if pch.UserID != userID || pch.LessonID == nil {
			continue
		}
		if lsn, ok := repo.catalog.lessons[*pch.LessonID]; ok && lsn.CursusID == cursusID {
			ids = append(ids, *pch.LessonID)
		}
	}
	return ids, nil
}
