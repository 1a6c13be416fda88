package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/knowledgelearning/backend/core"
	"github.com/knowledgelearning/backend/core/catalog"
	"github.com/knowledgelearning/backend/core/user"
)

var (
	// errors
	ErrNotFound       = errors.New("order not found")
	ErrAlreadyOwned   = errors.New("item already owned")
	ErrPaymentFailed  = errors.New("payment could not be initiated")
	ErrPaymentPending = errors.New("payment not completed yet")
	ErrPaymentVoided  = errors.New("payment was canceled or expired")
	// ErrDuplicateReference is returned by repositories on a purchase
	// reference collision; the service absorbs it.
	ErrDuplicateReference = errors.New("a purchase with this reference already exists")
	// ErrDuplicateItem is returned by repositories when the user already
	// has a purchase for the same lesson or cursus; the service absorbs it.
	ErrDuplicateItem = errors.New("the item was already purchased")
)

type (
	Repository interface {
		CreateOrder(ctx context.Context, ord Order) (Order, error)
		GetOrderByID(ctx context.Context, id string) (Order, error)
		UpdateOrder(ctx context.Context, ord Order) (Order, error)

		CreatePurchase(ctx context.Context, pch Purchase) (Purchase, error)
		GetPurchaseByReference(ctx context.Context, ref string) (Purchase, error)
		// GetPurchaseByItem returns the user's purchase of the lesson or
		// cursus with the given ID.
		GetPurchaseByItem(ctx context.Context, userID, itemID string) (Purchase, error)
		QueryPurchasesByUser(ctx context.Context, userID string) ([]Purchase, error)
		UserOwnsLesson(ctx context.Context, userID, lessonID string) (bool, error)
		UserOwnsCursus(ctx context.Context, userID, cursusID string) (bool, error)
		// QueryOwnedLessonIDsByCursus returns the IDs of the cursus' lessons the
		// user bought individually.
		QueryOwnedLessonIDsByCursus(ctx context.Context, userID, cursusID string) ([]string, error)
	}

	Service struct {
		repo    Repository
		catRepo catalog.Repository
		paySvc  core.PaymentService
		logger  core.Logger
	}
)

func NewService(repo Repository, catRepo catalog.Repository, paySvc core.PaymentService, logger core.Logger) *Service {
	return &Service{repo: repo, catRepo: catRepo, paySvc: paySvc, logger: logger}
}

// AdjustedCursusPrice is the price left to pay for a cursus: the full price
// when the user owns none of its lessons, otherwise the sum of the lessons
// not yet owned. ownedAll reports that nothing is left to buy.
func (svc *Service) AdjustedCursusPrice(ctx context.Context, userID string, cur catalog.Cursus) (price decimal.Decimal, ownedAll bool, err error) {
	if userID != "" {
		owns, err := svc.repo.UserOwnsCursus(ctx, userID, cur.ID)
		if err != nil {
			return decimal.Zero, false, errors.Wrap(err, "checking cursus ownership")
		}
		if owns {
			return decimal.Zero, true, nil
		}
	}

	ownedIDs, err := svc.ownedLessonIDs(ctx, userID, cur.ID)
	if err != nil {
		return decimal.Zero, false, err
	}
	if len(ownedIDs) == 0 {
		return cur.Price, false, nil
	}

	lessons, err := svc.catRepo.QueryLessonsByCursus(ctx, cur.ID)
	if err != nil {
		return decimal.Zero, false, errors.Wrap(err, "querying lessons")
	}
	remaining := decimal.Zero
	anyLeft := false
	for _, lsn := range lessons {
		if _, ok := ownedIDs[lsn.ID]; ok {
			continue
		}
		remaining = remaining.Add(lsn.Price)
		anyLeft = true
	}
	if !anyLeft {
		return decimal.Zero, true, nil
	}
	return remaining, false, nil
}

func (svc *Service) ownedLessonIDs(ctx context.Context, userID, cursusID string) (map[string]struct{}, error) {
	if userID == "" {
		return nil, nil
	}
	ids, err := svc.repo.QueryOwnedLessonIDsByCursus(ctx, userID, cursusID)
	if err != nil {
		return nil, errors.Wrap(err, "querying owned lessons")
	}
	owned := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		owned[id] = struct{}{}
	}
	return owned, nil
}

// CheckoutCursus opens a payment session for a cursus at its adjusted price.
func (svc *Service) CheckoutCursus(ctx context.Context, usr user.User, cursusID string) (Checkout, error) {
	cur, err := svc.catRepo.GetCursusByID(ctx, cursusID)
	if err != nil {
		return Checkout{}, err
	}

	price, ownedAll, err := svc.AdjustedCursusPrice(ctx, usr.ID, cur)
	if err != nil {
		return Checkout{}, err
	}
	if ownedAll {
		return Checkout{}, ErrAlreadyOwned
	}

	desc := fmt.Sprintf("Cursus: %s", cur.Name)
	return svc.openSession(ctx, usr, Order{CursusID: &cur.ID}, price, desc)
}

// CheckoutLesson opens a payment session for a single lesson. Owning the
// lesson or its whole cursus blocks the purchase.
func (svc *Service) CheckoutLesson(ctx context.Context, usr user.User, lessonID string) (Checkout, error) {
	lsn, err := svc.catRepo.GetLessonByID(ctx, lessonID)
	if err != nil {
		return Checkout{}, err
	}

	owns, err := svc.repo.UserOwnsLesson(ctx, usr.ID, lsn.ID)
	if err != nil {
		return Checkout{}, errors.Wrap(err, "checking lesson ownership")
	}
	if !owns {
		owns, err = svc.repo.UserOwnsCursus(ctx, usr.ID, lsn.CursusID)
		if err != nil {
			return Checkout{}, errors.Wrap(err, "checking cursus ownership")
		}
	}
	if owns {
		return Checkout{}, ErrAlreadyOwned
	}

	desc := fmt.Sprintf("Lesson: %s", lsn.Title)
	return svc.openSession(ctx, usr, Order{LessonID: &lsn.ID}, lsn.Price, desc)
}

func (svc *Service) openSession(ctx context.Context, usr user.User, ord Order, amount decimal.Decimal, desc string) (Checkout, error) {
	now := time.Now().UTC()
	ord.ID = uuid.New().String()
	ord.UserID = usr.ID
	ord.Amount = amount
	ord.Status = core.PaymentStatusPending
	ord.CreatedAt = now
	ord.UpdatedAt = now

	ord, err := svc.repo.CreateOrder(ctx, ord)
	if err != nil {
		return Checkout{}, errors.Wrap(err, "creating order")
	}

	sess, err := svc.paySvc.CreateTransaction(ctx, core.PaymentRequest{
		OrderID:       ord.ID,
		Amount:        ord.Amount,
		Description:   desc,
		CustomerName:  usr.Name,
		CustomerEmail: usr.Email,
	})
	if err != nil {
		svc.logger.Error("creating payment transaction", "order", ord.ID, "error", err)
		ord.Status = core.PaymentStatusCanceled
		ord.UpdatedAt = time.Now().UTC()
		if _, uerr := svc.repo.UpdateOrder(ctx, ord); uerr != nil {
			svc.logger.Error("voiding failed order", "order", ord.ID, "error", uerr)
		}
		return Checkout{}, ErrPaymentFailed
	}

	return Checkout{
		OrderID:     ord.ID,
		Amount:      ord.Amount,
		Token:       sess.Token,
		RedirectURL: sess.RedirectURL,
	}, nil
}

// ConfirmPayment checks the order's status with the gateway and, on a settled
// payment, records the Purchase. Safe to call more than once for the same
// order; both the success redirect and the webhook go through here.
func (svc *Service) ConfirmPayment(ctx context.Context, orderID string) (Purchase, error) {
	ord, err := svc.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return Purchase{}, err
	}
	if ord.Status == core.PaymentStatusPaid {
		return svc.purchaseForOrder(ctx, ord)
	}

	// never trust the caller; the gateway is the source of truth
	status, err := svc.paySvc.VerifyTransaction(ctx, ord.ID)
	if err != nil {
		return Purchase{}, errors.Wrap(err, "verifying transaction")
	}

	switch status {
	case core.PaymentStatusPaid:
		return svc.recordPurchase(ctx, ord)
	case core.PaymentStatusCanceled, core.PaymentStatusExpired:
		ord.Status = status
		ord.UpdatedAt = time.Now().UTC()
		if _, err = svc.repo.UpdateOrder(ctx, ord); err != nil {
			return Purchase{}, errors.Wrap(err, "updating order")
		}
		return Purchase{}, ErrPaymentVoided
	default:
		return Purchase{}, ErrPaymentPending
	}
}

func (svc *Service) recordPurchase(ctx context.Context, ord Order) (Purchase, error) {
	// two pending checkouts for the same item can both settle at the
	// gateway; only the first writer records a purchase
	owned, err := svc.itemOwned(ctx, ord)
	if err != nil {
		return Purchase{}, err
	}
	if owned {
		return svc.settleOnExisting(ctx, ord)
	}

	now := time.Now().UTC()
	pch := Purchase{
		ID:          uuid.New().String(),
		UserID:      ord.UserID,
		CursusID:    ord.CursusID,
		LessonID:    ord.LessonID,
		Amount:      ord.Amount,
		Reference:   ord.ID,
		PurchasedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	pch, err = svc.repo.CreatePurchase(ctx, pch)
	if err != nil {
		switch errors.Cause(err) {
		case ErrDuplicateReference, ErrDuplicateItem:
			// concurrent confirmation, or a rival order settled first
			return svc.settleOnExisting(ctx, ord)
		}
		return Purchase{}, errors.Wrap(err, "creating purchase")
	}

	ord.Status = core.PaymentStatusPaid
	ord.PaidAt = &now
	ord.UpdatedAt = now
	if _, err = svc.repo.UpdateOrder(ctx, ord); err != nil {
		return Purchase{}, errors.Wrap(err, "updating order")
	}

	svc.logger.Info("purchase recorded", "user", pch.UserID, "reference", pch.Reference)
	return pch, nil
}

func (svc *Service) itemOwned(ctx context.Context, ord Order) (bool, error) {
	switch {
	case ord.LessonID != nil:
		owns, err := svc.repo.UserOwnsLesson(ctx, ord.UserID, *ord.LessonID)
		return owns, errors.Wrap(err, "checking lesson ownership")
	case ord.CursusID != nil:
		owns, err := svc.repo.UserOwnsCursus(ctx, ord.UserID, *ord.CursusID)
		return owns, errors.Wrap(err, "checking cursus ownership")
	}
	return false, nil
}

// settleOnExisting closes the order against a purchase that was already
// recorded, by a concurrent confirmation of the same order or by a rival
// order for the same item.
func (svc *Service) settleOnExisting(ctx context.Context, ord Order) (Purchase, error) {
	pch, err := svc.purchaseForOrder(ctx, ord)
	if err != nil {
		return Purchase{}, err
	}
	if ord.Status != core.PaymentStatusPaid {
		now := time.Now().UTC()
		ord.Status = core.PaymentStatusPaid
		ord.PaidAt = &now
		ord.UpdatedAt = now
		if _, err = svc.repo.UpdateOrder(ctx, ord); err != nil {
			return Purchase{}, errors.Wrap(err, "updating order")
		}
	}
	return pch, nil
}

// purchaseForOrder resolves the purchase an order settled on: its own
// reference first, then the user's purchase of the same item.
func (svc *Service) purchaseForOrder(ctx context.Context, ord Order) (Purchase, error) {
	pch, err := svc.repo.GetPurchaseByReference(ctx, ord.ID)
	if errors.Cause(err) != ErrNotFound {
		return pch, err
	}
	switch {
	case ord.LessonID != nil:
		return svc.repo.GetPurchaseByItem(ctx, ord.UserID, *ord.LessonID)
	case ord.CursusID != nil:
		return svc.repo.GetPurchaseByItem(ctx, ord.UserID, *ord.CursusID)
	}
	return Purchase{}, err
}

// HandleNotification processes a gateway webhook for the given order.
// Settlement statuses confirm the payment; terminal failures void the order;
// anything else is ignored.
func (svc *Service) HandleNotification(ctx context.Context, orderID string) error {
	_, err := svc.ConfirmPayment(ctx, orderID)
	switch errors.Cause(err) {
	case nil, ErrPaymentPending, ErrPaymentVoided:
		return nil
	}
	return err
}

// HasLessonAccess reports whether the user owns the lesson or its cursus.
func (svc *Service) HasLessonAccess(ctx context.Context, userID string, lsn catalog.Lesson) (bool, error) {
	owns, err := svc.repo.UserOwnsLesson(ctx, userID, lsn.ID)
	if err != nil {
		return false, errors.Wrap(err, "checking lesson ownership")
	}
	if owns {
		return true, nil
	}
	owns, err = svc.repo.UserOwnsCursus(ctx, userID, lsn.CursusID)
	if err != nil {
		return false, errors.Wrap(err, "checking cursus ownership")
	}
	return owns, nil
}

// Purchases lists the user's purchases, newest first.
func (svc *Service) Purchases(ctx context.Context, userID string) ([]Purchase, error) {
	return svc.repo.QueryPurchasesByUser(ctx, userID)
}

// GetOrder returns the order only if it belongs to the user.
func (svc *Service) GetOrder(ctx context.Context, userID, orderID string) (Order, error) {
	ord, err := svc.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if ord.UserID != userID {
		return Order{}, ErrNotFound
	}
	return ord, nil
}

// BrowseCatalog returns every theme with its cursus and lessons, annotated
// with ownership and adjusted prices for the user. An empty userID browses
// anonymously.
func (svc *Service) BrowseCatalog(ctx context.Context, userID string) ([]ThemeCatalog, error) {
	themes, err := svc.catRepo.QueryAllThemes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying themes")
	}

	res := make([]ThemeCatalog, 0, len(themes))
	for _, thm := range themes {
		tc := ThemeCatalog{ID: thm.ID, Name: thm.Name}

		allCursus, err := svc.catRepo.QueryCursusByTheme(ctx, thm.ID)
		if err != nil {
			return nil, errors.Wrap(err, "querying cursus")
		}
		for _, cur := range allCursus {
			ci, err := svc.cursusInfo(ctx, userID, cur)
			if err != nil {
				return nil, err
			}
			tc.Cursus = append(tc.Cursus, ci)
		}
		res = append(res, tc)
	}
	return res, nil
}

func (svc *Service) cursusInfo(ctx context.Context, userID string, cur catalog.Cursus) (CursusInfo, error) {
	ci := CursusInfo{ID: cur.ID, Name: cur.Name, Price: cur.Price, AdjustedPrice: cur.Price}

	ownsCursus := false
	if userID != "" {
		var err error
		ownsCursus, err = svc.repo.UserOwnsCursus(ctx, userID, cur.ID)
		if err != nil {
			return CursusInfo{}, errors.Wrap(err, "checking cursus ownership")
		}
	}

	ownedIDs, err := svc.ownedLessonIDs(ctx, userID, cur.ID)
	if err != nil {
		return CursusInfo{}, err
	}

	lessons, err := svc.catRepo.QueryLessonsByCursus(ctx, cur.ID)
	if err != nil {
		return CursusInfo{}, errors.Wrap(err, "querying lessons")
	}

	remaining := decimal.Zero
	anyLeft := false
	ci.Lessons = make([]LessonInfo, 0, len(lessons))
	for _, lsn := range lessons {
		_, ownsLesson := ownedIDs[lsn.ID]
		ci.Lessons = append(ci.Lessons, newLessonInfo(lsn, ownsCursus || ownsLesson))
		if ownsLesson {
			continue
		}
		remaining = remaining.Add(lsn.Price)
		anyLeft = true
	}

	switch {
	case ownsCursus:
		ci.Purchased = true
		ci.AdjustedPrice = decimal.Zero
	case len(ownedIDs) > 0 && !anyLeft:
		// every lesson was bought piecemeal
		ci.Purchased = true
		ci.AdjustedPrice = decimal.Zero
	case len(ownedIDs) > 0:
		ci.AdjustedPrice = remaining
	}
	return ci, nil
}
