package paymentsvc

import (
	"context"
	"sync"

	"github.com/knowledgelearning/backend/core"
)

// DummyService fakes a payment gateway. Every created transaction starts
// pending; tests settle or void it with SetStatus.
type DummyService struct {
	mu       sync.Mutex
	statuses map[string]string
}

var _ core.PaymentService = (*DummyService)(nil)

func NewDummyService() *DummyService {
	return &DummyService{statuses: make(map[string]string)}
}

func (svc *DummyService) CreateTransaction(ctx context.Context, req core.PaymentRequest) (core.PaymentSession, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.statuses[req.OrderID] = core.PaymentStatusPending
	return core.PaymentSession{
		Token:       "dummy-" + req.OrderID,
		RedirectURL: "https://payment.invalid/pay/" + req.OrderID,
	}, nil
}

func (svc *DummyService) VerifyTransaction(ctx context.Context, orderID string) (string, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if status, ok := svc.statuses[orderID]; ok {
		return status, nil
	}
	return core.PaymentStatusPending, nil
}

func (svc *DummyService) SetStatus(orderID, status string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.statuses[orderID] = status
}
