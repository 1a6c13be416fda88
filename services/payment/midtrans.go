package paymentsvc

import (
	"context"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/pkg/errors"

	"github.com/knowledgelearning/backend/core"
)

type midtransService struct {
	snapClient snap.Client
	apiClient  coreapi.Client
}

var _ core.PaymentService = (*midtransService)(nil)

func NewMidtransService(conf *core.Config) *midtransService {
	env := midtrans.Sandbox
	if conf.Midtrans.Production {
		env = midtrans.Production
	}

	svc := new(midtransService)
	svc.snapClient.New(conf.Midtrans.ServerKey, env)
	svc.apiClient.New(conf.Midtrans.ServerKey, env)
	return svc
}

func (svc *midtransService) CreateTransaction(ctx context.Context, req core.PaymentRequest) (core.PaymentSession, error) {
	// the gateway only takes integral amounts
	amount := req.Amount.Round(0).IntPart()

	sreq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.CustomerName,
			Email: req.CustomerEmail,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    req.OrderID,
				Price: amount,
				Qty:   1,
				Name:  req.Description,
			},
		},
	}

	resp, err := svc.snapClient.CreateTransaction(sreq)
	if err != nil {
		return core.PaymentSession{}, errors.Wrap(err, "creating snap transaction")
	}
	return core.PaymentSession{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

func (svc *midtransService) VerifyTransaction(ctx context.Context, orderID string) (string, error) {
	resp, err := svc.apiClient.CheckTransaction(orderID)
	if err != nil {
		return "", errors.Wrap(err, "checking transaction")
	}
	return mapTransactionStatus(resp.TransactionStatus), nil
}

func mapTransactionStatus(status string) string {
	switch status {
	case "capture", "settlement":
		return core.PaymentStatusPaid
	case "deny", "cancel":
		return core.PaymentStatusCanceled
	case "expire":
		return core.PaymentStatusExpired
	default:
		return core.PaymentStatusPending
	}
}
