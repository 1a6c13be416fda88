package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// Payment statuses as reported by the gateway.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusCanceled = "canceled"
	PaymentStatusExpired  = "expired"
)

type (
	// PaymentRequest describes a checkout to be created on the gateway.
	PaymentRequest struct {
		OrderID       string
		Amount        decimal.Decimal
		Description   string
		CustomerName  string
		CustomerEmail string
	}

	// PaymentSession is a pending gateway transaction the customer is
	// redirected to in order to pay.
	PaymentSession struct {
		Token       string
		RedirectURL string
	}

	// PaymentService is any service that can charge customers.
	PaymentService interface {
		CreateTransaction(ctx context.Context, req PaymentRequest) (PaymentSession, error)
		// VerifyTransaction returns the authoritative status of a transaction;
		// gateway notifications are never trusted on their own.
		VerifyTransaction(ctx context.Context, orderID string) (string, error)
	}
)
