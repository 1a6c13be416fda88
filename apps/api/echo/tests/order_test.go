package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/knowledgelearning/backend/core"
	"github.com/knowledgelearning/backend/core/order"
	"github.com/knowledgelearning/backend/core/user"
)

func Test_orderApi_checkoutAndConfirm(t *testing.T) {
	env := setup(t)
	fix := env.seedCatalog(t)

	client := env.createUser(t, "Jean Dupont", "jdupont", "jean@test.fr", "password123", user.RoleClient, true)
	token := getToken(t, client)

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/orders/lessons/"+fix.guitarL1.ID)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusUnauthorized)
		}
	})

	var chk order.Checkout
	t.Run("Checkout lesson", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/lessons/"+fix.guitarL1.ID, token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &chk); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if chk.OrderID == "" || chk.Token == "" || chk.RedirectURL == "" {
			t.Errorf("incomplete checkout: %+v", chk)
		}
		if !chk.Amount.Equal(decimal.NewFromInt(26)) {
			t.Errorf("amount = %v; want 26", chk.Amount)
		}
	})

	t.Run("Confirm while still pending", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/"+chk.OrderID+"/confirm", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusPaymentRequired {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusPaymentRequired)
		}
	})

	t.Run("Confirm someone else's order", func(t *testing.T) {
		other := env.createUser(t, "Other", "other", "other@test.fr", "password123", user.RoleClient, true)
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/"+chk.OrderID+"/confirm", getToken(t, other))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})

	var pur order.Purchase
	t.Run("Confirm once paid", func(t *testing.T) {
		env.paySvc.SetStatus(chk.OrderID, core.PaymentStatusPaid)

		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/"+chk.OrderID+"/confirm", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &pur); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if pur.Reference != chk.OrderID {
			t.Errorf("reference = %v; want %v", pur.Reference, chk.OrderID)
		}
	})

	t.Run("Confirm is idempotent", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/"+chk.OrderID+"/confirm", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var again order.Purchase
		if err := json.Unmarshal(rec.Body.Bytes(), &again); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if again.ID != pur.ID {
			t.Errorf("purchase ID = %v; want the original %v", again.ID, pur.ID)
		}
	})

	t.Run("Purchases list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/purchases", token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var purchases []order.Purchase
		if err := json.Unmarshal(rec.Body.Bytes(), &purchases); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(purchases) != 1 || purchases[0].ID != pur.ID {
			t.Errorf("purchases = %+v; want just %v", purchases, pur.ID)
		}
	})

	t.Run("Checkout an owned lesson", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/lessons/"+fix.guitarL1.ID, token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("Cursus checkout uses the adjusted price", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/orders/cursus/"+fix.guitarCur.ID, token)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		var curChk order.Checkout
		if err := json.Unmarshal(rec.Body.Bytes(), &curChk); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		// 50 minus the lesson already owned
		if !curChk.Amount.Equal(decimal.NewFromInt(24)) {
			t.Errorf("amount = %v; want 24", curChk.Amount)
		}
	})
}

func Test_orderApi_voidedPayment(t *testing.T) {
	env := setup(t)
	fix := env.seedCatalog(t)

	client := env.createUser(t, "Jean Dupont", "jdupont", "jean@test.fr", "password123", user.RoleClient, true)
	token := getToken(t, client)

	chk, err := env.ordSvc.CheckoutLesson(ctx(t), client, fix.guitarL1.ID)
	if err != nil {
		t.Fatalf("CheckoutLesson() failed: %v", err)
	}
	env.paySvc.SetStatus(chk.OrderID, core.PaymentStatusCanceled)

	req, rec := newAuthRequest(http.MethodPost, "/v1/orders/"+chk.OrderID+"/confirm", token)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
	}

	ord, err := env.ordSvc.GetOrder(ctx(t), client.ID, chk.OrderID)
	if err != nil {
		t.Fatalf("GetOrder() failed: %v", err)
	}
	if ord.Status != core.PaymentStatusCanceled {
		t.Errorf("status = %v; want %v", ord.Status, core.PaymentStatusCanceled)
	}
}

func Test_orderApi_webhook(t *testing.T) {
	env := setup(t)
	fix := env.seedCatalog(t)

	client := env.createUser(t, "Jean Dupont", "jdupont", "jean@test.fr", "password123", user.RoleClient, true)

	chk, err := env.ordSvc.CheckoutLesson(ctx(t), client, fix.guitarL1.ID)
	if err != nil {
		t.Fatalf("CheckoutLesson() failed: %v", err)
	}

	t.Run("Missing order_id", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/payments/webhook", marchallObj(t, map[string]string{}))
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})

	t.Run("Pending notification is absorbed", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"order_id": chk.OrderID})
		req, rec := newRequest(http.MethodPost, "/v1/payments/webhook", body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		if purchases, _ := env.ordSvc.Purchases(ctx(t), client.ID); len(purchases) != 0 {
			t.Error("a pending notification must not create a purchase")
		}
	})

	t.Run("Settlement notification records the purchase", func(t *testing.T) {
		env.paySvc.SetStatus(chk.OrderID, core.PaymentStatusPaid)

		body := marchallObj(t, map[string]string{"order_id": chk.OrderID})
		req, rec := newRequest(http.MethodPost, "/v1/payments/webhook", body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}

		purchases, err := env.ordSvc.Purchases(ctx(t), client.ID)
		if err != nil {
			t.Fatalf("Purchases() failed: %v", err)
		}
		if len(purchases) != 1 {
			t.Fatalf("purchases = %d; want 1", len(purchases))
		}
		if purchases[0].Reference != chk.OrderID {
			t.Errorf("reference = %v; want %v", purchases[0].Reference, chk.OrderID)
		}
	})

	t.Run("Replayed notification stays idempotent", func(t *testing.T) {
		body := marchallObj(t, map[string]string{"order_id": chk.OrderID})
		req, rec := newRequest(http.MethodPost, "/v1/payments/webhook", body)
		env.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; body = %v", rec.Code, rec.Body.String())
		}
		if purchases, _ := env.ordSvc.Purchases(ctx(t), client.ID); len(purchases) != 1 {
			t.Errorf("purchases = %d; want still 1", len(purchases))
		}
	})
}
