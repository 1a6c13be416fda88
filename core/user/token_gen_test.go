package user

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	secretKey = []byte("secret")
	timeout := 3 * 24 * time.Hour

	now := time.Now()
	usr := User{
		ID:        "2c768727-e94f-4a05-b97c-e04eaa41cbd2",
		Name:      "T",
		Username:  "t",
		Email:     "t@test.test",
		Role:      RoleClient,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = usr.SetPassword("pwd")

	validToken := MakeToken(usr)

	// generate an expired token
	dayLate := timeout + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := MakeToken(usr)
	nowFunc = time.Now // reset

	// a token generated for another user must not verify
	other := usr
	other.ID = "e3cfr050-9f0f-45f1-a29a-0a69ee0050ae"
	otherToken := MakeToken(other)

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: ErrInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: ErrInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: ErrInvalidToken},
		{name: "another user's token", usr: usr, token: otherToken, wantErr: ErrInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: ErrTokenExpired},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyToken(tt.usr, tt.token, timeout); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenInvalidatedByUse(t *testing.T) {
	secretKey = []byte("secret")
	timeout := 3 * 24 * time.Hour

	usr := User{ID: "af2d4a35-ae99-4a2e-9ff1-c87c9cb28d11", Username: "t", Email: "t@test.test"}
	_ = usr.SetPassword("pwd")
	token := MakeToken(usr)

	if err := verifyToken(usr, token, timeout); err != nil {
		t.Fatalf("verifyToken() error = %v, want nil", err)
	}

	// logging in rotates LastLogin and must invalidate the token
	usr.LastLogin = time.Now()
	if err := verifyToken(usr, token, timeout); err != ErrInvalidToken {
		t.Errorf("verifyToken() error = %v, wantErr %v", err, ErrInvalidToken)
	}

	// so does a password change
	usr.LastLogin = time.Time{}
	_ = usr.SetPassword("new-pwd")
	if err := verifyToken(usr, token, timeout); err != ErrInvalidToken {
		t.Errorf("verifyToken() error = %v, wantErr %v", err, ErrInvalidToken)
	}
}
