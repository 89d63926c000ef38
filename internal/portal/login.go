package portal

import (
	"context"
	"errors"
	"fmt"

	"internlink/internal/gateway"
	"internlink/internal/models"
	"internlink/internal/normalize"
	"internlink/internal/session"
)

var ErrSuspended = errors.New("account suspended")

// Login authenticates against the backend and installs the account into the
// session. Suspended accounts authenticate but may not sign in.
func Login(ctx context.Context, gw *gateway.Client, sess *session.Session, email, password string, role models.Role) (models.Account, error) {
	res := gw.Login(ctx, email, password, string(role))
	if !res.OK {
		return models.Account{}, backendErr(res)
	}
	acct := normalize.Account(res.Object("user"))
	if acct.Status == models.AccountSuspended {
		return models.Account{}, fmt.Errorf("%w: %s", ErrSuspended, email)
	}
	sess.SetAccount(acct)
	return acct, nil
}

// Signup registers a new account and signs it in.
func Signup(ctx context.Context, gw *gateway.Client, sess *session.Session, payload map[string]any, password string) (models.Account, error) {
	body := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["password"] = password
	res := gw.Signup(ctx, body)
	if !res.OK {
		return models.Account{}, backendErr(res)
	}
	email, _ := payload["email"].(string)
	role, _ := payload["userType"].(string)
	return Login(ctx, gw, sess, email, password, models.Role(role))
}
