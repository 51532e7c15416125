package httpapi

import (
	"crypto/hmac"
	"strings"
)

type authError struct {
	status  int
	code    string
	message string
}

func (e *authError) Error() string {
	return e.message
}

// verifyWebhookSecret checks the shared secret Telegram echoes back in the
// X-Telegram-Bot-Api-Secret-Token header. Runs before any payload work.
func verifyWebhookSecret(header, secret string) *authError {
	if secret == "" || !hmac.Equal([]byte(header), []byte(secret)) {
		return &authError{status: 403, code: "forbidden", message: "invalid webhook secret token"}
	}
	return nil
}

func authorizeAdmin(authHeader, adminToken string) *authError {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return &authError{status: 401, code: "unauthorized", message: "missing or invalid bearer token"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return authorizeAdminToken(token, adminToken)
}

func authorizeAdminToken(token, adminToken string) *authError {
	if adminToken == "" || !hmac.Equal([]byte(token), []byte(adminToken)) {
		return &authError{status: 403, code: "forbidden", message: "invalid admin token"}
	}
	return nil
}
