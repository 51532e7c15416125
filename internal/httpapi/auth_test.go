package httpapi

import "testing"

func TestVerifyWebhookSecret(t *testing.T) {
	if err := verifyWebhookSecret("s3cret", "s3cret"); err != nil {
		t.Errorf("matching secret: err = %v", err)
	}
	if err := verifyWebhookSecret("wrong", "s3cret"); err == nil || err.status != 403 {
		t.Errorf("wrong secret: err = %v, want 403", err)
	}
	if err := verifyWebhookSecret("", "s3cret"); err == nil {
		t.Error("missing header must be rejected")
	}
	// An unset server secret rejects everything rather than letting all
	// requests through.
	if err := verifyWebhookSecret("", ""); err == nil {
		t.Error("empty configured secret must not authorize")
	}
}

func TestAuthorizeAdmin(t *testing.T) {
	cases := []struct {
		name       string
		header     string
		adminToken string
		wantStatus int
	}{
		{"valid", "Bearer tok", "tok", 0},
		{"missing header", "", "tok", 401},
		{"not bearer", "Basic dXNlcg==", "tok", 401},
		{"wrong token", "Bearer nope", "tok", 403},
		{"unset admin token", "Bearer tok", "", 403},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := authorizeAdmin(tc.header, tc.adminToken)
			if tc.wantStatus == 0 {
				if err != nil {
					t.Fatalf("err = %v, want nil", err)
				}
				return
			}
			if err == nil || err.status != tc.wantStatus {
				t.Fatalf("err = %v, want status %d", err, tc.wantStatus)
			}
		})
	}
}
