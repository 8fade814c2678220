package meroshare

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prabeshd/ipo-applier/models"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, 5*time.Second, 0)
}

func testSession() models.AuthSession {
	return models.AuthSession{Token: "test-token"}
}

func TestLoginSuccess(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		http.SetCookie(w, &http.Cookie{Name: "XSRF-TOKEN", Value: "abc123"})
		w.Header().Set("Authorization", "eyJhbGciOi.payload.sig")
		w.WriteHeader(http.StatusOK)
	}))

	session, err := client.Login(context.Background(), "128", "00123456", "secret")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if session.Token != "eyJhbGciOi.payload.sig" {
		t.Errorf("token = %q, want the Authorization header value", session.Token)
	}
	if len(session.Cookies) != 1 || session.Cookies[0] != "XSRF-TOKEN=abc123" {
		t.Errorf("cookies = %v, want [XSRF-TOKEN=abc123]", session.Cookies)
	}
}

func TestLoginRejectionClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason AuthFailureReason
	}{
		{
			name:       "wrong password",
			status:     http.StatusUnauthorized,
			body:       `{"message":"Invalid username or password."}`,
			wantReason: ReasonInvalidCredentials,
		},
		{
			name:       "password expired",
			status:     http.StatusUnauthorized,
			body:       `{"message":"Your password has expired, please change it."}`,
			wantReason: ReasonPasswordExpired,
		},
		{
			name:       "demat expired",
			status:     http.StatusUnauthorized,
			body:       `{"message":"Your demat account has expired."}`,
			wantReason: ReasonDematExpired,
		},
		{
			name:       "account expired",
			status:     http.StatusUnauthorized,
			body:       `{"message":"Your account has expired, please renew."}`,
			wantReason: ReasonAccountExpired,
		},
		{
			name:       "broker outage",
			status:     http.StatusBadGateway,
			body:       `{"message":"Bad Gateway"}`,
			wantReason: ReasonNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := client.Login(context.Background(), "128", "00123456", "secret")
			authErr, ok := AsAuthError(err)
			if !ok {
				t.Fatalf("error = %v, want an AuthError", err)
			}
			if authErr.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", authErr.Reason, tt.wantReason)
			}
			if wantRetryable := tt.wantReason == ReasonNetwork; authErr.Retryable() != wantRetryable {
				t.Errorf("retryable = %v, want %v", authErr.Retryable(), wantRetryable)
			}
		})
	}
}

func TestLoginUnreachableBroker(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client := NewClient(server.URL, 2*time.Second, 0)
	server.Close()

	_, err := client.Login(context.Background(), "128", "00123456", "secret")
	authErr, ok := AsAuthError(err)
	if !ok {
		t.Fatalf("error = %v, want an AuthError", err)
	}
	if authErr.Reason != ReasonNetwork || !authErr.Retryable() {
		t.Errorf("reason = %q retryable = %v, want retryable network failure", authErr.Reason, authErr.Retryable())
	}
}

func TestFetchApplicableIssuesUnavailable(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.FetchApplicableIssues(context.Background(), testSession())
	if !errors.Is(err, ErrIssuesUnavailable) {
		t.Errorf("error = %v, want ErrIssuesUnavailable", err)
	}
}

func TestFetchApplicableIssuesReturnsRawBody(t *testing.T) {
	const body = `{"object":[{"scrip":"URJA"}]}`
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "test-token" {
			t.Errorf("Authorization = %q, want session token", got)
		}
		w.Write([]byte(body))
	}))

	raw, err := client.FetchApplicableIssues(context.Background(), testSession())
	if err != nil {
		t.Fatalf("FetchApplicableIssues returned error: %v", err)
	}
	if string(raw) != body {
		t.Errorf("raw body = %q, want it passed through untouched", raw)
	}
}

func TestListBankIDsNumericIDs(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":44,"name":"Bank A"},{"id":7,"name":"Bank B"}]`))
	}))

	ids, err := client.ListBankIDs(context.Background(), testSession())
	if err != nil {
		t.Fatalf("ListBankIDs returned error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "44" || ids[1] != "7" {
		t.Errorf("ids = %v, want [44 7] in broker order", ids)
	}
}

func TestGetAccountDetailsObjectAndArrayShapes(t *testing.T) {
	bodies := []string{
		`{"accountNumber":"0012345678","accountBranchId":77,"accountTypeId":1,"id":9001}`,
		`[{"accountNumber":"0012345678","accountBranchId":77,"accountTypeId":1,"id":9001}]`,
	}

	for _, body := range bodies {
		body := body
		client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))

		details, err := client.GetAccountDetails(context.Background(), testSession(), "44")
		if err != nil {
			t.Fatalf("GetAccountDetails(%s) returned error: %v", body, err)
		}
		if details.AccountNumber != "0012345678" || details.AccountBranchID != "77" || details.CustomerID != "9001" {
			t.Errorf("details = %+v, want decoded account fields", details)
		}
	}
}

func TestGetReservedQuantity(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quantity":35,"shareCriteriaId":7}`))
	}))

	reserved, err := client.GetReservedQuantity(context.Background(), testSession(), "1301230000123456", "617")
	if err != nil {
		t.Fatalf("GetReservedQuantity returned error: %v", err)
	}
	if reserved.ReservedQuantity != "35" || reserved.ShareCriteriaID != "7" {
		t.Errorf("reserved = %+v, want quantity 35 criteria 7", reserved)
	}
}

func TestSubmitApplicationNotRetriedOnRejection(t *testing.T) {
	attempts := 0
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"message":"Application already exists."}`))
	}))
	// A non-zero retry budget on other calls must not leak into apply.
	client.maxRetries = 3

	_, err := client.SubmitApplication(context.Background(), testSession(), models.ApplicationRequest{BankID: "44"})
	if err == nil {
		t.Fatal("SubmitApplication should surface the rejection")
	}
	if attempts != 1 {
		t.Errorf("broker saw %d submissions, want exactly 1", attempts)
	}
}

func TestSubmitApplicationDefaultsMessage(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	message, err := client.SubmitApplication(context.Background(), testSession(), models.ApplicationRequest{BankID: "44"})
	if err != nil {
		t.Fatalf("SubmitApplication returned error: %v", err)
	}
	if message != "submitted" {
		t.Errorf("message = %q, want the default confirmation", message)
	}
}

func TestAuthenticatedCallRequiresSession(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("broker must not be called without a session token")
	}))

	if _, err := client.GetOwnDetails(context.Background(), models.AuthSession{}); err == nil {
		t.Error("expected an error for an empty session")
	}
}
