package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientFactoryReusesClientPerTimeout(t *testing.T) {
	factory := NewHTTPClientFactory(10 * time.Second)

	first := factory.Client(5 * time.Second)
	second := factory.Client(5 * time.Second)
	other := factory.Client(20 * time.Second)

	if first != second {
		t.Error("same timeout should return the same pooled client")
	}
	if first == other {
		t.Error("different timeouts should get separate clients")
	}
}

func TestClientFactoryFallsBackToDefaultTimeout(t *testing.T) {
	factory := NewHTTPClientFactory(10 * time.Second)

	if client := factory.Client(0); client.Timeout != 10*time.Second {
		t.Errorf("timeout = %v, want the factory default", client.Timeout)
	}
}

func TestExecuteRequestWithRetryRecoversFromTransientFailure(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	request, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	response, err := ExecuteRequestWithRetry(server.Client(), request, 1)
	if err != nil {
		t.Fatalf("ExecuteRequestWithRetry returned error: %v", err)
	}
	defer response.Body.Close()

	if attempts != 2 {
		t.Errorf("attempts = %d, want the retry to fire once", attempts)
	}
}

func TestExecuteRequestWithRetryExhaustsBudget(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	request, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ExecuteRequestWithRetry(server.Client(), request, 1); err == nil {
		t.Fatal("expected an error after exhausting the retry budget")
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want initial try plus one retry", attempts)
	}
}

func TestExecuteRequestWithRetryClientRejectionIsTerminal(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	request, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ExecuteRequestWithRetry(server.Client(), request, 3); err == nil {
		t.Fatal("expected an error for the rejected request")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want a 401 to stop the retry loop immediately", attempts)
	}
}

func TestExecuteRequestWithRetryTooManyRequestsIsRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	request, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	response, err := ExecuteRequestWithRetry(server.Client(), request, 1)
	if err != nil {
		t.Fatalf("ExecuteRequestWithRetry returned error: %v", err)
	}
	defer response.Body.Close()

	if attempts != 2 {
		t.Errorf("attempts = %d, want a 429 to be retried", attempts)
	}
}

func TestExecuteRequestWithRetryZeroBudgetSingleAttempt(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	request, err := http.NewRequest(http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ExecuteRequestWithRetry(server.Client(), request, 0); err == nil {
		t.Fatal("expected an error for the rejected request")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want exactly one with a zero budget", attempts)
	}
}
