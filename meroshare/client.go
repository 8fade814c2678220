package meroshare

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prabeshd/ipo-applier/models"
	"github.com/prabeshd/ipo-applier/shared"
)

// Client talks to the MeroShare web backend. Every authenticated call
// takes the AuthSession returned by Login; the client itself holds no
// credential state, so one instance serves any number of accounts.
type Client struct {
	baseURL     string
	httpFactory *shared.HTTPClientFactory
	rateLimiter *shared.RequestRateLimiter
	timeout     time.Duration
	maxRetries  int
	metrics     *shared.ServiceMetrics
}

// NewClient creates a broker client for the given backend base URL.
func NewClient(baseURL string, timeout time.Duration, maxRetries int) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpFactory: shared.NewHTTPClientFactory(timeout),
		rateLimiter: shared.NewRequestRateLimiter(500 * time.Millisecond),
		timeout:     timeout,
		maxRetries:  maxRetries,
		metrics:     shared.NewServiceMetrics("MeroShareClient"),
	}
}

// Metrics exposes the client's request metrics.
func (c *Client) Metrics() *shared.ServiceMetrics {
	return c.metrics
}

// Login authenticates one account and returns the session the remaining
// calls need. Login is never retried on a rejected credential; only the
// caller decides whether a network-class AuthError is worth another try.
func (c *Client) Login(ctx context.Context, clientID, username, password string) (models.AuthSession, error) {
	start := time.Now()
	logger := logrus.WithFields(logrus.Fields{
		"service":   "MeroShareClient",
		"operation": "Login",
		"username":  username,
	})

	payload, err := json.Marshal(map[string]string{
		"clientId": clientID,
		"username": username,
		"password": password,
	})
	if err != nil {
		return models.AuthSession{}, fmt.Errorf("failed to encode login payload: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/", bytes.NewReader(payload))
	if err != nil {
		return models.AuthSession{}, fmt.Errorf("failed to create login request: %w", err)
	}
	shared.SetBrowserLikeHeaders(request)
	request.Header.Set("Content-Type", "application/json")

	c.rateLimiter.Wait()
	response, err := c.httpFactory.Client(c.timeout).Do(request)
	if err != nil {
		c.metrics.RecordRequest(false, time.Since(start))
		return models.AuthSession{}, &AuthError{Reason: ReasonNetwork, Message: "could not reach broker", Cause: err}
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		c.metrics.RecordRequest(false, time.Since(start))
		body, _ := io.ReadAll(io.LimitReader(response.Body, 1<<16))
		authErr := classifyLoginFailure(response.StatusCode, body)
		logger.WithFields(logrus.Fields{
			"status": response.StatusCode,
			"reason": authErr.Reason,
		}).Warn("Login rejected by broker")
		return models.AuthSession{}, authErr
	}

	token := response.Header.Get("Authorization")
	if token == "" {
		c.metrics.RecordRequest(false, time.Since(start))
		return models.AuthSession{}, &AuthError{Reason: ReasonNetwork, Message: "broker returned no authorization token"}
	}

	session := models.AuthSession{Token: token}
	for _, cookie := range response.Cookies() {
		session.Cookies = append(session.Cookies, cookie.Name+"="+cookie.Value)
	}

	c.metrics.RecordRequest(true, time.Since(start))
	logger.Info("Login succeeded")
	return session, nil
}

// classifyLoginFailure maps the broker's rejection message to a closed
// failure reason. Unknown rejections count as invalid credentials, since
// retrying them would only lock the account faster.
func classifyLoginFailure(statusCode int, body []byte) *AuthError {
	var envelope struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &envelope)
	message := envelope.Message
	lowered := strings.ToLower(message)

	switch {
	case strings.Contains(lowered, "password") && strings.Contains(lowered, "expire"):
		return &AuthError{Reason: ReasonPasswordExpired, Message: message}
	case strings.Contains(lowered, "demat") && strings.Contains(lowered, "expire"):
		return &AuthError{Reason: ReasonDematExpired, Message: message}
	case strings.Contains(lowered, "account") && strings.Contains(lowered, "expire"):
		return &AuthError{Reason: ReasonAccountExpired, Message: message}
	case statusCode >= 500:
		return &AuthError{Reason: ReasonNetwork, Message: message}
	default:
		return &AuthError{Reason: ReasonInvalidCredentials, Message: message}
	}
}

// FetchApplicableIssues returns the broker's applicable issue response
// as raw JSON. The broker has shipped several envelope shapes over time,
// so normalization is left to the caller. A transport failure yields
// ErrIssuesUnavailable, which is not the same as an empty list.
func (c *Client) FetchApplicableIssues(ctx context.Context, session models.AuthSession) ([]byte, error) {
	payload := map[string]interface{}{
		"filterFieldParams": []map[string]string{
			{"key": "companyIssue.companyISIN.script", "alias": "Scrip"},
			{"key": "companyIssue.companyISIN.company.name", "alias": "Company Name"},
		},
		"page":                    1,
		"size":                    200,
		"searchRoleViewConstants": "VIEW_APPLICABLE_SHARE",
		"filterDateParams": []map[string]string{
			{"key": "minIssueOpenDate", "condition": "", "alias": "", "value": ""},
			{"key": "maxIssueCloseDate", "condition": "", "alias": "", "value": ""},
		},
	}

	body, err := c.doAuthenticated(ctx, session, http.MethodPost, "/companyShare/applicableIssue/", payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIssuesUnavailable, err)
	}
	return body, nil
}

// GetOwnDetails fetches the account holder's demat and BOID. These are
// read fresh per application rather than cached, because the broker
// occasionally remaps demat accounts.
func (c *Client) GetOwnDetails(ctx context.Context, session models.AuthSession) (models.OwnDetails, error) {
	body, err := c.doAuthenticated(ctx, session, http.MethodGet, "/ownDetail/", nil)
	if err != nil {
		return models.OwnDetails{}, fmt.Errorf("failed to fetch own details: %w", err)
	}

	var raw struct {
		Demat string `json:"demat"`
		BOID  string `json:"boid"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.OwnDetails{}, fmt.Errorf("failed to decode own details: %w", err)
	}

	return models.OwnDetails{Demat: raw.Demat, BOID: raw.BOID, Name: raw.Name}, nil
}

// ListBankIDs returns the account's linked bank identifiers in the order
// the broker lists them. Submission falls back through them in this
// order when a bank rejects the application.
func (c *Client) ListBankIDs(ctx context.Context, session models.AuthSession) ([]string, error) {
	body, err := c.doAuthenticated(ctx, session, http.MethodGet, "/bank/", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bank list: %w", err)
	}

	var banks []struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(body, &banks); err != nil {
		return nil, fmt.Errorf("failed to decode bank list: %w", err)
	}

	ids := make([]string, 0, len(banks))
	for _, bank := range banks {
		ids = append(ids, bank.ID.String())
	}
	return ids, nil
}

// GetAccountDetails fetches the bank account attributes needed on the
// application form for one linked bank.
func (c *Client) GetAccountDetails(ctx context.Context, session models.AuthSession, bankID string) (models.BankAccountDetails, error) {
	body, err := c.doAuthenticated(ctx, session, http.MethodGet, "/bank/"+bankID, nil)
	if err != nil {
		return models.BankAccountDetails{}, fmt.Errorf("failed to fetch account details for bank %s: %w", bankID, err)
	}

	type bankDetail struct {
		AccountNumber   string      `json:"accountNumber"`
		AccountBranchID json.Number `json:"accountBranchId"`
		AccountTypeID   json.Number `json:"accountTypeId"`
		CustomerID      json.Number `json:"id"`
	}

	// The endpoint has returned both a bare object and a one-element
	// array depending on backend version.
	var detail bankDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		var details []bankDetail
		if arrErr := json.Unmarshal(body, &details); arrErr != nil || len(details) == 0 {
			return models.BankAccountDetails{}, fmt.Errorf("failed to decode account details for bank %s: %w", bankID, err)
		}
		detail = details[0]
	}

	return models.BankAccountDetails{
		AccountNumber:   detail.AccountNumber,
		AccountBranchID: detail.AccountBranchID.String(),
		AccountTypeID:   detail.AccountTypeID.String(),
		CustomerID:      detail.CustomerID.String(),
	}, nil
}

// GetReservedQuantity looks up the reserved allocation for one demat on
// a reserved-type issue. Reserved issues must be applied with exactly
// this quantity and criteria, not the requested kitta.
func (c *Client) GetReservedQuantity(ctx context.Context, session models.AuthSession, demat, companyShareID string) (models.ReservedQuantity, error) {
	payload := map[string]string{
		"boid":           demat,
		"companyShareId": companyShareID,
	}

	body, err := c.doAuthenticated(ctx, session, http.MethodPost, "/applicantForm/customerType/", payload)
	if err != nil {
		return models.ReservedQuantity{}, fmt.Errorf("failed to fetch reserved quantity: %w", err)
	}

	var raw struct {
		Quantity        json.Number `json:"quantity"`
		ShareCriteriaID json.Number `json:"shareCriteriaId"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.ReservedQuantity{}, fmt.Errorf("failed to decode reserved quantity: %w", err)
	}

	return models.ReservedQuantity{
		ReservedQuantity: raw.Quantity.String(),
		ShareCriteriaID:  raw.ShareCriteriaID.String(),
	}, nil
}

// SubmitApplication submits one application form and returns the
// broker's confirmation message.
func (c *Client) SubmitApplication(ctx context.Context, session models.AuthSession, application models.ApplicationRequest) (string, error) {
	// A rejected form must not be resubmitted; bank fallback in the
	// orchestration layer owns recovery.
	body, err := c.doAuthenticatedWithRetries(ctx, session, http.MethodPost, "/applicantForm/share/apply", application, 0)
	if err != nil {
		return "", fmt.Errorf("application submission failed: %w", err)
	}

	var raw struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &raw); err != nil || raw.Message == "" {
		return "submitted", nil
	}
	return raw.Message, nil
}

// doAuthenticated performs one request with session headers, retry and
// rate limiting, and returns the raw response body.
func (c *Client) doAuthenticated(ctx context.Context, session models.AuthSession, method, path string, payload interface{}) ([]byte, error) {
	return c.doAuthenticatedWithRetries(ctx, session, method, path, payload, c.maxRetries)
}

func (c *Client) doAuthenticatedWithRetries(ctx context.Context, session models.AuthSession, method, path string, payload interface{}, maxRetries int) ([]byte, error) {
	if !session.Valid() {
		return nil, shared.NewServiceError(shared.ErrorCategoryAuthentication, "SESSION_INVALID",
			"broker session has no token", "doAuthenticated", false, nil)
	}

	var bodyReader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request payload: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", path, err)
	}

	shared.SetBrowserLikeHeaders(request)
	request.Header.Set("Authorization", session.Token)
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range session.Cookies {
		request.Header.Add("Cookie", cookie)
	}

	start := time.Now()
	c.rateLimiter.Wait()
	response, err := shared.ExecuteRequestWithRetry(c.httpFactory.Client(c.timeout), request, maxRetries)
	if err != nil {
		c.metrics.RecordRequest(false, time.Since(start))
		return nil, shared.WrapError(err, shared.ErrorCategoryNetwork, "BROKER_REQUEST_FAILED", "doAuthenticated", true)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		c.metrics.RecordRequest(false, time.Since(start))
		return nil, fmt.Errorf("failed to read response from %s: %w", path, err)
	}

	c.metrics.RecordRequest(true, time.Since(start))
	return body, nil
}
