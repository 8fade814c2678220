package shared

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPClientFactory creates pooled HTTP clients with standardized
// timeout configuration. Clients are cached per timeout so every
// outbound surface (broker, feeds, notification APIs) shares pools.
type HTTPClientFactory struct {
	defaultTimeout time.Duration
	mutex          sync.RWMutex
	clients        map[string]*http.Client
}

// NewHTTPClientFactory creates a new HTTP client factory
func NewHTTPClientFactory(defaultTimeout time.Duration) *HTTPClientFactory {
	return &HTTPClientFactory{
		defaultTimeout: defaultTimeout,
		clients:        make(map[string]*http.Client),
	}
}

// Client returns an HTTP client with connection pooling for the given timeout
func (f *HTTPClientFactory) Client(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}

	clientKey := fmt.Sprintf("timeout_%d", timeout.Milliseconds())

	f.mutex.RLock()
	if client, exists := f.clients[clientKey]; exists {
		f.mutex.RUnlock()
		return client
	}
	f.mutex.RUnlock()

	client := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,

			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	f.mutex.Lock()
	f.clients[clientKey] = client
	f.mutex.Unlock()

	logrus.WithFields(logrus.Fields{
		"component": "HTTPClientFactory",
		"timeout":   timeout,
	}).Debug("Created new pooled HTTP client")

	return client
}

// SetBrowserLikeHeaders configures request headers the broker and the
// public feeds expect from a browser session.
func SetBrowserLikeHeaders(request *http.Request) {
	request.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	request.Header.Set("Accept", "application/json")
	request.Header.Set("Accept-Language", "en-US,en;q=0.9")
	request.Header.Set("Connection", "keep-alive")
}

// ExecuteRequestWithRetry executes an HTTP request with exponential
// backoff. Retries fire on network errors, 429 and 5xx statuses; any
// other 4xx is a terminal rejection that a retry cannot change.
func ExecuteRequestWithRetry(client *http.Client, request *http.Request, maxRetryAttempts int) (*http.Response, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "HTTPClientFactory",
		"method":    request.Method,
		"url":       request.URL.String(),
	})

	var response *http.Response
	var lastErr error

	for attempt := 0; attempt <= maxRetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			jitter := time.Duration(float64(backoff) * 0.1 * float64(attempt%3))
			logger.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"backoff": backoff + jitter,
			}).Debug("Retrying HTTP request after backoff")
			time.Sleep(backoff + jitter)
		}

		response, lastErr = client.Do(request)
		if lastErr == nil && response.StatusCode >= 200 && response.StatusCode < 300 {
			return response, nil
		}

		if lastErr != nil {
			lastErr = fmt.Errorf("attempt %d failed with network error: %w", attempt+1, lastErr)
		} else {
			statusErr := fmt.Errorf("attempt %d failed with HTTP %d: %s", attempt+1, response.StatusCode, http.StatusText(response.StatusCode))
			response.Body.Close()

			if response.StatusCode >= 400 && response.StatusCode < 500 && response.StatusCode != http.StatusTooManyRequests {
				logger.WithError(statusErr).Debug("HTTP request rejected, not retrying")
				return nil, fmt.Errorf("HTTP request rejected: %w", statusErr)
			}
			lastErr = statusErr
		}
		logger.WithError(lastErr).Debug("HTTP request failed")
	}

	totalAttempts := maxRetryAttempts + 1
	logger.WithField("total_attempts", totalAttempts).Error("HTTP request failed after all retry attempts")

	return nil, fmt.Errorf("HTTP request failed after %d attempts: %w", totalAttempts, lastErr)
}
