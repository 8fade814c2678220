package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/prabeshd/ipo-applier/models"
)

// ErrMalformedIssueResponse marks an issue response that is neither a
// bare array nor any known envelope shape. It is a data defect, not a
// transport failure, and is never retried.
var ErrMalformedIssueResponse = errors.New("issue response has no recognizable shape")

// issueEnvelopeKeys are the wrapper keys the broker has used across
// backend versions, tried in this order.
var issueEnvelopeKeys = []string{"object", "data", "content", "items", "results"}

// IssueService normalizes, filters and matches the broker's applicable
// issue responses.
type IssueService struct{}

// NewIssueService creates a new issue service.
func NewIssueService() *IssueService {
	return &IssueService{}
}

// Normalize turns a raw issue response into a flat issue list. The raw
// value may be a bare array or an object wrapping the array under one
// of several envelope keys. Non-mapping elements inside the array are
// dropped rather than failing the whole response. Anything else yields
// ErrMalformedIssueResponse so downstream logic only ever sees a
// uniform sequence.
func (s *IssueService) Normalize(raw []byte) ([]models.ApplicableIssue, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err == nil {
		return decodeIssueElements(elements), nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, ErrMalformedIssueResponse
	}

	for _, key := range issueEnvelopeKeys {
		wrapped, exists := envelope[key]
		if !exists {
			continue
		}
		if err := json.Unmarshal(wrapped, &elements); err != nil {
			return nil, ErrMalformedIssueResponse
		}
		issues := decodeIssueElements(elements)
		logrus.WithFields(logrus.Fields{
			"service":      "IssueService",
			"envelope_key": key,
			"issue_count":  len(issues),
		}).Debug("Unwrapped issue response envelope")
		return issues, nil
	}

	keys := make([]string, 0, len(envelope))
	for key := range envelope {
		keys = append(keys, key)
	}
	logrus.WithFields(logrus.Fields{
		"service":       "IssueService",
		"envelope_keys": keys,
	}).Warn("Issue response has no recognizable envelope key")

	return nil, ErrMalformedIssueResponse
}

// decodeIssueElements unmarshals each array element on its own, keeping
// only the ones that are issue mappings. The broker has been seen mixing
// pagination counters and nulls into the array.
func decodeIssueElements(elements []json.RawMessage) []models.ApplicableIssue {
	issues := make([]models.ApplicableIssue, 0, len(elements))
	dropped := 0
	for _, element := range elements {
		trimmed := bytes.TrimSpace(element)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			dropped++
			continue
		}

		var issue models.ApplicableIssue
		if err := json.Unmarshal(trimmed, &issue); err != nil {
			dropped++
			continue
		}
		issues = append(issues, issue)
	}

	if dropped > 0 {
		logrus.WithFields(logrus.Fields{
			"service":       "IssueService",
			"dropped_count": dropped,
		}).Warn("Dropped non-mapping elements from issue response")
	}

	return issues
}

// Filter keeps only the issues this system may apply to: ordinary
// shares, approved status, an applicable share type, and not already
// applied for. Relative order is preserved and the filter is
// idempotent.
func (s *IssueService) Filter(issues []models.ApplicableIssue) []models.ApplicableIssue {
	filtered := make([]models.ApplicableIssue, 0, len(issues))
	for _, issue := range issues {
		if issue.Eligible() {
			filtered = append(filtered, issue)
		}
	}
	return filtered
}

// FindByCompany returns the first issue whose scrip or company name
// contains the query as a case-insensitive substring. Unlike person
// matching, this is one-directional and has no fuzzy fallback: a scrip
// is short and exact enough that edit-distance guesses would apply to
// the wrong company.
func (s *IssueService) FindByCompany(issues []models.ApplicableIssue, companyQuery string) (models.ApplicableIssue, bool) {
	query := strings.ToLower(companyQuery)

	for _, issue := range issues {
		scrip := strings.ToLower(issue.Scrip)
		companyName := strings.ToLower(issue.CompanyName)

		if strings.Contains(scrip, query) || strings.Contains(companyName, query) {
			return issue, true
		}
	}

	return models.ApplicableIssue{}, false
}
