package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prabeshd/ipo-applier/meroshare"
	"github.com/prabeshd/ipo-applier/models"
	"github.com/prabeshd/ipo-applier/shared"
)

// BrokerClient is the broker surface the application flow needs. The
// meroshare package implements it; tests substitute a fake.
type BrokerClient interface {
	Login(ctx context.Context, clientID, username, password string) (models.AuthSession, error)
	FetchApplicableIssues(ctx context.Context, session models.AuthSession) ([]byte, error)
	GetOwnDetails(ctx context.Context, session models.AuthSession) (models.OwnDetails, error)
	ListBankIDs(ctx context.Context, session models.AuthSession) ([]string, error)
	GetAccountDetails(ctx context.Context, session models.AuthSession, bankID string) (models.BankAccountDetails, error)
	GetReservedQuantity(ctx context.Context, session models.AuthSession, demat, companyShareID string) (models.ReservedQuantity, error)
	SubmitApplication(ctx context.Context, session models.AuthSession, application models.ApplicationRequest) (string, error)
}

// defaultKitta is applied when neither the message nor the directory
// row names a quantity.
const defaultKitta = "10"

// ApplicationService builds and submits one application per
// person/issue pair, handling quantity resolution, reserved-share
// lookups and bank fallback.
type ApplicationService struct {
	broker  BrokerClient
	metrics *shared.ServiceMetrics
}

// NewApplicationService creates an application service on top of the
// given broker client.
func NewApplicationService(broker BrokerClient) *ApplicationService {
	return &ApplicationService{
		broker:  broker,
		metrics: shared.NewServiceMetrics("ApplicationService"),
	}
}

// Metrics exposes the service's request metrics.
func (s *ApplicationService) Metrics() *shared.ServiceMetrics {
	return s.metrics
}

// Apply submits one application for the given person and issue using an
// already-established session. messageKitta, when non-empty, overrides
// the directory row's quantity, which in turn overrides the default.
// For reserved issues the broker-reported reserved quantity overrides
// everything. Linked banks are tried in broker order; the first
// accepted submission wins.
func (s *ApplicationService) Apply(ctx context.Context, session models.AuthSession, person models.KnownPerson, issue models.ApplicableIssue, messageKitta string) (models.ApplicationResult, error) {
	start := time.Now()
	logger := logrus.WithFields(logrus.Fields{
		"service": "ApplicationService",
		"person":  person.Name,
		"scrip":   issue.Scrip,
	})

	appliedKitta := defaultKitta
	if person.AppliedKitta != "" {
		appliedKitta = person.AppliedKitta
	}
	if messageKitta != "" {
		appliedKitta = messageKitta
		logger.WithField("kitta", appliedKitta).Debug("Using quantity from message")
	} else {
		logger.WithField("kitta", appliedKitta).Debug("Using quantity from directory row")
	}

	// Demat and BOID come from the live account record, not the static
	// directory row.
	ownDetails, err := s.broker.GetOwnDetails(ctx, session)
	if err != nil {
		s.metrics.RecordRequest(false, time.Since(start))
		return models.ApplicationResult{}, shared.WrapError(err, shared.ErrorCategorySubmission, "OWN_DETAILS_FAILED", "Apply", shared.IsRetryableError(err))
	}

	shareCriteriaID := ""
	if issue.ShareTypeName == models.ShareTypeReserved {
		reserved, err := s.broker.GetReservedQuantity(ctx, session, ownDetails.Demat, issue.CompanyShareID.String())
		if err != nil {
			// A failed lookup falls back to the requested quantity; the
			// broker rejects it if the quantity is wrong for the
			// reservation.
			logger.WithError(err).Warn("Reserved quantity lookup failed, submitting requested quantity")
		} else {
			appliedKitta = reserved.ReservedQuantity
			shareCriteriaID = reserved.ShareCriteriaID
			logger.WithFields(logrus.Fields{
				"reserved_kitta":    appliedKitta,
				"share_criteria_id": shareCriteriaID,
			}).Info("Using broker-reported reserved quantity")
		}
	}

	bankIDs, err := s.broker.ListBankIDs(ctx, session)
	if err != nil {
		s.metrics.RecordRequest(false, time.Since(start))
		return models.ApplicationResult{}, shared.WrapError(err, shared.ErrorCategorySubmission, "BANK_LIST_FAILED", "Apply", shared.IsRetryableError(err))
	}
	if len(bankIDs) == 0 {
		s.metrics.RecordRequest(false, time.Since(start))
		return models.ApplicationResult{}, meroshare.ErrNoBanks
	}

	var lastErr error
	lastBankID := ""
	for _, bankID := range bankIDs {
		lastBankID = bankID

		account, err := s.broker.GetAccountDetails(ctx, session, bankID)
		if err != nil {
			logger.WithError(err).WithField("bank_id", bankID).Warn("Account details fetch failed, trying next bank")
			lastErr = err
			continue
		}

		application := models.ApplicationRequest{
			Demat:           ownDetails.Demat,
			BOID:            ownDetails.BOID,
			AccountNumber:   account.AccountNumber,
			CustomerID:      account.CustomerID,
			AccountBranchID: account.AccountBranchID,
			AccountTypeID:   account.AccountTypeID,
			AppliedKitta:    appliedKitta,
			CRNNumber:       person.CRNNumber,
			TransactionPIN:  person.TransactionPIN,
			CompanyShareID:  issue.CompanyShareID.String(),
			BankID:          bankID,
			ShareCriteriaID: shareCriteriaID,
		}

		message, err := s.broker.SubmitApplication(ctx, session, application)
		if err != nil {
			logger.WithError(err).WithField("bank_id", bankID).Warn("Submission rejected, trying next bank")
			lastErr = err
			continue
		}

		s.metrics.RecordRequest(true, time.Since(start))
		s.metrics.IncrementCounter("applications_submitted")
		logger.WithFields(logrus.Fields{
			"bank_id": bankID,
			"kitta":   appliedKitta,
		}).Info("Application submitted")

		return models.ApplicationResult{
			Scrip:        issue.Scrip,
			CompanyName:  issue.CompanyName,
			BankID:       bankID,
			AppliedKitta: appliedKitta,
			Message:      message,
		}, nil
	}

	s.metrics.RecordRequest(false, time.Since(start))
	return models.ApplicationResult{}, fmt.Errorf("application failed for all %d linked banks, last bank %s: %w", len(bankIDs), lastBankID, lastErr)
}

// LoginWithRetry authenticates a person's account, retrying only
// network-class failures with exponential backoff. Rejected credentials
// fail immediately; hammering the broker with a bad password locks the
// account.
func (s *ApplicationService) LoginWithRetry(ctx context.Context, person models.KnownPerson, maxAttempts int) (models.AuthSession, error) {
	logger := logrus.WithFields(logrus.Fields{
		"service": "ApplicationService",
		"person":  person.Name,
	})

	retryDelay := 5 * time.Second
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		session, err := s.broker.Login(ctx, person.ClientID, person.Username, person.Password)
		if err == nil {
			return session, nil
		}
		lastErr = err

		authErr, ok := meroshare.AsAuthError(err)
		if ok && !authErr.Retryable() {
			logger.WithField("reason", authErr.Reason).Warn("Login rejected, not retrying")
			return models.AuthSession{}, err
		}

		if attempt < maxAttempts {
			logger.WithError(err).WithFields(logrus.Fields{
				"attempt":     attempt,
				"retry_delay": retryDelay,
			}).Warn("Login failed, retrying")

			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return models.AuthSession{}, ctx.Err()
			}
			retryDelay *= 2
		}
	}

	return models.AuthSession{}, fmt.Errorf("login failed after %d attempts: %w", maxAttempts, lastErr)
}
