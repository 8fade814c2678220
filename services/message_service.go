package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/prabeshd/ipo-applier/meroshare"
	"github.com/prabeshd/ipo-applier/models"
)

// loginMaxAttempts bounds the login retry loop. Only network failures
// are retried; credential rejections stop immediately.
const loginMaxAttempts = 3

const usageMessage = "❌ Couldn't detect person or company.\n\n" +
	"Please send a message in this format:\n`[person] [company] [kitta]`\n\n" +
	"Example:\n`john abc 10`"

// MessageService ties the whole chat flow together: parse the message,
// resolve the person, log in, match the issue and apply, replying to
// the originating chat at every terminal state.
type MessageService struct {
	directory    Directory
	broker       BrokerClient
	applications *ApplicationService
	intents      *IntentService
	issues       *IssueService
	replier      ChatReplier
	notifier     Notifier
}

// NewMessageService wires the chat orchestration flow.
func NewMessageService(directory Directory, broker BrokerClient, applications *ApplicationService, intents *IntentService, issues *IssueService, replier ChatReplier, notifier Notifier) *MessageService {
	return &MessageService{
		directory:    directory,
		broker:       broker,
		applications: applications,
		intents:      intents,
		issues:       issues,
		replier:      replier,
		notifier:     notifier,
	}
}

// ProcessChatMessage handles one inbound chat message end to end. Every
// outcome, success or failure, is reported back to the chat; the
// returned error is for logging only.
func (s *MessageService) ProcessChatMessage(ctx context.Context, chatID, text string) error {
	logger := logrus.WithFields(logrus.Fields{
		"service":    "MessageService",
		"chat_id":    chatID,
		"request_id": uuid.NewString(),
	})

	people, err := s.directory.ListPeople(ctx)
	if err != nil {
		s.reply(ctx, chatID, "❌ Error: could not load the credential directory")
		return fmt.Errorf("directory load failed: %w", err)
	}

	knownNames := make([]string, 0, len(people))
	for _, person := range people {
		knownNames = append(knownNames, strings.ToLower(person.Name))
	}

	intent := s.intents.Extract(text, knownNames)
	if !intent.Actionable() {
		s.reply(ctx, chatID, usageMessage)
		return nil
	}

	person, found := FindPerson(people, intent.Person)
	if !found {
		s.reply(ctx, chatID, fmt.Sprintf("❌ No info found for %s.", intent.Person))
		return nil
	}

	logger = logger.WithFields(logrus.Fields{
		"person":  person.Name,
		"company": intent.Company,
		"kitta":   intent.Kitta,
	})
	logger.Info("Processing application intent")

	session, err := s.applications.LoginWithRetry(ctx, person, loginMaxAttempts)
	if err != nil {
		s.reply(ctx, chatID, loginFailureMessage(person.Name, err))
		return fmt.Errorf("login failed for %s: %w", person.Name, err)
	}

	rawIssues, err := s.broker.FetchApplicableIssues(ctx, session)
	if err != nil {
		s.reply(ctx, chatID, "❌ Could not fetch applicable issues from the broker. Please try again later.")
		return fmt.Errorf("issue fetch failed: %w", err)
	}

	allIssues, err := s.issues.Normalize(rawIssues)
	if err != nil {
		s.reply(ctx, chatID, "❌ Could not fetch applicable issues from the broker. Please try again later.")
		return fmt.Errorf("issue normalization failed: %w", err)
	}

	issue, matched := s.issues.FindByCompany(s.issues.Filter(allIssues), intent.Company)
	if !matched {
		// The eligibility filter drops already-applied issues, so the
		// already-filled state has to be detected on the unfiltered
		// list.
		if applied, ok := s.issues.FindByCompany(allIssues, intent.Company); ok && applied.AlreadyApplied() {
			s.reply(ctx, chatID, fmt.Sprintf("⚠️ Already filled IPO for %s (%s) for %s", applied.CompanyName, applied.Scrip, person.Name))
			return nil
		}
		s.reply(ctx, chatID, fmt.Sprintf("❌ No applicable issue found for %s", strings.ToUpper(intent.Company)))
		return nil
	}

	result, err := s.applications.Apply(ctx, session, person, issue, intent.Kitta)
	if err != nil {
		s.reply(ctx, chatID, fmt.Sprintf("❌ Error: %s", err))
		return fmt.Errorf("application failed: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"scrip":   result.Scrip,
		"bank_id": result.BankID,
	}).Info("Application submitted from chat")

	s.reply(ctx, chatID, fmt.Sprintf("✅ IPO applied successfully for %s in %s (%s)", person.Name, result.Scrip, result.CompanyName))
	return nil
}

// BulkApply applies one person to every eligible open issue. The
// summary is both returned and posted to the default notification
// channel.
func (s *MessageService) BulkApply(ctx context.Context, userName string) models.BulkApplyResult {
	logger := logrus.WithFields(logrus.Fields{
		"service":    "MessageService",
		"user_name":  userName,
		"request_id": uuid.NewString(),
	})

	result := models.BulkApplyResult{
		Status:        "error",
		AppliedIssues: []models.AppliedIssueSummary{},
		FailedIssues:  []models.FailedIssueSummary{},
	}

	people, err := s.directory.ListPeople(ctx)
	if err != nil {
		result.Message = fmt.Sprintf("Error: %s", err)
		return result
	}

	person, found := FindPerson(people, userName)
	if !found {
		result.Message = fmt.Sprintf("No info found for user: %s", userName)
		return result
	}

	session, err := s.applications.LoginWithRetry(ctx, person, loginMaxAttempts)
	if err != nil {
		result.Message = fmt.Sprintf("Error: %s", err)
		s.notify(ctx, fmt.Sprintf("❌ Error in bulk apply for %s: %s", userName, err))
		return result
	}

	// The broker-registered name, not the directory alias, goes on the
	// summary.
	cdscName := person.Name
	if ownDetails, err := s.broker.GetOwnDetails(ctx, session); err == nil && ownDetails.Name != "" {
		cdscName = ownDetails.Name
	}
	result.CDSCName = cdscName

	rawIssues, err := s.broker.FetchApplicableIssues(ctx, session)
	if err != nil {
		result.Message = fmt.Sprintf("Error: %s", err)
		s.notify(ctx, fmt.Sprintf("❌ Error in bulk apply for %s: %s", userName, err))
		return result
	}

	allIssues, err := s.issues.Normalize(rawIssues)
	if err != nil {
		result.Message = fmt.Sprintf("Error: %s", err)
		s.notify(ctx, fmt.Sprintf("❌ Error in bulk apply for %s: %s", userName, err))
		return result
	}

	eligible := s.issues.Filter(allIssues)
	if len(eligible) == 0 {
		logger.Info("No applicable issues found")
		s.notify(ctx, fmt.Sprintf("ℹ️ No applicable IPO issue found for %s.", cdscName))
		result.Status = "success"
		result.Message = "No applicable issues found"
		return result
	}

	for _, issue := range eligible {
		logger.WithFields(logrus.Fields{
			"scrip":   issue.Scrip,
			"company": issue.CompanyName,
		}).Info("Processing issue")

		applied, err := s.applications.Apply(ctx, session, person, issue, "")
		if err != nil {
			logger.WithError(err).WithField("scrip", issue.Scrip).Warn("Bulk application failed for issue")
			result.FailedIssues = append(result.FailedIssues, models.FailedIssueSummary{
				Company: issue.CompanyName,
				Scrip:   issue.Scrip,
				Reason:  err.Error(),
			})
			continue
		}

		result.AppliedIssues = append(result.AppliedIssues, models.AppliedIssueSummary{
			Company: applied.CompanyName,
			Scrip:   applied.Scrip,
			Result:  applied.Message,
		})
	}

	result.Status = "success"
	result.TotalApplied = len(result.AppliedIssues)
	result.TotalFailed = len(result.FailedIssues)
	result.Message = fmt.Sprintf("Processed %d successful applications and %d failures", result.TotalApplied, result.TotalFailed)

	s.notify(ctx, bulkSummaryMessage(cdscName, result))
	return result
}

// loginFailureMessage translates a login error into user-facing text.
func loginFailureMessage(personName string, err error) string {
	if authErr, ok := meroshare.AsAuthError(err); ok {
		switch authErr.Reason {
		case meroshare.ReasonInvalidCredentials:
			return fmt.Sprintf("❌ Login failed for %s: invalid credentials", personName)
		case meroshare.ReasonPasswordExpired:
			return fmt.Sprintf("❌ Login failed for %s: password has expired, please update it on MeroShare", personName)
		case meroshare.ReasonAccountExpired:
			return fmt.Sprintf("❌ Login failed for %s: account has expired, please renew it", personName)
		case meroshare.ReasonDematExpired:
			return fmt.Sprintf("❌ Login failed for %s: demat account has expired, please renew it", personName)
		case meroshare.ReasonNetwork:
			return fmt.Sprintf("❌ Login failed for %s: could not reach the broker, please try again later", personName)
		}
	}

	return fmt.Sprintf("❌ Error: %s", err)
}

// bulkSummaryMessage renders the completion notification for a bulk run.
func bulkSummaryMessage(cdscName string, result models.BulkApplyResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ IPO Application Complete for %s\n\n", cdscName)
	b.WriteString("📊 Results:\n")
	fmt.Fprintf(&b, "• Successfully Applied: %d\n", result.TotalApplied)
	fmt.Fprintf(&b, "• Failed Applications: %d\n\n", result.TotalFailed)

	if len(result.AppliedIssues) > 0 {
		b.WriteString("✅ Applied Issues:\n")
		for _, issue := range result.AppliedIssues {
			fmt.Fprintf(&b, "• %s - %s\n", issue.Scrip, issue.Company)
		}
	}

	if len(result.FailedIssues) > 0 {
		b.WriteString("\n❌ Failed Issues:\n")
		for _, issue := range result.FailedIssues {
			fmt.Fprintf(&b, "• %s - %s (%s)\n", issue.Scrip, issue.Company, issue.Reason)
		}
	}

	return b.String()
}

func (s *MessageService) reply(ctx context.Context, chatID, message string) {
	if s.replier == nil {
		return
	}
	if err := s.replier.SendTo(ctx, chatID, message); err != nil {
		logrus.WithError(err).WithField("chat_id", chatID).Error("Failed to send chat reply")
	}
}

func (s *MessageService) notify(ctx context.Context, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, message); err != nil {
		logrus.WithError(err).Error("Failed to send notification")
	}
}
