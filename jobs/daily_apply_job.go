package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prabeshd/ipo-applier/services"
)

// DailyApplyJob applies every directory person to every eligible open
// issue, gated by the public issue calendar so quiet days never touch
// the broker.
type DailyApplyJob struct {
	Calendar  *services.CalendarService
	Directory services.Directory
	Messages  *services.MessageService
	Notifier  services.Notifier
}

func NewDailyApplyJob(calendar *services.CalendarService, directory services.Directory, messages *services.MessageService, notifier services.Notifier) *DailyApplyJob {
	return &DailyApplyJob{
		Calendar:  calendar,
		Directory: directory,
		Messages:  messages,
		Notifier:  notifier,
	}
}

func (j *DailyApplyJob) Run() {
	logrus.Info("Starting Daily Apply Job")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	status, openFeeds := j.Calendar.CheckOpenIssues(ctx)
	switch status {
	case services.CalendarNothingOpen:
		logrus.Info("No open issues in any calendar feed, skipping daily apply")
		return
	case services.CalendarUnavailable:
		// An unreachable calendar is not evidence that nothing is open.
		// Proceed and let the broker's own issue list decide.
		logrus.Warn("Calendar feeds unavailable, proceeding with broker issue list")
	case services.CalendarOpen:
		logrus.WithField("open_feeds", openFeeds).Info("Open issues found in calendar feeds")
	}

	people, err := j.Directory.ListPeople(ctx)
	if err != nil {
		logrus.Errorf("Failed to run Daily Apply Job: failed to load directory: %v", err)
		if j.Notifier != nil {
			j.Notifier.Notify(ctx, "❌ Daily apply failed: could not load the credential directory")
		}
		return
	}

	logrus.Infof("Applying for %d directory people", len(people))

	successCount := 0
	failureCount := 0

	for i, person := range people {
		logrus.WithFields(logrus.Fields{
			"person_index": i + 1,
			"total_people": len(people),
			"person":       person.Name,
		}).Infof("Processing person %d/%d: %s", i+1, len(people), person.Name)

		result := j.Messages.BulkApply(ctx, person.Name)
		if result.Status != "success" {
			logrus.Errorf("Bulk apply failed for %s: %s", person.Name, result.Message)
			failureCount++
		} else {
			successCount++
		}

		// Space people out so the broker never sees a login burst.
		if i < len(people)-1 {
			time.Sleep(2 * time.Second)
		}
	}

	logrus.WithFields(logrus.Fields{
		"success_count": successCount,
		"failure_count": failureCount,
	}).Info("Completed Daily Apply Job")
}
