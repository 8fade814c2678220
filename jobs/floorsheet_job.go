package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prabeshd/ipo-applier/services"
)

// FloorsheetJob loads the previous trading day's floorsheet into the
// database. The fetch is resumable, so re-runs after a partial failure
// only pull missing pages.
type FloorsheetJob struct {
	Floorsheets *services.FloorsheetService
}

func NewFloorsheetJob(floorsheets *services.FloorsheetService) *FloorsheetJob {
	return &FloorsheetJob{Floorsheets: floorsheets}
}

func (j *FloorsheetJob) Run() {
	logrus.Info("Starting Floorsheet Job")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Minute)
	defer cancel()

	// The feed publishes trades after market close, so the job pulls
	// yesterday rather than today.
	date := time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	if err := j.Floorsheets.FetchDate(ctx, date); err != nil {
		logrus.Errorf("Failed to run Floorsheet Job for %s: %v", date, err)
		return
	}

	logrus.WithField("date", date).Info("Completed Floorsheet Job")
}
