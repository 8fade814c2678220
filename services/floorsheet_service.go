package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prabeshd/ipo-applier/models"
	"github.com/prabeshd/ipo-applier/shared"
)

// floorsheetPage is one page of the floorsheet-by-date feed.
type floorsheetPage struct {
	Data     []models.FloorsheetEntry `json:"data"`
	LastPage int                      `json:"last_page"`
}

// FloorsheetService pulls daily trade data from the public floorsheet
// feed into Postgres. Runs are resumable: dates whose stored row count
// looks complete are skipped, and partially loaded dates continue from
// the first missing page.
type FloorsheetService struct {
	db          *sql.DB
	baseURL     string
	pageSize    int
	httpFactory *shared.HTTPClientFactory
	rateLimiter *shared.RequestRateLimiter
	timeout     time.Duration
	maxRetries  int
	metrics     *shared.ServiceMetrics
}

// NewFloorsheetService creates a floorsheet fetcher writing to the
// given database.
func NewFloorsheetService(db *sql.DB, baseURL string, pageSize int, timeout time.Duration, maxRetries int) *FloorsheetService {
	return &FloorsheetService{
		db:          db,
		baseURL:     baseURL,
		pageSize:    pageSize,
		httpFactory: shared.NewHTTPClientFactory(timeout),
		rateLimiter: shared.NewRequestRateLimiter(100 * time.Millisecond),
		timeout:     timeout,
		maxRetries:  maxRetries,
		metrics:     shared.NewServiceMetrics("FloorsheetService"),
	}
}

// FetchDateRange loads every date in [startDate, endDate], both in
// YYYY-MM-DD format. A failed date is logged and skipped so one bad day
// does not abort the whole range.
func (s *FloorsheetService) FetchDateRange(ctx context.Context, startDate, endDate string) error {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", endDate, err)
	}
	if start.After(end) {
		return fmt.Errorf("start date %s is after end date %s", startDate, endDate)
	}

	logger := logrus.WithField("service", "FloorsheetService")

	totalDays := 0
	completedDays := 0
	for current := start; !current.After(end); current = current.AddDate(0, 0, 1) {
		date := current.Format("2006-01-02")
		totalDays++

		if err := s.FetchDate(ctx, date); err != nil {
			logger.WithError(err).WithField("date", date).Error("Failed to process date")
			continue
		}
		completedDays++
	}

	logger.WithFields(logrus.Fields{
		"completed_days": completedDays,
		"total_days":     totalDays,
		"start_date":     startDate,
		"end_date":       endDate,
	}).Info("Floorsheet date range processed")

	return nil
}

// FetchDate loads one date, skipping work already done. A stored count
// that is a positive non-multiple of the page size means the final
// short page has been stored and the date is complete.
func (s *FloorsheetService) FetchDate(ctx context.Context, date string) error {
	logger := logrus.WithFields(logrus.Fields{
		"service": "FloorsheetService",
		"date":    date,
	})

	existingCount, err := s.storedRecordCount(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to count stored records for %s: %w", date, err)
	}

	if existingCount > 0 && existingCount%s.pageSize != 0 {
		logger.WithField("existing_count", existingCount).Info("Date already complete, skipping")
		return nil
	}

	firstPage := existingCount/s.pageSize + 1
	page, err := s.fetchPage(ctx, date, firstPage)
	if err != nil {
		return err
	}

	if err := s.insertEntries(ctx, page.Data, date); err != nil {
		return err
	}

	for pageNum := firstPage + 1; pageNum <= page.LastPage; pageNum++ {
		next, err := s.fetchPage(ctx, date, pageNum)
		if err != nil {
			logger.WithError(err).WithField("page", pageNum).Error("Failed to fetch page, continuing")
			continue
		}
		if err := s.insertEntries(ctx, next.Data, date); err != nil {
			return err
		}
	}

	logger.WithFields(logrus.Fields{
		"first_page": firstPage,
		"last_page":  page.LastPage,
	}).Info("Floorsheet date loaded")

	return nil
}

// fetchPage retrieves one page of trades for a date.
func (s *FloorsheetService) fetchPage(ctx context.Context, date string, pageNum int) (floorsheetPage, error) {
	start := time.Now()
	url := fmt.Sprintf("%s?date=%s&page=%d&size=%d", s.baseURL, date, pageNum, s.pageSize)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return floorsheetPage{}, err
	}
	shared.SetBrowserLikeHeaders(request)

	s.rateLimiter.Wait()
	response, err := shared.ExecuteRequestWithRetry(s.httpFactory.Client(s.timeout), request, s.maxRetries)
	if err != nil {
		s.metrics.RecordRequest(false, time.Since(start))
		return floorsheetPage{}, fmt.Errorf("floorsheet fetch failed for %s page %d: %w", date, pageNum, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		s.metrics.RecordRequest(false, time.Since(start))
		return floorsheetPage{}, fmt.Errorf("failed to read floorsheet response: %w", err)
	}

	var page floorsheetPage
	if err := json.Unmarshal(body, &page); err != nil {
		s.metrics.RecordRequest(false, time.Since(start))
		return floorsheetPage{}, fmt.Errorf("failed to decode floorsheet response: %w", err)
	}
	if page.LastPage == 0 {
		page.LastPage = 1
	}

	s.metrics.RecordRequest(true, time.Since(start))
	return page, nil
}

// insertEntries bulk-inserts one page of trades. Duplicate transaction
// numbers are silently skipped so re-fetching a page is harmless.
func (s *FloorsheetService) insertEntries(ctx context.Context, entries []models.FloorsheetEntry, date string) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin floorsheet transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO floorsheet (transaction, symbol, buyer, seller, quantity, rate, amount, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (transaction) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("failed to prepare floorsheet insert: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.ExecContext(ctx,
			entry.Transaction, entry.Symbol, entry.Buyer, entry.Seller,
			entry.Quantity, entry.Rate, entry.Amount, date); err != nil {
			return fmt.Errorf("failed to insert floorsheet row %s: %w", entry.Transaction, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit floorsheet insert: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"service": "FloorsheetService",
		"date":    date,
		"rows":    len(entries),
	}).Debug("Inserted floorsheet rows")

	return nil
}

// storedRecordCount counts rows already stored for a date.
func (s *FloorsheetService) storedRecordCount(ctx context.Context, date string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM floorsheet WHERE date = $1", date).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
