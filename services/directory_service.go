package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/prabeshd/ipo-applier/models"
)

// Directory is the source of known people and their broker credentials.
type Directory interface {
	ListPeople(ctx context.Context) ([]models.KnownPerson, error)
}

// SheetsDirectory reads the credential directory from a Google Sheet.
// The first row holds column headers; every following row is one
// person. All cells are kept as strings, since demat and account
// numbers carry leading zeros that numeric coercion would destroy.
type SheetsDirectory struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

// NewSheetsDirectory creates a directory backed by a Google Sheet,
// authenticating with a service account credentials file.
func NewSheetsDirectory(ctx context.Context, credentialsFile, spreadsheetID, sheetName string) (*SheetsDirectory, error) {
	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheets credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentials, sheets.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheets credentials: %w", err)
	}

	service, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetsDirectory{
		service:       service,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// ListPeople fetches every row of the directory sheet.
func (d *SheetsDirectory) ListPeople(ctx context.Context) ([]models.KnownPerson, error) {
	values, err := d.service.Spreadsheets.Values.
		Get(d.spreadsheetID, d.sheetName).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read directory sheet: %w", err)
	}

	if len(values.Values) < 2 {
		logrus.WithFields(logrus.Fields{
			"service": "SheetsDirectory",
			"sheet":   d.sheetName,
		}).Warn("Directory sheet has no data rows")
		return []models.KnownPerson{}, nil
	}

	headers := make([]string, 0, len(values.Values[0]))
	for _, cell := range values.Values[0] {
		headers = append(headers, fmt.Sprint(cell))
	}

	people := make([]models.KnownPerson, 0, len(values.Values)-1)
	for _, row := range values.Values[1:] {
		record := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(row) {
				record[header] = fmt.Sprint(row[i])
			} else {
				record[header] = ""
			}
		}
		people = append(people, personFromRecord(record))
	}

	logrus.WithFields(logrus.Fields{
		"service":      "SheetsDirectory",
		"sheet":        d.sheetName,
		"people_count": len(people),
	}).Debug("Loaded directory rows")

	return people, nil
}

// personFromRecord maps one header-keyed row onto a KnownPerson.
func personFromRecord(record map[string]string) models.KnownPerson {
	return models.KnownPerson{
		Name:            record["name"],
		ClientID:        record["clientId"],
		Username:        record["username"],
		Password:        record["password"],
		Demat:           record["demat"],
		AccountNumber:   record["accountNumber"],
		CustomerID:      record["customerId"],
		AccountBranchID: record["accountBranchId"],
		AccountTypeID:   record["accountTypeId"],
		BankID:          record["bankId"],
		CRNNumber:       record["crnNumber"],
		TransactionPIN:  record["transactionPIN"],
		AppliedKitta:    record["appliedKitta"],
	}
}

// FindPerson returns the directory row whose name equals the given name
// case-insensitively.
func FindPerson(people []models.KnownPerson, name string) (models.KnownPerson, bool) {
	for _, person := range people {
		if strings.EqualFold(person.Name, name) {
			return person, true
		}
	}
	return models.KnownPerson{}, false
}
