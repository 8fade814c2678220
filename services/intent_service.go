package services

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/prabeshd/ipo-applier/models"
)

// intentPatterns are tried in order against the kitta-stripped message.
// The first pattern whose captured person resolves to a known name wins.
var intentPatterns = []*regexp.Regexp{
	// "appy/apply ipo for {name} for company {company}"
	regexp.MustCompile(`(?i)(?:appy|apply)\s+(?:ipo\s+)?for\s+([a-zA-Z\s]+?)\s+(?:for\s+)?company\s+([a-zA-Z0-9\s]+)`),

	// "apply ipo for {name} in {company}"
	regexp.MustCompile(`(?i)(?:appy|apply)\s+(?:ipo\s+)?for\s+([a-zA-Z\s]+?)\s+in\s+([a-zA-Z0-9\s]+)`),

	// "ipo {name} {company}"
	regexp.MustCompile(`(?i)ipo\s+([a-zA-Z\s]+?)\s+([a-zA-Z0-9\s]+)`),

	// "apply for {name} company {company}"
	regexp.MustCompile(`(?i)apply\s+for\s+([a-zA-Z\s]+?)\s+company\s+([a-zA-Z0-9\s]+)`),

	// "{name} {company}" (simple two-word message)
	regexp.MustCompile(`(?i)^([a-zA-Z]+)\s+([a-zA-Z0-9]+)$`),

	// "for {name} {company}"
	regexp.MustCompile(`(?i)for\s+([a-zA-Z\s]+?)\s+([a-zA-Z0-9\s]+)`),
}

// kittaPattern captures the requested quantity: a number immediately
// before the word "kitta".
var kittaPattern = regexp.MustCompile(`(?i)(\d+)\s+kitta`)

// intentStopWords are filler tokens that can never be a person or the
// start of a company name in the word-scan fallback.
var intentStopWords = map[string]bool{
	"for": true, "in": true, "company": true, "apply": true,
	"appy": true, "ipo": true, "the": true, "a": true, "an": true,
}

var companyPrefixPattern = regexp.MustCompile(`(?i)^(for|in|company)\s+`)
var companySuffixPattern = regexp.MustCompile(`(?i)\s+(for|in|company)$`)

// IntentService extracts an application intent (person, company,
// quantity) from a free-text chat message.
type IntentService struct{}

// NewIntentService creates a new intent extraction service.
func NewIntentService() *IntentService {
	return &IntentService{}
}

// Extract parses a chat message into a ParsedIntent against the given
// known person names. Missing parts come back as empty strings; the
// caller decides whether the intent is actionable. Never fails on
// arbitrary input.
func (s *IntentService) Extract(message string, knownPeople []string) models.ParsedIntent {
	msg := strings.TrimSpace(strings.ToLower(message))

	intent := models.ParsedIntent{}

	// The quantity is carved out first so the remaining text parses as
	// pure person/company phrasing.
	if kittaMatch := kittaPattern.FindStringSubmatch(msg); kittaMatch != nil {
		intent.Kitta = kittaMatch[1]
		msg = strings.TrimSpace(kittaPattern.ReplaceAllString(msg, ""))
	}

	for _, pattern := range intentPatterns {
		match := pattern.FindStringSubmatch(msg)
		if match == nil {
			continue
		}

		potentialPerson := strings.TrimSpace(match[1])
		potentialCompany := strings.TrimSpace(match[2])

		if matched, ok := MatchKnownName(potentialPerson, knownPeople); ok {
			intent.Person = matched
			intent.Company = potentialCompany
			break
		}
	}

	if intent.Person == "" {
		s.extractByWordScan(msg, knownPeople, &intent)
	}

	intent.Company = cleanCompanyName(intent.Company)

	logrus.WithFields(logrus.Fields{
		"service": "IntentService",
		"person":  intent.Person,
		"company": intent.Company,
		"kitta":   intent.Kitta,
	}).Debug("Extracted intent from message")

	return intent
}

// extractByWordScan is the fallback when no pattern matched: scan each
// word, skip fillers, and take the first word that resolves to a known
// person. Everything after that word (minus fillers) is the company.
func (s *IntentService) extractByWordScan(msg string, knownPeople []string, intent *models.ParsedIntent) {
	words := strings.Fields(msg)

	for i, word := range words {
		if intentStopWords[word] {
			continue
		}

		matched, ok := MatchKnownName(word, knownPeople)
		if !ok {
			continue
		}

		intent.Person = matched

		if i+1 < len(words) {
			companyWords := make([]string, 0, len(words)-i-1)
			for _, w := range words[i+1:] {
				if !intentStopWords[w] {
					companyWords = append(companyWords, w)
				}
			}
			intent.Company = strings.Join(companyWords, " ")
		}
		return
	}
}

// cleanCompanyName strips leading and trailing filler words left over
// from the pattern captures.
func cleanCompanyName(company string) string {
	if company == "" {
		return ""
	}

	company = companyPrefixPattern.ReplaceAllString(company, "")
	company = companySuffixPattern.ReplaceAllString(company, "")
	return strings.TrimSpace(company)
}
