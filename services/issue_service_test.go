package services

import (
	"errors"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/prabeshd/ipo-applier/models"
)

func eligibleIssue(scrip, company string) models.ApplicableIssue {
	return models.ApplicableIssue{
		CompanyShareID: "42",
		Scrip:          scrip,
		CompanyName:    company,
		ShareGroupName: models.ShareGroupOrdinary,
		StatusName:     models.StatusCreateApprove,
		ShareTypeName:  models.ShareTypeIPO,
		Action:         "new",
	}
}

func TestNormalizeBareArray(t *testing.T) {
	svc := NewIssueService()

	raw := []byte(`[{"companyShareId":1,"scrip":"ABC","companyName":"Abc Ltd"}]`)
	issues, err := svc.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if len(issues) != 1 || issues[0].Scrip != "ABC" {
		t.Errorf("issues = %+v, want one issue with scrip ABC", issues)
	}
}

func TestNormalizeEnvelopes(t *testing.T) {
	svc := NewIssueService()

	for _, key := range []string{"object", "data", "content", "items", "results"} {
		raw := []byte(`{"` + key + `":[{"scrip":"XYZ"}],"totalCount":1}`)
		issues, err := svc.Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize(%s envelope) returned error: %v", key, err)
		}
		if len(issues) != 1 || issues[0].Scrip != "XYZ" {
			t.Errorf("Normalize(%s envelope) = %+v, want one issue with scrip XYZ", key, issues)
		}
	}
}

func TestNormalizeDropsNonMappingElements(t *testing.T) {
	svc := NewIssueService()

	raw := []byte(`[{"companyShareId":617,"scrip":"URJA","companyName":"Urja Power"},42,"noise",null,{"scrip":"ABC"}]`)
	issues, err := svc.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if len(issues) != 2 || issues[0].Scrip != "URJA" || issues[1].Scrip != "ABC" {
		t.Errorf("issues = %+v, want only the two mapping elements kept in order", issues)
	}
}

func TestNormalizeDropsNonMappingElementsInsideEnvelope(t *testing.T) {
	svc := NewIssueService()

	raw := []byte(`{"object":[17,{"scrip":"URJA"}],"totalCount":2}`)
	issues, err := svc.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if len(issues) != 1 || issues[0].Scrip != "URJA" {
		t.Errorf("issues = %+v, want one issue with the counter dropped", issues)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	svc := NewIssueService()

	for _, raw := range []string{
		`{"message":"error"}`,
		`"just a string"`,
		`42`,
	} {
		_, err := svc.Normalize([]byte(raw))
		if !errors.Is(err, ErrMalformedIssueResponse) {
			t.Errorf("Normalize(%s) error = %v, want ErrMalformedIssueResponse", raw, err)
		}
	}
}

func TestNormalizeCompanyShareIDAsNumberOrString(t *testing.T) {
	svc := NewIssueService()

	issues, err := svc.Normalize([]byte(`[{"companyShareId":617,"scrip":"A"},{"companyShareId":"0042","scrip":"B"}]`))
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if issues[0].CompanyShareID.String() != "617" {
		t.Errorf("numeric id = %q, want 617", issues[0].CompanyShareID.String())
	}
	if issues[1].CompanyShareID.String() != "0042" {
		t.Errorf("string id = %q, want 0042 with leading zeros kept", issues[1].CompanyShareID.String())
	}
}

func TestFilterKeepsOnlyEligible(t *testing.T) {
	svc := NewIssueService()

	applicable := eligibleIssue("ABC", "Abc Ltd")
	inProcess := eligibleIssue("DEF", "Def Ltd")
	inProcess.Action = models.ActionInProcess
	wrongGroup := eligibleIssue("GHI", "Ghi Ltd")
	wrongGroup.ShareGroupName = "Promoter Shares"
	wrongStatus := eligibleIssue("JKL", "Jkl Ltd")
	wrongStatus.StatusName = "CREATE_REJECT"
	wrongType := eligibleIssue("MNO", "Mno Ltd")
	wrongType.ShareTypeName = "DEBENTURE"

	filtered := svc.Filter([]models.ApplicableIssue{applicable, inProcess, wrongGroup, wrongStatus, wrongType})

	if len(filtered) != 1 || filtered[0].Scrip != "ABC" {
		t.Errorf("Filter = %+v, want only ABC", filtered)
	}
}

func TestFilterKeepsAllShareTypes(t *testing.T) {
	svc := NewIssueService()

	var issues []models.ApplicableIssue
	for _, shareType := range []string{models.ShareTypeIPO, models.ShareTypeFPO, models.ShareTypeReserved} {
		issue := eligibleIssue(shareType, shareType+" Ltd")
		issue.ShareTypeName = shareType
		issues = append(issues, issue)
	}

	if filtered := svc.Filter(issues); len(filtered) != 3 {
		t.Errorf("Filter kept %d issues, want all 3 share types", len(filtered))
	}
}

func TestFilterProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)
	svc := NewIssueService()

	genIssue := gen.Struct(reflect.TypeOf(models.ApplicableIssue{}), map[string]gopter.Gen{
		"Scrip":          gen.Identifier(),
		"CompanyName":    gen.Identifier(),
		"ShareGroupName": gen.OneConstOf(models.ShareGroupOrdinary, "Promoter Shares"),
		"StatusName":     gen.OneConstOf(models.StatusCreateApprove, "CREATE_REJECT"),
		"ShareTypeName":  gen.OneConstOf(models.ShareTypeIPO, models.ShareTypeFPO, models.ShareTypeReserved, "DEBENTURE"),
		"Action":         gen.OneConstOf("new", models.ActionInProcess),
	})

	properties.Property("filtering is idempotent", prop.ForAll(
		func(issues []models.ApplicableIssue) bool {
			once := svc.Filter(issues)
			twice := svc.Filter(once)
			return reflect.DeepEqual(once, twice)
		},
		gen.SliceOf(genIssue),
	))

	properties.Property("filtering preserves relative order", prop.ForAll(
		func(issues []models.ApplicableIssue) bool {
			filtered := svc.Filter(issues)
			lastIndex := -1
			for _, kept := range filtered {
				found := false
				for i := lastIndex + 1; i < len(issues); i++ {
					if reflect.DeepEqual(issues[i], kept) {
						lastIndex = i
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genIssue),
	))

	properties.Property("every surviving issue is eligible", prop.ForAll(
		func(issues []models.ApplicableIssue) bool {
			for _, kept := range svc.Filter(issues) {
				if !kept.Eligible() {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genIssue),
	))

	properties.TestingRun(t)
}

func TestFindByCompany(t *testing.T) {
	svc := NewIssueService()

	issues := []models.ApplicableIssue{
		eligibleIssue("abc1", "Alpha Beta Company"),
		eligibleIssue("XYZ", "Xyz Hydropower"),
	}

	tests := []struct {
		name      string
		query     string
		wantScrip string
		wantFound bool
	}{
		{name: "query matches scrip case-insensitively", query: "ABC", wantScrip: "abc1", wantFound: true},
		{name: "query matches company name", query: "hydro", wantScrip: "XYZ", wantFound: true},
		{name: "first hit wins", query: "a", wantScrip: "abc1", wantFound: true},
		{name: "no substring hit means no match", query: "qqq", wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue, found := svc.FindByCompany(issues, tt.query)
			if found != tt.wantFound {
				t.Fatalf("FindByCompany(%q) found = %v, want %v", tt.query, found, tt.wantFound)
			}
			if found && issue.Scrip != tt.wantScrip {
				t.Errorf("FindByCompany(%q) = %q, want %q", tt.query, issue.Scrip, tt.wantScrip)
			}
		})
	}
}

func TestFindByCompanyNoFuzzyFallback(t *testing.T) {
	svc := NewIssueService()

	// "urjaa" is one edit away from the scrip but not a substring of
	// it; company matching must not guess.
	issues := []models.ApplicableIssue{eligibleIssue("urja", "Urja Power")}
	if _, found := svc.FindByCompany(issues, "urjaa"); found {
		t.Error("FindByCompany must not fall back to fuzzy matching")
	}
}
