package models

// AppliedIssueSummary is one successful application in a bulk run.
type AppliedIssueSummary struct {
	Company string `json:"company"`
	Scrip   string `json:"scrip"`
	Result  string `json:"result"`
}

// FailedIssueSummary is one failed application in a bulk run.
type FailedIssueSummary struct {
	Company string `json:"company"`
	Scrip   string `json:"scrip"`
	Reason  string `json:"reason"`
}

// BulkApplyResult is the outcome of applying one person to every
// eligible open issue.
type BulkApplyResult struct {
	Status        string                `json:"status"`
	CDSCName      string                `json:"cdsc_name,omitempty"`
	Message       string                `json:"message"`
	AppliedIssues []AppliedIssueSummary `json:"applied_issues"`
	FailedIssues  []FailedIssueSummary  `json:"failed_issues"`
	TotalApplied  int                   `json:"total_applied"`
	TotalFailed   int                   `json:"total_failed"`
}
