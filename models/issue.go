package models

import "encoding/json"

// Share type names the broker reports for issues this system may apply to.
const (
	ShareTypeIPO      = "IPO"
	ShareTypeFPO      = "FPO"
	ShareTypeReserved = "RESERVED"
)

// Issue eligibility constants used by the filter.
const (
	ShareGroupOrdinary  = "Ordinary Shares"
	StatusCreateApprove = "CREATE_APPROVE"
	ActionInProcess     = "inProcess"
)

// ApplicableIssue is one broker-reported issue currently open for
// application. CompanyShareID is the opaque identifier submitted with
// an application; it is a json.Number because the broker sends it
// sometimes as a number and sometimes as a string, and leading zeros
// must survive either way.
type ApplicableIssue struct {
	CompanyShareID json.Number `json:"companyShareId"`
	Scrip          string      `json:"scrip"`
	CompanyName    string      `json:"companyName"`
	ShareGroupName string      `json:"shareGroupName"`
	StatusName     string      `json:"statusName"`
	ShareTypeName  string      `json:"shareTypeName"`
	Action         string      `json:"action"`
}

// Eligible reports whether the issue passes every eligibility filter:
// ordinary shares, approved status, an applicable share type, and not
// already applied for.
func (i ApplicableIssue) Eligible() bool {
	if i.ShareGroupName != ShareGroupOrdinary {
		return false
	}
	if i.StatusName != StatusCreateApprove {
		return false
	}
	switch i.ShareTypeName {
	case ShareTypeIPO, ShareTypeFPO, ShareTypeReserved:
	default:
		return false
	}
	return i.Action != ActionInProcess
}

// AlreadyApplied reports whether the broker marked this issue as
// having an application in process for the authenticated person.
func (i ApplicableIssue) AlreadyApplied() bool {
	return i.Action == ActionInProcess
}
