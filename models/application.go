package models

// AuthSession is the opaque bearer credential (plus session cookies)
// obtained from one successful login. It lives for one
// login-to-apply cycle, is threaded as a value through every broker
// call, and is never persisted or stored in process-wide state.
type AuthSession struct {
	Token   string
	Cookies []string
}

// Valid reports whether the session carries a usable token.
func (s AuthSession) Valid() bool {
	return s.Token != ""
}

// OwnDetails is the authenticated person's own record on the broker.
// Demat and BOID for an application are sourced from here, not from
// the static directory row.
type OwnDetails struct {
	Demat string `json:"demat"`
	BOID  string `json:"boid"`
	Name  string `json:"name"`
}

// BankAccountDetails are the per-bank settlement account fields fetched
// for one linked bank id.
type BankAccountDetails struct {
	AccountNumber   string `json:"accountNumber"`
	AccountBranchID string `json:"accountBranchId"`
	AccountTypeID   string `json:"accountTypeId"`
	CustomerID      string `json:"customerId"`
}

// ReservedQuantity is the result of the reserved-share quantity lookup
// for a RESERVED issue.
type ReservedQuantity struct {
	ReservedQuantity string `json:"reservedQuantity"`
	ShareCriteriaID  string `json:"shareCriteriaId"`
}

// ApplicationRequest is the payload submitted to apply for one issue on
// behalf of one person. Built fresh per submission attempt. All fields
// stay strings to preserve leading zeros. ShareCriteriaID is set only
// for RESERVED share types when the reserved-quantity lookup succeeded.
type ApplicationRequest struct {
	Demat           string `json:"demat"`
	BOID            string `json:"boid"`
	AccountNumber   string `json:"accountNumber"`
	CustomerID      string `json:"customerId"`
	AccountBranchID string `json:"accountBranchId"`
	AccountTypeID   string `json:"accountTypeId"`
	AppliedKitta    string `json:"appliedKitta"`
	CRNNumber       string `json:"crnNumber"`
	TransactionPIN  string `json:"transactionPIN"`
	CompanyShareID  string `json:"companyShareId"`
	BankID          string `json:"bankId"`
	ShareCriteriaID string `json:"shareCriteriaId,omitempty"`
}

// ApplicationResult is the broker's acknowledgement of a submitted
// application, annotated with which bank id finally succeeded and the
// quantity that was applied.
type ApplicationResult struct {
	Scrip        string `json:"scrip"`
	CompanyName  string `json:"companyName"`
	BankID       string `json:"bankId"`
	AppliedKitta string `json:"appliedKitta"`
	Message      string `json:"message"`
}
