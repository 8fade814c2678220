package models

// KnownPerson is one row of the credential directory. Every field is
// kept as a string exactly as it appears in the sheet: account numbers,
// CRNs and bank ids carry semantically significant leading zeros and
// must never be converted to numeric types.
type KnownPerson struct {
	Name            string `json:"name"`
	ClientID        string `json:"clientId"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	Demat           string `json:"demat"`
	AccountNumber   string `json:"accountNumber"`
	CustomerID      string `json:"customerId"`
	AccountBranchID string `json:"accountBranchId"`
	AccountTypeID   string `json:"accountTypeId"`
	BankID          string `json:"bankId"`
	CRNNumber       string `json:"crnNumber"`
	TransactionPIN  string `json:"transactionPIN"`
	AppliedKitta    string `json:"appliedKitta"`
}
