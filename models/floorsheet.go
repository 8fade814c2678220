package models

// FloorsheetEntry is one trade row from the market floorsheet feed.
// Transaction numbers and broker codes are identifiers, not numbers.
type FloorsheetEntry struct {
	Transaction string  `json:"transaction"`
	Symbol      string  `json:"symbol"`
	Buyer       string  `json:"buyer"`
	Seller      string  `json:"seller"`
	Quantity    int     `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
}
