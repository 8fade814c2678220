package models

// ParsedIntent is the structured result of parsing one inbound chat
// message. Absent fields are empty strings rather than errors: the
// extractor never fails on malformed input.
type ParsedIntent struct {
	Person  string `json:"person"`
	Company string `json:"company"`
	Kitta   string `json:"kitta"`
}

// Actionable reports whether the intent resolved both a person and a
// company reference. Only actionable intents may reach the broker.
func (i ParsedIntent) Actionable() bool {
	return i.Person != "" && i.Company != ""
}
