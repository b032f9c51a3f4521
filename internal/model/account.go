package model

// Account is one configured bank account: the 14-digit identifier the bank
// uses on statement responses, plus an optional human-facing alias.
type Account struct {
	Identifier string
	Alias      string
}

// DisplayName returns the alias when one is configured, otherwise the raw
// identifier.
func (a Account) DisplayName() string {
	if a.Alias != "" {
		return a.Alias
	}
	return a.Identifier
}
