package model

import "time"

// RawTransactionLine is a single statement line as it appears on the wire,
// before any interpretation. All fields carry the raw OFX token text.
type RawTransactionLine struct {
	FITID    string
	DTPosted string
	TrnAmt   string
	Name     string
}

// Statement is one account's raw export: the account identifier from the
// statement response plus its transaction lines in wire order.
type Statement struct {
	AccountID string
	Lines     []RawTransactionLine
}

// CanonicalTransaction is the stable internal shape delivered to the ledger
// API. Date is always a UTC instant; Amount is in integer minor currency
// units (pence) to keep money out of floating point.
type CanonicalTransaction struct {
	Date          time.Time `json:"date"`
	SortCode      string    `json:"sortCode"`
	AccountNumber string    `json:"accountNumber"`
	Description   string    `json:"description"`
	Amount        int64     `json:"amount"`
}
