// Package normalize reshapes raw statement lines into canonical ledger
// transactions.
package normalize

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finward/bankfeed/internal/model"
	"github.com/finward/bankfeed/internal/ofx"
)

// clearedFITIDThreshold is the smallest FITID the bank assigns to cleared
// transactions. Uncleared lines get low-range identifiers that are reused
// between exports, so anything below this (including FITIDs that are not
// numeric at all) is dropped rather than treated as stable.
const clearedFITIDThreshold = 200000000000000

// Normalizer maps raw statement lines to canonical transactions. The date
// parser is injected so tests can substitute one.
type Normalizer struct {
	parseDate func(string) (time.Time, error)
}

// NewNormalizer creates a normalizer using the OFX date/time parser.
func NewNormalizer() *Normalizer {
	return &Normalizer{parseDate: ofx.ParseDateTime}
}

// SplitIdentifier splits a bank account identifier into its sort code,
// formatted as NN-NN-NN, and the remaining account number.
func SplitIdentifier(identifier string) (sortCode, accountNumber string, err error) {
	if len(identifier) < 7 {
		return "", "", fmt.Errorf("account identifier %q too short", identifier)
	}
	for _, r := range identifier {
		if r < '0' || r > '9' {
			return "", "", fmt.Errorf("account identifier %q is not numeric", identifier)
		}
	}
	sortCode = identifier[0:2] + "-" + identifier[2:4] + "-" + identifier[4:6]
	return sortCode, identifier[6:], nil
}

// Normalize filters and maps one account's raw lines into canonical
// transactions. Uncleared lines are dropped by the FITID threshold; lines
// with unparseable dates or amounts are dropped and logged, never aborting
// the batch. Output preserves the input order of surviving lines, and the
// mapping is deterministic: the same input always yields the same output.
func (n *Normalizer) Normalize(accountIdentifier string, lines []model.RawTransactionLine) ([]model.CanonicalTransaction, error) {
	sortCode, accountNumber, err := SplitIdentifier(accountIdentifier)
	if err != nil {
		return nil, err
	}

	txns := make([]model.CanonicalTransaction, 0, len(lines))
	for _, line := range lines {
		fitid, err := strconv.ParseInt(line.FITID, 10, 64)
		if err != nil || fitid < clearedFITIDThreshold {
			slog.Debug("skipping uncleared transaction",
				"account", accountIdentifier,
				"fitid", line.FITID)
			continue
		}

		date, err := n.parseDate(line.DTPosted)
		if err != nil {
			slog.Warn("dropping transaction with unparseable date",
				"account", accountIdentifier,
				"fitid", line.FITID,
				"token", line.DTPosted,
				"error", err)
			continue
		}

		amount, err := decimal.NewFromString(line.TrnAmt)
		if err != nil {
			slog.Warn("dropping transaction with unparseable amount",
				"account", accountIdentifier,
				"fitid", line.FITID,
				"amount", line.TrnAmt,
				"error", err)
			continue
		}

		txns = append(txns, model.CanonicalTransaction{
			Date:          date,
			SortCode:      sortCode,
			AccountNumber: accountNumber,
			// FITID is appended so re-uploaded entries stay
			// distinguishable for the ledger's dedup.
			Description: line.Name + " " + line.FITID,
			Amount:      amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
		})
	}

	return txns, nil
}
