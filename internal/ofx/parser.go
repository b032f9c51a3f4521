// Package ofx parses bank statement exports in OFX format, including the
// noncompliant SGML variant our bank actually produces.
package ofx

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"

	"github.com/finward/bankfeed/internal/model"
)

// Parser extracts raw statements from OFX export text. It is stateless and
// safe for concurrent use.
type Parser struct{}

// NewParser creates a new OFX statement parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocess fixes common formatting issues in OFX exports before handing
// them to the strict parser.
func preprocess(content string) string {
	// Trim any leading whitespace or blank lines before the header.
	content = strings.TrimLeft(content, " \t\r\n")

	// Fix mixed-case SEVERITY values (should be INFO, WARN, or ERROR).
	severityRe := regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	content = severityRe.ReplaceAllStringFunc(content, strings.ToUpper)

	// Fix SGML-style opening tags missing their closing angle bracket.
	tagFixRe := regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	content = tagFixRe.ReplaceAllString(content, "$1>")

	return content
}

// Parse extracts statements from a raw OFX export. It first attempts a
// strict parse via ofxgo, which handles compliant OFX/QFX files; when that
// fails (the bank's live export is SGML that ofxgo rejects) it falls back to
// a lenient tag scan that keeps every wire token untouched.
func (p *Parser) Parse(raw string) ([]model.Statement, error) {
	content := preprocess(raw)

	if stmts, err := parseStrict(content); err == nil && len(stmts) > 0 {
		return stmts, nil
	} else if err != nil {
		slog.Debug("strict OFX parse failed, falling back to tag scan", "error", err)
	}

	stmts := scanStatements(content)
	if len(stmts) == 0 {
		return nil, fmt.Errorf("no statements found in OFX export")
	}
	return stmts, nil
}

// parseStrict runs the export through ofxgo and re-renders each transaction
// back to wire tokens, so both parse paths feed the normalizer identically.
func parseStrict(content string) ([]model.Statement, error) {
	resp, err := ofxgo.ParseResponse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX response: %w", err)
	}

	var statements []model.Statement

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		statements = append(statements, model.Statement{
			AccountID: string(stmt.BankAcctFrom.AcctID),
			Lines:     convertTransactions(stmt.BankTranList.Transactions),
		})
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		statements = append(statements, model.Statement{
			AccountID: string(stmt.CCAcctFrom.AcctID),
			Lines:     convertTransactions(stmt.BankTranList.Transactions),
		})
	}

	return statements, nil
}

func convertTransactions(txns []ofxgo.Transaction) []model.RawTransactionLine {
	lines := make([]model.RawTransactionLine, 0, len(txns))
	for _, tx := range txns {
		lines = append(lines, model.RawTransactionLine{
			FITID: string(tx.FiTID),
			// ofxgo already resolved the timezone, so render as UTC.
			DTPosted: tx.DtPosted.Time.UTC().Format("20060102150405"),
			TrnAmt:   tx.TrnAmt.FloatString(2),
			Name:     string(tx.Name),
		})
	}
	return lines
}

var acctIDRe = regexp.MustCompile(`<ACCTID>([^<\r\n]*)`)

// scanStatements is the lenient path: a tag scan over SGML-ish OFX that
// tolerates missing closing tags and keeps the raw DTPOSTED, TRNAMT, FITID
// and NAME tokens exactly as exported.
func scanStatements(content string) []model.Statement {
	acctMatch := acctIDRe.FindStringSubmatch(content)
	if acctMatch == nil {
		return nil
	}
	accountID := strings.TrimSpace(acctMatch[1])

	var lines []model.RawTransactionLine
	for _, chunk := range splitTransactionBlocks(content) {
		lines = append(lines, model.RawTransactionLine{
			FITID:    tagValue(chunk, "FITID"),
			DTPosted: tagValue(chunk, "DTPOSTED"),
			TrnAmt:   tagValue(chunk, "TRNAMT"),
			Name:     tagValue(chunk, "NAME"),
		})
	}

	if len(lines) == 0 {
		return nil
	}
	return []model.Statement{{AccountID: accountID, Lines: lines}}
}

// splitTransactionBlocks cuts the export into per-transaction chunks. SGML
// exports frequently omit </STMTTRN>, so each block ends at the next
// <STMTTRN> or at the end of the transaction list.
func splitTransactionBlocks(content string) []string {
	parts := strings.Split(content, "<STMTTRN>")
	if len(parts) < 2 {
		return nil
	}

	blocks := make([]string, 0, len(parts)-1)
	for _, part := range parts[1:] {
		if i := strings.Index(part, "</STMTTRN>"); i >= 0 {
			part = part[:i]
		} else if i := strings.Index(part, "</BANKTRANLIST>"); i >= 0 {
			part = part[:i]
		}
		blocks = append(blocks, part)
	}
	return blocks
}

func tagValue(block, tag string) string {
	re := regexp.MustCompile(`<` + tag + `>([^<\r\n]*)`)
	if m := re.FindStringSubmatch(block); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
