package ofx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A compliant OFX 1.x SGML export, handled by the strict parse path.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>GBP
<BANKACCTFROM>
<BANKID>772224
<ACCTID>77222413007568
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>200000000000001
<NAME>COSTA COFFEE
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240120090000[0:GMT]
<TRNAMT>125.00
<FITID>200000000000002
<NAME>SALARY
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

// The bank's live export: no OFX header block, no closing transaction tags.
// Only the lenient tag scan can read this, and it must keep the wire tokens
// untouched.
const sampleLenientOFX = `<OFX>
<BANKMSGSRSV1>
<STMTTRNRS>
<STMTRS>
<CURDEF>GBP
<BANKACCTFROM>
<BANKID>772224
<ACCTID>77222413007568
</BANKACCTFROM>
<BANKTRANLIST>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20170717091500.000[+1:BST]
<TRNAMT>-7.00
<FITID>200000000000123
<NAME>TESCO STORES
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20170716
<TRNAMT>-2389.63
<FITID>199999999999999
<NAME>RENT
</BANKTRANLIST>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestParseCompliantExport(t *testing.T) {
	parser := NewParser()

	statements, err := parser.Parse(sampleBankOFX)
	require.NoError(t, err)
	require.Len(t, statements, 1)

	stmt := statements[0]
	assert.Equal(t, "77222413007568", stmt.AccountID)
	require.Len(t, stmt.Lines, 2)

	first := stmt.Lines[0]
	assert.Equal(t, "200000000000001", first.FITID)
	assert.Equal(t, "COSTA COFFEE", first.Name)
	assert.Equal(t, "-25.50", first.TrnAmt)

	// Both parse paths must yield a token our date parser resolves to the
	// same instant.
	posted, err := ParseDateTime(first.DTPosted)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC).Equal(posted))

	second := stmt.Lines[1]
	assert.Equal(t, "200000000000002", second.FITID)
	assert.Equal(t, "125.00", second.TrnAmt)
}

func TestParseLenientExport(t *testing.T) {
	parser := NewParser()

	statements, err := parser.Parse(sampleLenientOFX)
	require.NoError(t, err)
	require.Len(t, statements, 1)

	stmt := statements[0]
	assert.Equal(t, "77222413007568", stmt.AccountID)
	require.Len(t, stmt.Lines, 2)

	// Wire tokens come through untouched, timezone bracket included.
	assert.Equal(t, "20170717091500.000[+1:BST]", stmt.Lines[0].DTPosted)
	assert.Equal(t, "-7.00", stmt.Lines[0].TrnAmt)
	assert.Equal(t, "200000000000123", stmt.Lines[0].FITID)
	assert.Equal(t, "TESCO STORES", stmt.Lines[0].Name)

	assert.Equal(t, "20170716", stmt.Lines[1].DTPosted)
	assert.Equal(t, "199999999999999", stmt.Lines[1].FITID)
	assert.Equal(t, "RENT", stmt.Lines[1].Name)
}

func TestParsePreservesLineOrder(t *testing.T) {
	parser := NewParser()

	statements, err := parser.Parse(sampleLenientOFX)
	require.NoError(t, err)

	var fitids []string
	for _, line := range statements[0].Lines {
		fitids = append(fitids, line.FITID)
	}
	assert.Equal(t, []string{"200000000000123", "199999999999999"}, fitids)
}

func TestParseRejectsNonOFXContent(t *testing.T) {
	parser := NewParser()

	_, err := parser.Parse("this is not a statement export")
	assert.Error(t, err)

	_, err = parser.Parse("")
	assert.Error(t, err)
}

func TestPreprocessFixesSGMLQuirks(t *testing.T) {
	in := "\n\n<OFX>\n<SEVERITY>Info</SEVERITY>\n<DTPOSTED\n"
	out := preprocess(in)

	assert.Contains(t, out, "<SEVERITY>INFO</SEVERITY>")
	assert.Contains(t, out, "<DTPOSTED>")
	assert.Equal(t, byte('<'), out[0])
}
