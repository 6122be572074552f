// Package zengin encodes general transfer (sogo furikomi) request files in
// the fixed-width Zengin format: 120 byte Shift_JIS records separated by CRLF.
package zengin

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/frahmantamala/reimbursement-management/internal"
	"golang.org/x/text/encoding/japanese"
)

const (
	RecordLength = 120

	recordHeader  = "1"
	recordData    = "2"
	recordTrailer = "8"
	recordEnd     = "9"

	// general transfer, JIS code set
	typeCode = "21"
	codeKind = "0"

	// telegraphic transfer
	transferTypeWire = "7"

	maxRecords = 999999
	maxTotal   = 999999999999
)

var crlf = []byte("\r\n")

// Profile describes the company account the transfers are debited from.
type Profile struct {
	SenderCode    string
	SenderName    string
	TransferDate  time.Time
	BankCode      string
	BankName      string
	BranchCode    string
	BranchName    string
	AccountType   string
	AccountNumber string
}

// Transfer is one payee line. BankName and BranchName are informational and
// may be left empty.
type Transfer struct {
	BankCode      string
	BankName      string
	BranchCode    string
	BranchName    string
	AccountType   string
	AccountNumber string
	RecipientName string
	Amount        int64
	CustomerCode  string
}

type record struct {
	buf strings.Builder
	err error
}

func (r *record) literal(s string) {
	r.buf.WriteString(s)
}

func (r *record) blank(n int) {
	r.buf.WriteString(strings.Repeat(" ", n))
}

// numeric writes a right aligned, zero padded digit field.
func (r *record) numeric(field, value string, n int) {
	if r.err != nil {
		return
	}
	for _, c := range value {
		if c < '0' || c > '9' {
			r.err = internal.NewEncodingError(field, fmt.Sprintf("%s must contain digits only", field), internal.ErrCodeInvalidCharacter)
			return
		}
	}
	if len(value) > n {
		r.err = internal.NewEncodingError(field, fmt.Sprintf("%s exceeds %d digits", field, n), internal.ErrCodeFieldOverflow)
		return
	}
	r.buf.WriteString(strings.Repeat("0", n-len(value)))
	r.buf.WriteString(value)
}

func (r *record) amount(field string, v int64, n int) {
	if r.err != nil {
		return
	}
	if v < 0 {
		r.err = internal.NewEncodingError(field, fmt.Sprintf("%s cannot be negative", field), internal.ErrCodeInvalidAmount)
		return
	}
	r.numeric(field, strconv.FormatInt(v, 10), n)
}

// text writes a left aligned, space padded field. Values wider than n are an
// error unless truncate is set.
func (r *record) text(field, value string, n int, truncate bool) {
	if r.err != nil {
		return
	}
	normalized := Normalize(value)
	if bad, ok := firstInvalid(normalized); ok {
		r.err = internal.NewEncodingError(field, fmt.Sprintf("%s contains unsupported character %q", field, bad), internal.ErrCodeInvalidCharacter)
		return
	}
	length := utf8.RuneCountInString(normalized)
	if length > n {
		if !truncate {
			r.err = internal.NewEncodingError(field, fmt.Sprintf("%s exceeds %d characters", field, n), internal.ErrCodeFieldOverflow)
			return
		}
		normalized = string([]rune(normalized)[:n])
		length = n
	}
	r.buf.WriteString(normalized)
	r.buf.WriteString(strings.Repeat(" ", n-length))
}

func headerRecord(p Profile) (string, error) {
	r := &record{}
	r.literal(recordHeader)
	r.literal(typeCode)
	r.literal(codeKind)
	r.numeric("sender_code", p.SenderCode, 10)
	r.text("sender_name", p.SenderName, 40, false)
	r.literal(p.TransferDate.Format("0102"))
	r.numeric("bank_code", p.BankCode, 4)
	r.text("bank_name", p.BankName, 15, true)
	r.numeric("branch_code", p.BranchCode, 3)
	r.text("branch_name", p.BranchName, 15, true)
	r.numeric("account_type", p.AccountType, 1)
	r.numeric("account_number", p.AccountNumber, 7)
	r.blank(17)
	return r.buf.String(), r.err
}

func dataRecord(t Transfer) (string, error) {
	if t.Amount <= 0 {
		return "", internal.NewEncodingError("amount", "amount must be positive", internal.ErrCodeInvalidAmount)
	}
	r := &record{}
	r.literal(recordData)
	r.numeric("bank_code", t.BankCode, 4)
	r.text("bank_name", t.BankName, 15, true)
	r.numeric("branch_code", t.BranchCode, 3)
	r.text("branch_name", t.BranchName, 15, true)
	r.blank(4) // clearing house
	r.numeric("account_type", t.AccountType, 1)
	r.numeric("account_number", t.AccountNumber, 7)
	r.text("recipient_name", t.RecipientName, 30, false)
	r.amount("amount", t.Amount, 10)
	r.literal("0") // new code
	r.numeric("customer_code", t.CustomerCode, 10)
	r.blank(10)
	r.literal(transferTypeWire)
	r.blank(1)
	r.blank(7)
	return r.buf.String(), r.err
}

func trailerRecord(count int, total int64) string {
	r := &record{}
	r.literal(recordTrailer)
	r.numeric("count", strconv.Itoa(count), 6)
	r.amount("total", total, 12)
	r.blank(101)
	return r.buf.String()
}

func endRecord() string {
	return recordEnd + strings.Repeat(" ", RecordLength-1)
}

// Encode renders the header, one data record per transfer, the trailer and
// the end record, transcoded to Shift_JIS. Any field that does not fit its
// width or holds an unsupported character fails the whole file.
func Encode(profile Profile, transfers []Transfer) ([]byte, error) {
	if len(transfers) > maxRecords {
		return nil, internal.NewEncodingError("count", fmt.Sprintf("a file holds at most %d records", maxRecords), internal.ErrCodeFieldOverflow)
	}

	header, err := headerRecord(profile)
	if err != nil {
		return nil, err
	}
	records := make([]string, 0, len(transfers)+3)
	records = append(records, header)

	var total int64
	for i, t := range transfers {
		line, err := dataRecord(t)
		if err != nil {
			if appErr, ok := internal.IsAppError(err); ok {
				return nil, appErr.WithDetails(map[string]interface{}{
					"record": i + 1,
					"field":  fieldOf(appErr),
				})
			}
			return nil, err
		}
		total += t.Amount
		if total > maxTotal {
			return nil, internal.NewEncodingError("total", "total amount exceeds 12 digits", internal.ErrCodeFieldOverflow)
		}
		records = append(records, line)
	}

	records = append(records, trailerRecord(len(transfers), total), endRecord())

	encoder := japanese.ShiftJIS.NewEncoder()
	var out bytes.Buffer
	for i, line := range records {
		encoded, err := encoder.Bytes([]byte(line))
		if err != nil {
			return nil, internal.NewEncodingError("record", fmt.Sprintf("record %d cannot be represented in Shift_JIS", i+1), internal.ErrCodeInvalidCharacter).WithCause(err)
		}
		if len(encoded) != RecordLength {
			return nil, internal.NewInternalError(fmt.Sprintf("record %d is %d bytes", i+1, len(encoded)), nil)
		}
		if i > 0 {
			out.Write(crlf)
		}
		out.Write(encoded)
	}
	return out.Bytes(), nil
}

func fieldOf(e *internal.AppError) string {
	if m, ok := e.Details.(map[string]string); ok {
		return m["field"]
	}
	return ""
}
