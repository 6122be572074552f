package zengin

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/japanese"
)

type Header struct {
	SenderCode    string
	SenderName    string
	TransferDate  string
	BankCode      string
	BranchCode    string
	AccountType   string
	AccountNumber string
}

type Data struct {
	BankCode      string
	BranchCode    string
	AccountType   string
	AccountNumber string
	RecipientName string
	Amount        int64
	CustomerCode  string
}

type Trailer struct {
	Count int
	Total int64
}

// File is a decoded transfer file.
type File struct {
	Header  Header
	Data    []Data
	Trailer Trailer
}

// Parse decodes a file produced by Encode. It is strict about record
// lengths and ordering and is mostly used to reconcile exported batches.
func Parse(raw []byte) (*File, error) {
	lines := bytes.Split(raw, crlf)
	if len(lines) < 3 {
		return nil, fmt.Errorf("zengin: expected at least 3 records, got %d", len(lines))
	}

	decoder := japanese.ShiftJIS.NewDecoder()
	file := &File{}
	seenTrailer := false

	for i, line := range lines {
		if len(line) != RecordLength {
			return nil, fmt.Errorf("zengin: record %d is %d bytes", i+1, len(line))
		}
		decoded, err := decoder.Bytes(line)
		if err != nil {
			return nil, fmt.Errorf("zengin: record %d: %w", i+1, err)
		}
		rec := []rune(string(decoded))
		field := func(from, n int) string {
			return strings.TrimRight(string(rec[from:from+n]), " ")
		}

		switch string(rec[0]) {
		case recordHeader:
			if i != 0 {
				return nil, fmt.Errorf("zengin: header at record %d", i+1)
			}
			file.Header = Header{
				SenderCode:    field(4, 10),
				SenderName:    field(14, 40),
				TransferDate:  field(54, 4),
				BankCode:      field(58, 4),
				BranchCode:    field(77, 3),
				AccountType:   field(95, 1),
				AccountNumber: field(96, 7),
			}
		case recordData:
			if i == 0 || seenTrailer {
				return nil, fmt.Errorf("zengin: data record out of place at %d", i+1)
			}
			amount, err := strconv.ParseInt(field(80, 10), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("zengin: record %d amount: %w", i+1, err)
			}
			file.Data = append(file.Data, Data{
				BankCode:      field(1, 4),
				BranchCode:    field(20, 3),
				AccountType:   field(42, 1),
				AccountNumber: field(43, 7),
				RecipientName: field(50, 30),
				Amount:        amount,
				CustomerCode:  field(91, 10),
			})
		case recordTrailer:
			count, err := strconv.Atoi(field(1, 6))
			if err != nil {
				return nil, fmt.Errorf("zengin: trailer count: %w", err)
			}
			total, err := strconv.ParseInt(field(7, 12), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("zengin: trailer total: %w", err)
			}
			file.Trailer = Trailer{Count: count, Total: total}
			seenTrailer = true
		case recordEnd:
			if i != len(lines)-1 || !seenTrailer {
				return nil, fmt.Errorf("zengin: end record out of place at %d", i+1)
			}
		default:
			return nil, fmt.Errorf("zengin: unknown record type %q at %d", string(rec[0]), i+1)
		}
	}

	if file.Trailer.Count != len(file.Data) {
		return nil, fmt.Errorf("zengin: trailer count %d does not match %d data records", file.Trailer.Count, len(file.Data))
	}
	return file, nil
}
