package payment

import (
	"fmt"

	paymentDatamodel "github.com/frahmantamala/reimbursement-management/internal/core/datamodel/payment"
	"github.com/xuri/excelize/v2"
)

const summarySheet = "Batch"

var summaryHeaders = []string{
	"Application Number", "Member", "Bank Code", "Branch Code",
	"Account Type", "Account Number", "Account Holder", "Amount",
}

func renderSummary(batchID string, rows []*paymentDatamodel.TransferRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(summarySheet, "A1", batchID); err != nil {
		return nil, err
	}
	for i, header := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		if err := f.SetCellValue(summarySheet, cell, header); err != nil {
			return nil, err
		}
	}

	var total int64
	for i, p := range rows {
		row := i + 4
		values := []interface{}{
			p.ApplicationNumber, p.UserName, p.BankCode, p.BranchCode,
			p.AccountType, p.AccountNumber, p.AccountHolderKana, p.Amount,
		}
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, err
		}
		total += p.Amount
	}

	totalRow := len(rows) + 4
	if err := f.SetCellValue(summarySheet, fmt.Sprintf("G%d", totalRow), "Total"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(summarySheet, fmt.Sprintf("H%d", totalRow), total); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
