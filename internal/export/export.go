// Package export writes receipts to spreadsheet files.
package export

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/receiptos/receiptos/internal/receipt"
)

// SheetName is the worksheet receipts are written to
const SheetName = "Receipts"

// Headers are the column titles, in column order
var Headers = []string{
	"Received At",
	"Service",
	"Entity",
	"Document Type",
	"Category",
	"Risk",
	"Retention",
	"Retention Days",
	"Revoke Path",
	"Data Items",
	"Third Parties",
	"Over Collection",
	"Summary",
}

const maxSummary = 140

// ReceiptsXLSX returns an XLSX workbook with one row per receipt, labeled
// with the classifier's risk level
func ReceiptsXLSX(receipts []receipt.Receipt, classifier receipt.Classifier) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Reuse the default Sheet1
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(SheetName, cell, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	for i, r := range receipts {
		row := i + 2
		values := []any{
			r.ReceivedAt,
			r.ServiceName,
			r.EntityName,
			string(r.DocType),
			string(r.Category),
			string(classifier.Classify(r)),
			r.Retention,
			r.RetentionDays,
			r.RevokePathOrEmpty(),
			strings.Join(r.DataItems, ", "),
			strings.Join(r.ThirdPartyServices, ", "),
			overCollection(r),
			truncate(r.Summary, maxSummary),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return nil, fmt.Errorf("writing row %d: %w", row, err)
			}
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 22) // received at
	_ = f.SetColWidth(SheetName, "B", "C", 24) // service, entity
	_ = f.SetColWidth(SheetName, "D", "F", 16)
	_ = f.SetColWidth(SheetName, "G", "H", 14)
	_ = f.SetColWidth(SheetName, "I", "L", 32)
	_ = f.SetColWidth(SheetName, "M", "M", 60) // summary

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	slog.Info("Exported receipts", "rows", len(receipts), "bytes", buf.Len())
	return buf.Bytes(), nil
}

func overCollection(r receipt.Receipt) string {
	if !r.OverCollection {
		return ""
	}
	if len(r.OverCollectionReasons) == 0 {
		return "yes"
	}
	return strings.Join(r.OverCollectionReasons, "; ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
