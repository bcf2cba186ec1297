package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/bqs/internal/listing"
)

const (
	sheetOpportunities = "Opportunities"
	sheetCounts        = "Counts"
)

var listingHeader = []string{
	"ID", "Number", "Name", "Customer", "Practice", "Geography", "Stage",
	"Value", "Currency", "Close date", "Status", "Win probability", "Version",
	"PH", "SH", "SA", "SP", "GH approval", "PH approval", "SH approval",
}

// ListingWorkbook: выгрузка листинга, строки и счётчики по вкладкам.
type ListingWorkbook struct {
	File *excelize.File
}

func NewListingWorkbook(res *listing.Result) (*ListingWorkbook, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetOpportunities); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for c, h := range listingHeader {
		if err := f.SetCellStr(sheetOpportunities, cell(c, 1), h); err != nil {
			return nil, err
		}
	}
	for i, it := range res.Items {
		r := i + 2
		var closeDate, win any
		if it.CloseDate != nil {
			closeDate = it.CloseDate.Format("2006-01-02")
		}
		if it.WinProbability != nil {
			win = *it.WinProbability
		}
		values := []any{
			it.ID, it.Number, it.Name, it.Customer, it.Practice, it.Geography, it.Stage,
			it.Value, it.Currency, closeDate, string(it.WorkflowStatus), win, it.VersionNo,
			it.PHName, it.SHName, it.SAName, it.SPName,
			string(it.Approvals.GH), string(it.Approvals.PH), string(it.Approvals.SH),
		}
		for c, v := range values {
			if v == nil {
				continue
			}
			if err := f.SetCellValue(sheetOpportunities, cell(c, r), v); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell(c, r), err)
			}
		}
	}
	if err := ApplyDefaultExcelFormatting(f, sheetOpportunities); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(sheetCounts); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	_ = f.SetCellStr(sheetCounts, "A1", "Tab")
	_ = f.SetCellStr(sheetCounts, "B1", "Count")
	tabs := make([]string, 0, len(res.Counts))
	for t := range res.Counts {
		tabs = append(tabs, string(t))
	}
	sort.Strings(tabs)
	for i, t := range tabs {
		_ = f.SetCellStr(sheetCounts, cell(0, i+2), t)
		_ = f.SetCellValue(sheetCounts, cell(1, i+2), res.Counts[listing.Tab(t)])
	}
	r := len(tabs) + 3
	_ = f.SetCellStr(sheetCounts, cell(0, r), "Total value")
	_ = f.SetCellValue(sheetCounts, cell(1, r), res.TotalValue)
	if err := ApplyDefaultExcelFormatting(f, sheetCounts); err != nil {
		return nil, err
	}

	return &ListingWorkbook{File: f}, nil
}

func (w *ListingWorkbook) WriteTo(out io.Writer) (int64, error) {
	return w.File.WriteTo(out)
}

func cell(col, row int) string {
	return fmt.Sprintf("%s%d", columnName(col+1), row)
}
