package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/bqs/internal/listing"
	"github.com/Spok95/bqs/internal/models"
)

func TestNewListingWorkbook(t *testing.T) {
	score := 77
	res := &listing.Result{
		Items: []listing.Item{
			{ID: "O1", Name: "Migration", Customer: "Acme", Value: 1200.5, Currency: "USD",
				WorkflowStatus: models.StatusPendingGHApproval, WinProbability: &score, VersionNo: 1,
				SAName: "Alice", Approvals: models.Approvals{GH: models.ApprovalPending}},
			{ID: "O2", Name: "Support", Customer: "Globex", Value: 300},
		},
		Counts:     map[listing.Tab]int{listing.TabAll: 2, listing.TabReview: 1},
		TotalValue: 1500.5,
	}

	wb, err := NewListingWorkbook(res)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := wb.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := f.GetRows(sheetOpportunities)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][0] != "ID" || rows[1][2] != "Migration" {
		t.Fatalf("rows = %v", rows)
	}
	if rows[1][10] != "PENDING_GH_APPROVAL" || rows[1][11] != "77" || rows[1][15] != "Alice" {
		t.Fatalf("row 1 = %v", rows[1])
	}
	if v, _ := f.GetCellValue(sheetCounts, "B2"); v != "2" {
		t.Fatalf("count all = %q", v)
	}
}

func TestColumnNameAndFilename(t *testing.T) {
	if columnName(1) != "A" || columnName(26) != "Z" || columnName(27) != "AA" {
		t.Fatal("columnName")
	}
	got := BuildListingFilename([]string{"review", "completed"}, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if got != "BQS opportunities — review, completed — 2026-03-01.xlsx" {
		t.Fatalf("filename = %q", got)
	}
}
