// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package export renders admin reports as XLSX workbooks.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"bizdir/internal/models"
)

// AdsSheet is the name of the single sheet in an ads workbook.
const AdsSheet = "Ads"

// adHeader is the first row of the ads sheet.
var adHeader = []any{
	"ID", "Title", "Status", "Active", "Banner", "Target type", "Target ID",
	"Priority", "Start", "End", "Clicks", "Impressions", "CTR %",
	"Rejection reason", "Created by", "Created at",
}

// Ads builds a workbook with one row per ad and returns the suggested
// filename and the file bytes.
func Ads(items []models.Ad, now time.Time) (string, []byte, error) {
	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), AdsSheet); err != nil {
		return "", nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := xl.SetSheetRow(AdsSheet, "A1", &adHeader); err != nil {
		return "", nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := xl.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", nil, fmt.Errorf("header style: %w", err)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(adHeader))
	if err := xl.SetCellStyle(AdsSheet, "A1", lastCol+"1", bold); err != nil {
		return "", nil, fmt.Errorf("apply header style: %w", err)
	}
	if err := xl.SetPanes(AdsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return "", nil, fmt.Errorf("freeze header: %w", err)
	}

	for i := range items {
		row := adRow(&items[i])
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(AdsSheet, cell, &row); err != nil {
			return "", nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	_ = xl.SetColWidth(AdsSheet, "A", "A", 38)
	_ = xl.SetColWidth(AdsSheet, "B", "B", 32)

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("write workbook: %w", err)
	}
	filename := fmt.Sprintf("ads-%s.xlsx", now.UTC().Format("20060102-150405"))
	return filename, buf.Bytes(), nil
}

func adRow(a *models.Ad) []any {
	targetID := ""
	if a.TargetID != nil {
		targetID = a.TargetID.String()
	}
	reason := ""
	if a.RejectionReason != nil {
		reason = *a.RejectionReason
	}
	return []any{
		a.ID.String(),
		a.Title,
		string(a.Status),
		a.IsActive,
		string(a.BannerType),
		string(a.TargetType),
		targetID,
		a.Priority,
		a.StartAt.UTC().Format(time.RFC3339),
		a.EndAt.UTC().Format(time.RFC3339),
		a.Clicks,
		a.Impressions,
		ctr(a.Clicks, a.Impressions),
		reason,
		a.CreatedBy.String(),
		a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ctr is the click-through rate in percent, rounded to two decimals.
func ctr(clicks, impressions int64) float64 {
	if impressions == 0 {
		return 0
	}
	pct := float64(clicks) * 100 / float64(impressions)
	return float64(int64(pct*100+0.5)) / 100
}
