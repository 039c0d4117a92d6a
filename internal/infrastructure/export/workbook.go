// Package export renders saved listings and applications as an Excel workbook.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"JobCopilot/internal/domain"
)

// Sheet names.
const (
	SheetSaved        = "Saved Listings"
	SheetApplications = "Applications"
)

const dateLayout = "2006-01-02"

var (
	savedHeaders = []string{"Title", "Company", "Location", "Platform", "Salary", "Match Score", "Status", "Posted", "Link"}
	appHeaders   = []string{"Job ID", "Title", "Company", "Applied", "Status", "Follow-ups", "Notes", "Application Link"}
)

// Workbook writes the export in one pass.
type Workbook struct {
	Saved        []domain.Listing
	Applications []domain.ApplicationDetails
}

// WriteTo renders both sheets to w.
func (wb Workbook) WriteTo(w io.Writer) (int64, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSaved); err != nil {
		return 0, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetApplications); err != nil {
		return 0, fmt.Errorf("create applications sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return 0, err
	}
	if err := writeSaved(f, styles, wb.Saved); err != nil {
		return 0, fmt.Errorf("failed to create saved listings sheet: %w", err)
	}
	if err := writeApplications(f, styles, wb.Saved, wb.Applications); err != nil {
		return 0, fmt.Errorf("failed to create applications sheet: %w", err)
	}

	n, err := f.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("write workbook: %w", err)
	}
	return n, nil
}

type sheetStyles struct {
	header int
	good   int
	fair   int
	poor   int
	link   int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{style: &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    border,
		}},
		{style: &excelize.Style{Fill: excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1}, Border: border}},
		{style: &excelize.Style{Fill: excelize.Fill{Type: "pattern", Color: []string{"FFEB9C"}, Pattern: 1}, Border: border}},
		{style: &excelize.Style{Fill: excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1}, Border: border}},
		{style: &excelize.Style{Font: &excelize.Font{Color: "0563C1", Underline: "single"}}},
	}

	var s sheetStyles
	targets := []*int{&s.header, &s.good, &s.fair, &s.poor, &s.link}
	for i, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return sheetStyles{}, fmt.Errorf("create style: %w", err)
		}
		*targets[i] = id
	}
	return s, nil
}

func (s sheetStyles) forScore(score *int) int {
	switch {
	case score == nil:
		return 0
	case *score >= 80:
		return s.good
	case *score >= 60:
		return s.fair
	default:
		return s.poor
	}
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	return f.SetColWidth(sheet, "A", last, 20)
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func writeLink(f *excelize.File, sheet string, col, row int, url string, style int) error {
	if url == "" {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellHyperLink(sheet, cell, url, "External"); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell, cell, style)
}

func writeSaved(f *excelize.File, styles sheetStyles, saved []domain.Listing) error {
	if err := writeHeader(f, SheetSaved, savedHeaders, styles.header); err != nil {
		return err
	}
	for i, l := range saved {
		row := i + 2
		var score any = ""
		if l.AIScore != nil {
			score = *l.AIScore
		}
		values := []any{l.Title, l.Company, l.Location, l.Platform, l.Salary, score, string(l.Status), formatDate(l.DatePosted), l.URL}
		if err := writeRow(f, SheetSaved, row, values); err != nil {
			return err
		}
		if style := styles.forScore(l.AIScore); style != 0 {
			cell, _ := excelize.CoordinatesToCellName(6, row)
			if err := f.SetCellStyle(SheetSaved, cell, cell, style); err != nil {
				return err
			}
		}
		if err := writeLink(f, SheetSaved, len(savedHeaders), row, l.URL, styles.link); err != nil {
			return err
		}
	}
	return nil
}

func writeApplications(f *excelize.File, styles sheetStyles, saved []domain.Listing, apps []domain.ApplicationDetails) error {
	if err := writeHeader(f, SheetApplications, appHeaders, styles.header); err != nil {
		return err
	}
	byID := make(map[string]domain.Listing, len(saved))
	for _, l := range saved {
		byID[l.ID] = l
	}
	for i, a := range apps {
		row := i + 2
		listing := byID[a.JobID]
		values := []any{a.JobID, listing.Title, listing.Company, formatDate(a.AppliedDate), string(a.Status), followUps(a.FollowUps), a.Notes, a.ApplicationURL}
		if err := writeRow(f, SheetApplications, row, values); err != nil {
			return err
		}
		if err := writeLink(f, SheetApplications, len(appHeaders), row, a.ApplicationURL, styles.link); err != nil {
			return err
		}
	}
	return nil
}

func followUps(items []domain.FollowUp) string {
	parts := make([]string, 0, len(items))
	for _, fu := range items {
		parts = append(parts, fmt.Sprintf("%s %s", formatDate(fu.Date), fu.Method))
	}
	return strings.Join(parts, "; ")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
