package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"cardscan/internal/contact"
)

// Service produces XLSX bytes for contact exports.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ContactsXLSX returns an XLSX workbook (as bytes) with one row per record.
// Records with no identifying information are skipped rather than exported as
// blank rows.
func (s *Service) ContactsXLSX(records []*contact.Record) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Contacts"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Name",
		"Company",
		"Title",
		"Phone",
		"Email",
		"Website",
		"Address",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	skipped := 0
	for _, r := range records {
		if r == nil || !r.HasIdentity() {
			skipped++
			continue
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.DisplayName())
		write(2, r.Company)
		write(3, r.Title)
		write(4, r.Phone)
		write(5, r.Email)
		write(6, r.Website)
		write(7, r.Address)

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "A", 24) // name
	_ = f.SetColWidth(sheet, "B", "B", 28) // company
	_ = f.SetColWidth(sheet, "C", "C", 20) // title
	_ = f.SetColWidth(sheet, "D", "E", 22) // phone, email
	_ = f.SetColWidth(sheet, "F", "F", 28) // website
	_ = f.SetColWidth(sheet, "G", "G", 48) // address

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", row-2,
		"skipped", skipped,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
