package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"clientbook/internal/database"
	"clientbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Exporter writes booking and ledger snapshots to XLSX workbooks.
type Exporter struct {
	db     *database.DB
	dir    string
	logger zerolog.Logger
}

func New(db *database.DB, dir string, logger *zerolog.Logger) *Exporter {
	return &Exporter{
		db:     db,
		dir:    dir,
		logger: logger.With().Str("component", "export").Logger(),
	}
}

var bookingHeaders = []string{
	"ID", "Client", "Service", "Start", "Duration (min)", "Status",
	"Total", "Deposit", "Deposit Received", "Paid", "Recurrence",
}

var ledgerHeaders = []string{
	"Date", "Booking", "Label", "Method", "Amount", "Notes",
}

// WriteRange builds a workbook with a bookings sheet and a ledger sheet for
// the period and returns the file path.
func (e *Exporter) WriteRange(ctx context.Context, start, end time.Time) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	bookings, err := e.db.ListBookingsInRange(ctx, start, end)
	if err != nil {
		return "", fmt.Errorf("export bookings: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeBookingsSheet(f, bookings); err != nil {
		return "", err
	}
	if err := e.writeLedgerSheet(ctx, f, bookings); err != nil {
		return "", err
	}
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx",
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	path := filepath.Join(e.dir, fileName)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}

	e.logger.Info().
		Str("path", path).
		Int("bookings", len(bookings)).
		Msg("export written")
	return path, nil
}

func (e *Exporter) writeBookingsSheet(f *excelize.File, bookings []*models.Booking) error {
	const sheet = "Bookings"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	writeHeaderRow(f, sheet, bookingHeaders)
	for i, b := range bookings {
		row := i + 2
		values := []any{
			b.ID, b.ClientID, b.Service, b.DateTime.Format("2006-01-02 15:04"),
			b.DurationMin, string(b.Status),
			b.Total().String(), b.DepositAmount.String(),
			b.DepositReceived, b.PaymentReceived, string(b.Recurrence),
		}
		setRow(f, sheet, row, values)
	}

	_ = f.SetColWidth(sheet, "A", "A", 36)
	_ = f.SetColWidth(sheet, "B", "K", 18)
	return nil
}

func (e *Exporter) writeLedgerSheet(ctx context.Context, f *excelize.File, bookings []*models.Booking) error {
	const sheet = "Ledger"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	writeHeaderRow(f, sheet, ledgerHeaders)
	row := 2
	for _, b := range bookings {
		payments, err := e.db.ListPaymentsForBooking(ctx, b.ID)
		if err != nil {
			return fmt.Errorf("export ledger: %w", err)
		}
		for _, p := range payments {
			setRow(f, sheet, row, []any{
				p.Date.Format("2006-01-02"), p.BookingID, string(p.Label),
				p.Method, p.Amount.String(), p.Notes,
			})
			row++
		}
	}

	_ = f.SetColWidth(sheet, "A", "F", 20)
	return nil
}

func writeHeaderRow(f *excelize.File, sheet string, headers []string) {
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	style, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	_ = f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values []any) {
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
