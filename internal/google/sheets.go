package google

import (
	"context"
	"fmt"
	"os"

	"clientbook/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const bookingsRange = "Bookings!A:K"

// SheetsMirror pushes booking rows to a Google spreadsheet so the calendar
// is visible outside the local database. Best effort: the engine never
// depends on it.
type SheetsMirror struct {
	service       *sheets.Service
	spreadsheetID string
}

// NewSheetsMirror authenticates with a service-account JWT credentials file.
func NewSheetsMirror(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsMirror, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return &SheetsMirror{service: srv, spreadsheetID: spreadsheetID}, nil
}

// TestConnection reads the header cell to verify access.
func (s *SheetsMirror) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, "Bookings!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// AppendBooking adds one row at the bottom of the bookings sheet.
func (s *SheetsMirror) AppendBooking(ctx context.Context, b *models.Booking) error {
	values := &sheets.ValueRange{Values: [][]interface{}{bookingRow(b)}}
	_, err := s.service.Spreadsheets.Values.
		Append(s.spreadsheetID, bookingsRange, values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append booking row: %w", err)
	}
	return nil
}

// ReplaceBookings rewrites the whole sheet from the given set. Used for the
// periodic full refresh rather than tracking per-row positions.
func (s *SheetsMirror) ReplaceBookings(ctx context.Context, bookings []*models.Booking) error {
	rows := make([][]interface{}, 0, len(bookings)+1)
	rows = append(rows, []interface{}{
		"ID", "Client", "Service", "Start", "Duration", "Status",
		"Total", "Deposit", "Deposit Received", "Paid", "Recurrence",
	})
	for _, b := range bookings {
		rows = append(rows, bookingRow(b))
	}

	if _, err := s.service.Spreadsheets.Values.
		Clear(s.spreadsheetID, bookingsRange, &sheets.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear bookings sheet: %w", err)
	}

	_, err := s.service.Spreadsheets.Values.
		Update(s.spreadsheetID, "Bookings!A1", &sheets.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update bookings sheet: %w", err)
	}
	return nil
}

func bookingRow(b *models.Booking) []interface{} {
	return []interface{}{
		b.ID,
		b.ClientID,
		b.Service,
		b.DateTime.Format("2006-01-02 15:04"),
		b.DurationMin,
		string(b.Status),
		b.Total().String(),
		b.DepositAmount.String(),
		b.DepositReceived,
		b.PaymentReceived,
		string(b.Recurrence),
	}
}
