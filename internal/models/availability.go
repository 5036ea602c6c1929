package models

import "time"

// DayAvailability marks a calendar day as open, limited to a window, busy, or
// off. Days without a record are treated as open.
type DayAvailability struct {
	Date        time.Time `json:"date"` // date component only, local midnight
	Status      DayStatus `json:"status"`
	StartMinute int       `json:"start_minute"` // window for limited days, minutes from midnight
	EndMinute   int       `json:"end_minute"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Covers reports whether a booking spanning [start, end) fits the day record.
// Off and busy days cover nothing; limited days cover only their window.
func (d *DayAvailability) Covers(start, end time.Time) bool {
	switch d.Status {
	case DayOff, DayBusy:
		return false
	case DayLimited:
		winStart := d.Date.Add(time.Duration(d.StartMinute) * time.Minute)
		winEnd := d.Date.Add(time.Duration(d.EndMinute) * time.Minute)
		return !start.Before(winStart) && !end.After(winEnd)
	default:
		return true
	}
}

// ServiceOffering is one entry of the provider's service catalog, used to
// prefill rate and duration on new bookings.
type ServiceOffering struct {
	Name        string `yaml:"name" json:"name"`
	DurationMin int    `yaml:"duration_min" json:"duration_min"`
	BaseRate    Cents  `yaml:"base_rate_cents" json:"base_rate_cents"`
}
