package models

import "fmt"

// Cents is a currency amount in integer minor units. All money arithmetic in
// the ledger happens on this type so equality checks stay exact.
type Cents int64

// String renders the amount as a decimal, e.g. 60000 -> "600.00".
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Units returns the amount as a float for display-only consumers.
func (c Cents) Units() float64 {
	return float64(c) / 100
}
