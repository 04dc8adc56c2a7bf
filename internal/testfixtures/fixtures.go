package testfixtures

import "github.com/example/daily-scheduler/internal/rows"

// MedicationTable returns a canonical event table exercising frequencies,
// spacing, windows, and cross-event constraints together.
func MedicationTable() []rows.Row {
	amount := 500.0
	divisor := int64(2)
	note := "take with water"
	return []rows.Row{
		{
			Event:       "breakfast",
			Category:    "meal",
			Unit:        "serving",
			Frequency:   "1x daily",
			Windows:     []string{"08:00-09:00"},
			Constraints: []string{},
		},
		{
			Event:       "antibiotic",
			Category:    "medication",
			Unit:        "mg",
			Amount:      &amount,
			Divisor:     &divisor,
			Frequency:   "1x daily",
			Constraints: []string{"≥6h apart", "after breakfast"},
			Note:        &note,
		},
		{
			Event:       "vitamin",
			Category:    "supplement",
			Unit:        "pill",
			Frequency:   "1x daily",
			Constraints: []string{"with breakfast"},
		},
	}
}

// SingleEventTable returns the smallest valid table.
func SingleEventTable(name string) []rows.Row {
	return []rows.Row{{Event: name, Category: "medication", Unit: "pill", Frequency: "1x daily"}}
}
