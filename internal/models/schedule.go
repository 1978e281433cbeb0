package models

import (
	"fmt"
	"strings"

	"github.com/robfig/cron"
)

// Schedule is a cron expression split into its five standard fields.
// Tasks persist the fields individually; the public representation is the
// joined expression.
type Schedule struct {
	Minute     string `json:"minute"`
	Hour       string `json:"hour"`
	DayOfMonth string `json:"dom"`
	Month      string `json:"month"`
	DayOfWeek  string `json:"dow"`
}

// DefaultSchedule runs once a day at midnight.
func DefaultSchedule() Schedule {
	return Schedule{Minute: "0", Hour: "0", DayOfMonth: "*", Month: "*", DayOfWeek: "*"}
}

// ParseSchedule splits a five-field cron expression into a Schedule.
func ParseSchedule(expr string) (Schedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return Schedule{}, fmt.Errorf("expected 5 cron fields, got %d", len(fields))
	}
	s := Schedule{
		Minute:     fields[0],
		Hour:       fields[1],
		DayOfMonth: fields[2],
		Month:      fields[3],
		DayOfWeek:  fields[4],
	}
	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// String renders the schedule as a standard five-field cron expression.
func (s Schedule) String() string {
	return strings.Join([]string{s.Minute, s.Hour, s.DayOfMonth, s.Month, s.DayOfWeek}, " ")
}

// IsZero reports whether no field has been set.
func (s Schedule) IsZero() bool {
	return s.Minute == "" && s.Hour == "" && s.DayOfMonth == "" && s.Month == "" && s.DayOfWeek == ""
}

// Validate checks the expression with the standard cron parser.
func (s Schedule) Validate() error {
	if _, err := cron.ParseStandard(s.String()); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.String(), err)
	}
	return nil
}
