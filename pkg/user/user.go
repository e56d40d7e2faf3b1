package user

import (
	"time"
)

const DefaultCurrency = "USD"

type User struct {
	Id          int
	Uid         string
	Username    string
	DisplayName string
	Settings    Settings
}

type Settings struct {
	// Currency is the ISO 4217 code reports are expressed in.
	Currency string
	Timezone string
	// MonthStartDay is the day of month (1-28) a budget month begins on, e.g. payday.
	MonthStartDay int
}

// Location returns the user's timezone, UTC when unset or unknown.
func (s Settings) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
