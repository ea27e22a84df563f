// Package model defines the data structures used throughout the application.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Default head counts applied when the form omits them.
const (
	DefaultAdultGuests = 1
	DefaultChildren    = 0
)

// RSVP is a guest's answer as posted by the invitation page.
//
// It is never stored locally: its only destination is one row in the
// RSVP spreadsheet. The JSON field names match the browser form.
type RSVP struct {
	Name               string `json:"name"`
	Attending          *bool  `json:"attending"`
	Guests             *Count `json:"guests"`
	OtherGuests        string `json:"otherGuests"`
	ChildrenCount      *Count `json:"childrenCount"`
	NeedsAccommodation bool   `json:"needsAccommodation"`
	Diet               string `json:"diet"`
	Message            string `json:"message"`
}

// IsAttending reports the attendance answer. A missing answer reads as "no".
func (r RSVP) IsAttending() bool {
	return r.Attending != nil && *r.Attending
}

// AdultGuests returns the adult head count, defaulting to 1.
func (r RSVP) AdultGuests() int {
	if r.Guests == nil {
		return DefaultAdultGuests
	}
	return int(*r.Guests)
}

// Children returns the children count, defaulting to 0.
func (r RSVP) Children() int {
	if r.ChildrenCount == nil {
		return DefaultChildren
	}
	return int(*r.ChildrenCount)
}

// Count is a head count that accepts either a JSON number or a numeric
// string. Browser FormData values arrive as strings ("2"), while the form
// falls back to the number 0 for empty inputs.
type Count int

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*c = 0
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("model: count %q is not a number", s)
		}
		*c = Count(n)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("model: count must be a number: %w", err)
	}
	i, err := n.Int64()
	if err != nil {
		return fmt.Errorf("model: count %s is not an integer", n)
	}
	*c = Count(i)
	return nil
}
