package ical

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

// Validate parses an iCalendar object and checks it holds one supported
// component with a UID and well-formed recurrence rules. It returns the
// component name.
func Validate(data []byte) (string, error) {
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return "", fmt.Errorf("failed to parse calendar: %w", err)
	}
	comp, err := detect(cal)
	if err != nil {
		return "", err
	}
	for _, child := range cal.Children {
		if !supported(child.Name) {
			continue
		}
		if p := child.Props.Get(ical.PropUID); p == nil || p.Value == "" {
			return "", fmt.Errorf("%s without UID", child.Name)
		}
		if err := ValidateRecurrence(child); err != nil {
			return "", err
		}
	}
	return comp, nil
}

// ValidateRecurrence rejects RRULE values rrule-go cannot parse.
func ValidateRecurrence(comp *ical.Component) error {
	for _, p := range comp.Props[ical.PropRecurrenceRule] {
		if _, err := rrule.StrToROption(p.Value); err != nil {
			return fmt.Errorf("invalid RRULE %q: %w", p.Value, err)
		}
	}
	return nil
}

func detect(cal *ical.Calendar) (string, error) {
	// Get first component of supported type
	for _, child := range cal.Children {
		if supported(child.Name) {
			return child.Name, nil
		}
	}
	return "", errors.New("unsupported component")
}

func supported(name string) bool {
	return name == ical.CompEvent || name == ical.CompToDo || name == ical.CompJournal
}
