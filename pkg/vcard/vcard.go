package vcard

import (
	"errors"
	"fmt"
	"io"
	"strings"

	govcard "github.com/emersion/go-vcard"
)

// ValidateVCard checks that raw holds at least one card and that every card
// carries VERSION and FN.
func ValidateVCard(raw []byte) error {
	if len(raw) == 0 {
		return errors.New("empty vCard data")
	}

	content := string(raw)
	if !strings.Contains(content, "BEGIN:VCARD") {
		return errors.New("vCard data missing BEGIN:VCARD")
	}
	if !strings.Contains(content, "END:VCARD") {
		return errors.New("vCard data missing END:VCARD")
	}

	cards, err := parseAll(raw)
	if err != nil {
		return fmt.Errorf("vCard parsing failed: %w", err)
	}
	if len(cards) == 0 {
		return errors.New("no valid vCard found after parsing")
	}

	for i, c := range cards {
		if c.Value(govcard.FieldVersion) == "" {
			return fmt.Errorf("vCard %d missing VERSION", i)
		}
		if c.Value(govcard.FieldFormattedName) == "" {
			return fmt.Errorf("vCard %d missing FN", i)
		}
	}
	return nil
}

// UID returns the UID of the first card, if any.
func UID(raw []byte) string {
	cards, err := parseAll(raw)
	if err != nil || len(cards) == 0 {
		return ""
	}
	return cards[0].Value(govcard.FieldUID)
}

func parseAll(b []byte) ([]govcard.Card, error) {
	// Normalize line endings to CRLF as required by RFC 6350
	content := strings.ReplaceAll(string(b), "\n", "\r\n")
	content = strings.ReplaceAll(content, "\r\r\n", "\r\n")

	dec := govcard.NewDecoder(strings.NewReader(content))
	var out []govcard.Card
	for {
		c, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode vCard: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}
