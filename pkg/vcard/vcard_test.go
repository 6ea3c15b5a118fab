package vcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const card = "BEGIN:VCARD\r\nVERSION:3.0\r\nUID:c1\r\nFN:Alice Example\r\nN:Example;Alice;;;\r\nEND:VCARD\r\n"

func TestValidateVCard(t *testing.T) {
	assert.NoError(t, ValidateVCard([]byte(card)))
	assert.Equal(t, "c1", UID([]byte(card)))
}

func TestValidateVCardLFOnly(t *testing.T) {
	lf := "BEGIN:VCARD\nVERSION:3.0\nFN:Bob\nEND:VCARD\n"
	assert.NoError(t, ValidateVCard([]byte(lf)))
}

func TestValidateVCardRejects(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":      "",
		"bare":       "UID:1",
		"no end":     "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:x\r\n",
		"no fn":      "BEGIN:VCARD\r\nVERSION:3.0\r\nUID:x\r\nEND:VCARD\r\n",
		"no version": "BEGIN:VCARD\r\nFN:x\r\nEND:VCARD\r\n",
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, ValidateVCard([]byte(raw)))
		})
	}
}
