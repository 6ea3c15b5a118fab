package davclient

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Item is one calendar object or vCard, kept as the exact text it was
// uploaded or fetched with.
type Item struct {
	Raw string
}

// UID returns the first UID property, or "" when there is none.
func (i Item) UID() string {
	for _, line := range unfold(i.Raw) {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name, _, _ = strings.Cut(name, ";")
		if strings.EqualFold(strings.TrimSpace(name), "UID") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// Ident identifies the item across storages: its UID, or its hash without one.
func (i Item) Ident() string {
	if uid := i.UID(); uid != "" {
		return uid
	}
	return i.Hash()
}

// Hash fingerprints the content, ignoring line endings and properties that
// servers rewrite freely.
func (i Item) Hash() string {
	d := xxhash.New()
	for _, line := range unfold(i.Raw) {
		upper := strings.ToUpper(line)
		if strings.HasPrefix(upper, "PRODID") || strings.HasPrefix(upper, "DTSTAMP") {
			continue
		}
		_, _ = d.WriteString(line)
		_, _ = d.WriteString("\n")
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

func unfold(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if len(out) > 0 && line != "" && (line[0] == ' ' || line[0] == '\t') {
			out[len(out)-1] += line[1:]
			continue
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func safeIdent(s string) bool {
	if s == "" || strings.Contains(s, "..") {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '.', r == '-', r == '+':
		default:
			return false
		}
	}
	return true
}
