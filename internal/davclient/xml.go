package davclient

import (
	"encoding/xml"
	"strconv"
	"strings"
)

type multistatus struct {
	XMLName   xml.Name     `xml:"DAV: multistatus"`
	Responses []msResponse `xml:"DAV: response"`
}

type msResponse struct {
	Href      string       `xml:"DAV: href"`
	Status    string       `xml:"DAV: status"`
	PropStats []msPropStat `xml:"DAV: propstat"`
}

type msPropStat struct {
	Prop   msProp `xml:"DAV: prop"`
	Status string `xml:"DAV: status"`
}

type msProp struct {
	ResourceType struct {
		Collection *struct{} `xml:"DAV: collection"`
	} `xml:"DAV: resourcetype"`
	ETag         string  `xml:"DAV: getetag"`
	ContentType  string  `xml:"DAV: getcontenttype"`
	DisplayName  *string `xml:"DAV: displayname"`
	CalendarData string  `xml:"urn:ietf:params:xml:ns:caldav calendar-data"`
	AddressData  string  `xml:"urn:ietf:params:xml:ns:carddav address-data"`
}

// statusCode reads "HTTP/1.1 404 Not Found". Absent lines count as 200.
func statusCode(line string) int {
	f := strings.Fields(line)
	if len(f) < 2 {
		return 200
	}
	code, err := strconv.Atoi(f[1])
	if err != nil {
		return 200
	}
	return code
}

// ok reports whether the response and its first propstat succeeded, and
// returns the props found.
func (r msResponse) ok() (msProp, bool) {
	if r.Status != "" && statusCode(r.Status) != 200 {
		return msProp{}, false
	}
	for _, ps := range r.PropStats {
		if statusCode(ps.Status) == 200 {
			return ps.Prop, true
		}
	}
	return msProp{}, len(r.PropStats) == 0
}

func escapeText(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

const listBody = `<?xml version="1.0" encoding="utf-8" ?>
<D:propfind xmlns:D="DAV:">
  <D:prop>
    <D:resourcetype/>
    <D:getcontenttype/>
    <D:getetag/>
  </D:prop>
</D:propfind>`

const displayNameBody = `<?xml version="1.0" encoding="utf-8" ?>
<D:propfind xmlns:D="DAV:">
  <D:prop>
    <D:displayname/>
  </D:prop>
</D:propfind>`

func multigetBody(k Kind, hrefs []string) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8" ?>` + "\n")
	switch k {
	case CardDAV:
		b.WriteString(`<C:addressbook-multiget xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:carddav">`)
		b.WriteString(`<D:prop><D:getetag/><C:address-data/></D:prop>`)
	default:
		b.WriteString(`<C:calendar-multiget xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">`)
		b.WriteString(`<D:prop><D:getetag/><C:calendar-data/></D:prop>`)
	}
	for _, h := range hrefs {
		b.WriteString("<D:href>" + escapeText(h) + "</D:href>")
	}
	switch k {
	case CardDAV:
		b.WriteString(`</C:addressbook-multiget>`)
	default:
		b.WriteString(`</C:calendar-multiget>`)
	}
	return []byte(b.String())
}

func setDisplayNameBody(value string) []byte {
	op := "set"
	if value == "" {
		op = "remove"
	}
	return []byte(`<?xml version="1.0" encoding="utf-8" ?>
<D:propertyupdate xmlns:D="DAV:"><D:` + op + `><D:prop><D:displayname>` +
		escapeText(value) + `</D:displayname></D:prop></D:` + op + `></D:propertyupdate>`)
}

func mkcolBody(k Kind) []byte {
	if k == CalDAV {
		return nil
	}
	return []byte(`<?xml version="1.0" encoding="utf-8" ?>
<D:mkcol xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:carddav"><D:set><D:prop>` +
		`<D:resourcetype><D:collection/><C:addressbook/></D:resourcetype>` +
		`</D:prop></D:set></D:mkcol>`)
}
