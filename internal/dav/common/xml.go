package common

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
)

const (
	NSDAV     = "DAV:"
	NSCalDAV  = "urn:ietf:params:xml:ns:caldav"
	NSCardDAV = "urn:ietf:params:xml:ns:carddav"
	NSCS      = "http://calendarserver.org/ns/"
)

// Outgoing documents use fixed prefixes.

type MultiStatus struct {
	XMLName   xml.Name   `xml:"D:multistatus"`
	XmlnsD    string     `xml:"xmlns:D,attr"`
	XmlnsC    string     `xml:"xmlns:C,attr"`
	XmlnsCard string     `xml:"xmlns:CARD,attr"`
	XmlnsCS   string     `xml:"xmlns:CS,attr"`
	Responses []Response `xml:"D:response"`
}

type Response struct {
	Href     string     `xml:"D:href"`
	PropStat []PropStat `xml:"D:propstat,omitempty"`
	Status   string     `xml:"D:status,omitempty"`
}

type PropStat struct {
	Prop   Prop   `xml:"D:prop"`
	Status string `xml:"D:status"`
}

type Prop struct {
	ResourceType    *ResourceType `xml:"D:resourcetype,omitempty"`
	DisplayName     *string       `xml:"D:displayname,omitempty"`
	GetETag         string        `xml:"D:getetag,omitempty"`
	GetContentType  string        `xml:"D:getcontenttype,omitempty"`
	GetLastModified string        `xml:"D:getlastmodified,omitempty"`
	GetCTag         string        `xml:"CS:getctag,omitempty"`
	CalendarData    string        `xml:"C:calendar-data,omitempty"`
	AddressData     string        `xml:"CARD:address-data,omitempty"`
}

type ResourceType struct {
	Collection  *struct{} `xml:"D:collection,omitempty"`
	Calendar    *struct{} `xml:"C:calendar,omitempty"`
	Addressbook *struct{} `xml:"CARD:addressbook,omitempty"`
}

// Incoming documents are matched by namespace, so any prefix works.

// SetProp is the DAV:prop of a PROPPATCH, MKCOL or MKCALENDAR set.
type SetProp struct {
	DisplayName  *string `xml:"DAV: displayname"`
	ResourceType *struct {
		Calendar    *struct{} `xml:"urn:ietf:params:xml:ns:caldav calendar"`
		Addressbook *struct{} `xml:"urn:ietf:params:xml:ns:carddav addressbook"`
	} `xml:"DAV: resourcetype"`
}

// PropertyUpdate covers propertyupdate, mkcol and mkcalendar bodies.
type PropertyUpdate struct {
	Set []struct {
		Prop SetProp `xml:"DAV: prop"`
	} `xml:"DAV: set"`
	Remove []struct {
		Prop SetProp `xml:"DAV: prop"`
	} `xml:"DAV: remove"`
}

type Multiget struct {
	Hrefs []string `xml:"DAV: href"`
}

func Status(code int) string {
	return fmt.Sprintf("HTTP/1.1 %d %s", code, http.StatusText(code))
}

func WriteMultiStatus(w http.ResponseWriter, ms MultiStatus) {
	ms.XmlnsD = NSDAV
	ms.XmlnsC = NSCalDAV
	ms.XmlnsCard = NSCardDAV
	ms.XmlnsCS = NSCS

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(ms); err != nil {
		http.Error(w, fmt.Sprintf("xml encode error: %v", err), http.StatusInternalServerError)
		return
	}
	_ = enc.Flush()
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, _ = w.Write(buf.Bytes())
}
