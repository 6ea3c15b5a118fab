package integration

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"io"
	"net/http"
	"regexp"
	"strings"
	"testing"
)

// Minimal Multi-Status parser sufficient for validations (RFC 4918 §13)
type multiStatus struct {
	XMLName   xml.Name     `xml:"multistatus"`
	Responses []msResponse `xml:"response"`
}
type msResponse struct {
	Href     string     `xml:"href"`
	PropStat []propStat `xml:"propstat"`
	Status   string     `xml:"status"`
}
type propStat struct {
	Status  string `xml:"status"`
	PropRaw anyXML `xml:"prop"`
}
type anyXML struct {
	Inner string `xml:",innerxml"`
}

func parseMultiStatus(b []byte) (*multiStatus, error) {
	var ms multiStatus
	if err := xml.Unmarshal(b, &ms); err != nil {
		return nil, err
	}
	return &ms, nil
}

func statusOK(s string) bool {
	// Typical format: "HTTP/1.1 200 OK"
	return strings.Contains(s, " 200 ")
}

var etagRe = regexp.MustCompile(`^(W/)?"[^"]+"$`)

func validETag(s string) bool {
	return etagRe.MatchString(strings.TrimSpace(s))
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

// send performs one request and returns the response with its body read.
func send(t *testing.T, client *http.Client, method, url, body string, kv ...string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("build %s %s: %v", method, url, err)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		req.Header.Set(kv[i], kv[i+1])
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s %s: %v", method, url, err)
	}
	return resp, b
}

func expectStatus(t *testing.T, resp *http.Response, body []byte, want int) {
	t.Helper()
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status %d, want %d body=%s", resp.Request.Method, resp.Request.URL, resp.StatusCode, want, string(body))
	}
}
