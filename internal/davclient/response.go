package davclient

import (
	"mime"
	"net/http"
	"strconv"
)

// Response is the transport-neutral result of a Session call.
type Response struct {
	StatusCode int
	Content    []byte
	Header     http.Header
	// Encoding is the charset declared by Content-Type, empty when absent.
	Encoding string
}

func NewResponse(status int, content []byte, header http.Header) *Response {
	if header == nil {
		header = http.Header{}
	}
	return &Response{
		StatusCode: status,
		Content:    content,
		Header:     header,
		Encoding:   Charset(header.Get("Content-Type")),
	}
}

// RaiseForStatus returns an *HTTPError for 4xx and 5xx responses.
func (r *Response) RaiseForStatus() error {
	if r.StatusCode >= 400 && r.StatusCode <= 599 {
		return &HTTPError{StatusCode: r.StatusCode}
	}
	return nil
}

// HTTPError reports an error status. Its message is the bare status code.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return strconv.Itoa(e.StatusCode)
}

// Charset extracts the charset parameter of a Content-Type value.
func Charset(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}
