package davtest

import (
	"bytes"
	"net/http/httptest"

	"github.com/sonroyaalmerol/davsync/internal/davclient"
)

func adaptResponse(rec *httptest.ResponseRecorder) *davclient.Response {
	res := rec.Result()
	return davclient.NewResponse(res.StatusCode, bytes.Clone(rec.Body.Bytes()), res.Header)
}
