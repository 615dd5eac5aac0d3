package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 4 << 10

// StatusError describes a non-2xx response from a downstream service.
type StatusError struct {
	Service    string
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, msg)
}

// Temporary reports whether the failure is worth a later manual retry.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// ReadStatusError consumes and closes resp.Body and returns a StatusError.
// Structured bodies of the form {"error":{"code","message"}} or
// {"error":"..."} keep their message; anything else is kept as a trimmed
// snippet.
func ReadStatusError(resp *http.Response, service string) error {
	defer drain(resp)

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	se := &StatusError{Service: service, StatusCode: resp.StatusCode}

	var structured struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &structured) == nil && len(structured.Error) > 0 {
		var obj struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		var str string
		switch {
		case json.Unmarshal(structured.Error, &obj) == nil && obj.Message != "":
			se.Code, se.Message = obj.Code, obj.Message
			return se
		case json.Unmarshal(structured.Error, &str) == nil && str != "":
			se.Message = str
			return se
		}
	}

	se.Message = strings.TrimSpace(string(body))
	if se.Message == "" {
		se.Message = http.StatusText(resp.StatusCode)
	}
	return se
}

// IsSuccess reports whether status is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
