package client

import (
	"fmt"
	"net/http"

	"lexshare/inflight"
	"lexshare/share"

	"github.com/tidwall/gjson"
)

// RemoteError is a non-2xx answer from the server.
// It unwraps to the matching share or inflight error so callers can use errors.Is.
type RemoteError struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
}

func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case "validation":
		verr := &share.ValidationError{Message: e.Message}
		if len(e.Fields) == 1 {
			for field, msg := range e.Fields {
				verr.Field, verr.Message = field, msg
			}
		}
		return verr
	case "not_owner":
		return share.ErrNotOwner
	case "forbidden":
		return share.ErrForbidden
	case "not_found":
		return share.ErrNotFound
	case "not_pending":
		return share.ErrNotPending
	case "self_suggestion":
		return share.ErrSelfSuggestion
	case "duplicate_report":
		return share.ErrDuplicateReport
	case "busy":
		return inflight.ErrBusy
	}
	if e.Status == http.StatusNotFound {
		return share.ErrNotFound
	}
	return nil
}

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// remoteError builds a RemoteError from an error response body.
// Bodies that are not the server's JSON error shape keep the raw text as the message.
func remoteError(status int, body []byte) *RemoteError {
	e := &RemoteError{Status: status}
	if !gjson.ValidBytes(body) {
		e.Message = string(body)
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}
	parsed := gjson.ParseBytes(body)
	e.Message = parsed.Get("error").String()
	e.Code = parsed.Get("code").String()
	if fields := parsed.Get("fields"); fields.IsObject() {
		e.Fields = make(map[string]string)
		fields.ForEach(func(k, v gjson.Result) bool {
			e.Fields[k.String()] = v.String()
			return true
		})
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
