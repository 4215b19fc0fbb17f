package net

import (
	"net/http"

	perr "ghfinder/internal/platform/errors"
)

// Wire is the JSON envelope every endpoint writes
type Wire struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

// Reply builds a success envelope for status
func Reply(status int, data any, reqID string) (int, Wire) {
	return status, Wire{
		StatusCode: status,
		Status:     http.StatusText(status),
		RequestID:  reqID,
		Data:       data,
	}
}

// OK builds a 200 envelope
func OK(data any, reqID string) (int, Wire) { return Reply(http.StatusOK, data, reqID) }

// Error builds an error envelope with the status mapped from err
func Error(err error, reqID string) (int, Wire) {
	if err == nil {
		return OK(nil, reqID)
	}
	status := perr.HTTPStatus(err)
	w := perr.WireFrom(err)
	return status, Wire{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       w.Code,
		Error:      w.Message,
		RequestID:  reqID,
	}
}
