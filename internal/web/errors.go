package web

// errors.go maps errors to stable codes for API clients.
//
// Codes:
//
//	HDR001 - Header or codec settings rejected (unknown type, bad offset)
//	VAL001 - A value does not parse as its column type
//	BUF001 - Key buffer shorter than the key prefix
//	REQ001 - Malformed request (bad query parameter, empty body)
//	REQ002 - Request body or a single line is too large
//	ERR000 - Anything else
//
// The technical error is logged with the request ID; clients get the user
// message, the code and, where one applies, a suggested action.

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/rowimport/internal/importer"
	"github.com/JonMunkholm/rowimport/internal/logging"
	"github.com/JonMunkholm/rowimport/internal/rowdata"
)

// errBadRequest marks request parameters the handler rejected itself.
var errBadRequest = errors.New("bad request")

// UserMessage is the client-facing side of an error.
type UserMessage struct {
	Message string
	Action  string
	Code    string
	Status  int
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type errorKind struct {
	target error
	msg    UserMessage
}

// errorKinds is checked in order with errors.Is.
var errorKinds = []errorKind{
	{rowdata.ErrSchema, UserMessage{
		Message: "The header could not be used",
		Action:  "Check column types and the offset against the header",
		Code:    "HDR001",
		Status:  http.StatusBadRequest,
	}},
	{rowdata.ErrConversion, UserMessage{
		Message: "A value does not match its column type",
		Action:  "Fix the value or change the column type in the header",
		Code:    "VAL001",
		Status:  http.StatusUnprocessableEntity,
	}},
	{rowdata.ErrBufferSize, UserMessage{
		Message: "Key buffer is smaller than the key prefix",
		Code:    "BUF001",
		Status:  http.StatusInternalServerError,
	}},
	{importer.ErrEmptyInput, UserMessage{
		Message: "The request body has no header line",
		Action:  "Send the header line followed by data lines",
		Code:    "REQ001",
		Status:  http.StatusBadRequest,
	}},
	{errBadRequest, UserMessage{
		Message: "The request is malformed",
		Action:  "Check the query parameters",
		Code:    "REQ001",
		Status:  http.StatusBadRequest,
	}},
	{bufio.ErrTooLong, UserMessage{
		Message: "A line is longer than the server accepts",
		Action:  "Split the input or raise IMPORT_MAX_LINE_BYTES",
		Code:    "REQ002",
		Status:  http.StatusRequestEntityTooLarge,
	}},
}

var unknownError = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the server logs",
	Code:    "ERR000",
	Status:  http.StatusInternalServerError,
}

// MapError returns the client message for err. A nil error maps to the zero
// UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return UserMessage{
			Message: "The request body is too large",
			Action:  "Preview a smaller sample of the file",
			Code:    "REQ002",
			Status:  http.StatusRequestEntityTooLarge,
		}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}
	return unknownError
}

// respondError logs err with request context and writes its JSON form.
// Unmapped errors never expose their text to the client.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := MapError(err)

	logging.FromContext(r.Context()).Warn("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", msg.Status,
		"code", msg.Code,
		"error", err.Error(),
	)

	detail := msg.Message
	if msg.Code != unknownError.Code {
		detail = err.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(msg.Status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   detail,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeJSON encodes v as a 200 JSON response. v is encoded before anything
// is written, so a value that cannot be encoded becomes an ERR000 response.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		respondError(w, r, fmt.Errorf("encode response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(buf.Bytes()); err != nil {
		logging.FromContext(r.Context()).Warn("write response", "error", err)
	}
}
