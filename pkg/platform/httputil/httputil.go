// Package httputil provides the uniform JSON response envelope used by every
// handler. Success payloads are wrapped as {"datas": ...} and failures as
// {"error": code, "error_description": ...}.
package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"

	dErrors "vulnreport/pkg/domain-errors"
)

// WriteJSON writes payload wrapped in the success envelope with the given
// status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"datas": payload})
}

// Ok writes a 200 success envelope.
func Ok(w http.ResponseWriter, payload any) {
	WriteJSON(w, http.StatusOK, payload)
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, payload any) {
	WriteJSON(w, http.StatusCreated, payload)
}

// WriteError translates a coded error into its HTTP status and error
// envelope. Internal errors deliberately omit the description so store
// internals never reach the caller.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		if desc := dErrors.DescriptionOf(err); desc != "" {
			body["error_description"] = desc
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(body)
}

// SendFile streams a binary attachment with the given filename.
func SendFile(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
