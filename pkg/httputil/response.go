// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding, and the redirect conventions used by page routes.
package httputil

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/chambersapp/chambers/pkg/auth"
)

// APIResponse is the JSON envelope for API routes.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// QuotaResponse is the envelope for quota-exceeded denials. It carries
// enough structured data for the client to offer an upgrade path.
type QuotaResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	LimitReached    bool   `json:"limitReached"`
	CurrentCount    int64  `json:"currentCount"`
	MaxAllowed      int64  `json:"maxAllowed"`
	UpgradeRequired bool   `json:"upgradeRequired"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a 200 envelope with data.
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// WriteCreated writes a 201 envelope with data.
func WriteCreated(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusCreated, APIResponse{Success: true, Data: data})
}

// WriteAPIError writes a {success:false, message} envelope.
func WriteAPIError(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, APIResponse{Success: false, Message: message})
}

// WriteUnauthorized writes a 401 envelope.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteAPIError(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes a 403 envelope.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteAPIError(w, http.StatusForbidden, message)
}

// WriteNotFound writes a 404 envelope.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteAPIError(w, http.StatusNotFound, message)
}

// WriteBadRequest writes a 400 envelope.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteAPIError(w, http.StatusBadRequest, message)
}

// WriteServerError writes a 500 envelope. Infrastructure failures during
// authorization use this (or 503/504) so clients can distinguish "not
// allowed" from "could not evaluate".
func WriteServerError(w http.ResponseWriter, message string) {
	WriteAPIError(w, http.StatusInternalServerError, message)
}

// WriteServiceUnavailable writes a 503 envelope.
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteAPIError(w, http.StatusServiceUnavailable, message)
}

// WriteGatewayTimeout writes a 504 envelope for timed-out dependency calls.
func WriteGatewayTimeout(w http.ResponseWriter, message string) {
	WriteAPIError(w, http.StatusGatewayTimeout, message)
}

// WriteQuotaExceeded writes the structured 403 quota denial payload.
func WriteQuotaExceeded(w http.ResponseWriter, message string, current, limit int64) {
	_ = WriteJSON(w, http.StatusForbidden, QuotaResponse{
		Success:         false,
		Message:         message,
		LimitReached:    true,
		CurrentCount:    current,
		MaxAllowed:      limit,
		UpgradeRequired: true,
	})
}

// RedirectToSignIn redirects a page request to the sign-in view, carrying
// the original path so the user returns there after authenticating, plus a
// machine-readable reason code.
func RedirectToSignIn(w http.ResponseWriter, r *http.Request, signInPath string, reason auth.Reason) {
	q := url.Values{}
	q.Set("next", r.URL.RequestURI())
	q.Set("reason", string(reason))
	http.Redirect(w, r, signInPath+"?"+q.Encode(), http.StatusSeeOther)
}

// RedirectUnauthorized redirects a page request to the unauthorized view
// with a URL-encoded reason string.
func RedirectUnauthorized(w http.ResponseWriter, r *http.Request, unauthorizedPath string, reason auth.Reason, detail string) {
	q := url.Values{}
	q.Set("reason", string(reason))
	if detail != "" {
		q.Set("detail", detail)
	}
	http.Redirect(w, r, unauthorizedPath+"?"+q.Encode(), http.StatusSeeOther)
}
