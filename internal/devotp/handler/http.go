// Package handler serves GET /dev/otp, which returns the last code issued to a phone.
// It is only mounted when dev mode is enabled outside production.
package handler

import (
	"net/http"
	"strings"

	"identity-gateway/backend/internal/devotp"
	"identity-gateway/backend/internal/otp"
	"identity-gateway/backend/internal/server/response"
)

const devOTPNote = "DEV MODE ONLY"

// Handler reads codes from a devotp.Store.
type Handler struct {
	store devotp.Store
}

// NewHandler returns a handler backed by store.
func NewHandler(store devotp.Store) *Handler {
	return &Handler{store: store}
}

type getOTPResponse struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
	Note  string `json:"note"`
}

// GetOTP handles GET /dev/otp?phone=...
func (h *Handler) GetOTP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("phone")
	phone := otp.NormalizePhone(raw)
	if phone == "" {
		response.BadRequest(w, "phone is required")
		return
	}
	code, ok := h.store.Get(r.Context(), phone)
	// An unescaped "+15551234567" arrives as " 15551234567".
	if !ok && strings.HasPrefix(raw, " ") && !strings.HasPrefix(phone, "+") {
		if code, ok = h.store.Get(r.Context(), "+"+phone); ok {
			phone = "+" + phone
		}
	}
	if !ok {
		response.NotFound(w, "OTP not found or expired")
		return
	}
	response.JSON(w, http.StatusOK, getOTPResponse{Phone: phone, Code: code, Note: devOTPNote})
}
