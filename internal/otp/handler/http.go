// Package handler serves POST /auth/otp/request and POST /auth/otp/verify.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	accountdomain "identity-gateway/backend/internal/account/domain"
	"identity-gateway/backend/internal/otp/service"
	"identity-gateway/backend/internal/server/response"
	sessiondomain "identity-gateway/backend/internal/session/domain"
	sessionhandler "identity-gateway/backend/internal/session/handler"
)

// ChallengeService is the OTP service used by the handler.
type ChallengeService interface {
	Issue(ctx context.Context, phone string) (*service.IssueResult, error)
	Verify(ctx context.Context, phone, code string) (*accountdomain.Account, error)
}

// SessionIssuer establishes a session for a verified account.
type SessionIssuer interface {
	Issue(ctx context.Context, accountID, method string) (*sessiondomain.Session, error)
}

// Handler serves the OTP endpoints.
type Handler struct {
	otp      ChallengeService
	sessions SessionIssuer
	cookies  sessionhandler.Cookies
	logger   *slog.Logger
}

// NewHandler returns an OTP handler.
func NewHandler(otp ChallengeService, sessions SessionIssuer, cookies sessionhandler.Cookies, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{otp: otp, sessions: sessions, cookies: cookies, logger: logger}
}

type requestOTPRequest struct {
	Phone string `json:"phone"`
}

type requestOTPResponse struct {
	OK      bool   `json:"ok"`
	DevCode string `json:"dev_code,omitempty"`
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

type verifyOTPResponse struct {
	OK        bool                  `json:"ok"`
	User      accountdomain.Profile `json:"user"`
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// RequestOTP handles POST /auth/otp/request.
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req requestOTPRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.Unprocessable(w, err.Error(), response.CodeInvalidInput)
		return
	}
	res, err := h.otp.Issue(r.Context(), req.Phone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, requestOTPResponse{OK: true, DevCode: res.DevCode})
}

// VerifyOTP handles POST /auth/otp/verify. On success it issues a session,
// returns its token and also sets it as a cookie.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.Unprocessable(w, err.Error(), response.CodeInvalidInput)
		return
	}
	acc, err := h.otp.Verify(r.Context(), req.Phone, req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sess, err := h.sessions.Issue(r.Context(), acc.ID, sessiondomain.MethodOTP)
	if err != nil {
		response.InternalError(w, r, h.logger, err)
		return
	}
	h.cookies.Set(w, sess)
	response.JSON(w, http.StatusOK, verifyOTPResponse{
		OK:        true,
		User:      acc.Profile(),
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Unprocessable(w, verr.Error(), response.CodeInvalidInput)
	case errors.Is(err, service.ErrChallengeNotFound):
		response.Unprocessable(w, "OTP not found", response.CodeOTPNotFound)
	case errors.Is(err, service.ErrChallengeExpired):
		response.Unprocessable(w, "OTP expired", response.CodeOTPExpired)
	case errors.Is(err, service.ErrTooManyAttempts):
		response.RateLimit(w, "Too many attempts")
	case errors.Is(err, service.ErrInvalidCode):
		response.Unprocessable(w, "Invalid OTP", response.CodeOTPInvalid)
	case errors.Is(err, service.ErrDeliveryFailed):
		response.WriteError(w, http.StatusBadGateway, "Failed to deliver OTP", response.CodeBadGateway)
	default:
		response.InternalError(w, r, h.logger, err)
	}
}
