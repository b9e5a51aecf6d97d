package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"admin-auth/internal/domain"
	"admin-auth/internal/dto"
	"admin-auth/internal/netutil"
	"admin-auth/internal/observability/middleware"
	"admin-auth/internal/service"

	"github.com/google/uuid"
)

type handler struct {
	auth     service.AuthService
	tokens   service.TokenService
	accounts service.AccountService
}

func (h *handler) requestOtp(w http.ResponseWriter, r *http.Request) {
	var req dto.RequestOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	if err := h.auth.RequestOtp(r.Context(), req.Email); err != nil {
		logFailure(r.Context(), "request otp failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.RequestOtpResponse{Success: true, Message: "OTP sent successfully"})
}

func (h *handler) verifyOtp(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyOtpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	res, err := h.auth.VerifyOtp(r.Context(), req, clientIP(r))
	if err != nil {
		logFailure(r.Context(), "verify otp failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	res, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		logFailure(r.Context(), "refresh failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) logout(w http.ResponseWriter, r *http.Request) {
	var req dto.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		logFailure(r.Context(), "logout failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.LogoutResponse{Success: true, Message: "Logged out successfully"})
}

func (h *handler) logoutAll(w http.ResponseWriter, r *http.Request) {
	var req dto.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	if err := h.auth.LogoutAll(r.Context(), req.RefreshToken); err != nil {
		logFailure(r.Context(), "logout all failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.LogoutResponse{Success: true, Message: "Logged out from all devices successfully"})
}

func (h *handler) sessions(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())
	if identity == nil {
		writeError(w, domain.ErrUnauthorized)
		return
	}
	sessions, err := h.auth.Sessions(r.Context(), identity.UserID)
	if err != nil {
		logFailure(r.Context(), "list sessions failed", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SessionListResponse{Sessions: sessionResponses(sessions)})
}

func (h *handler) blockAccount(w http.ResponseWriter, r *http.Request) {
	var req dto.BlockAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		writeError(w, domain.ErrInvalidInput)
		return
	}
	if err := h.accounts.SetBlocked(r.Context(), domain.UserID(userID), req.Blocked); err != nil {
		logFailure(r.Context(), "set account blocked failed", err)
		writeError(w, err)
		return
	}
	msg := "Account unblocked"
	if req.Blocked {
		msg = "Account blocked and sessions revoked"
	}
	writeJSON(w, http.StatusOK, dto.BlockAccountResponse{Success: true, Message: msg})
}

type identityCtxKey struct{}

// requireAccess guards session-management endpoints with a Bearer access
// token. Refresh tokens or anything else presented here fail the type
// check inside VerifyAccess.
func (h *handler) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(raw, "Bearer ") {
			writeError(w, domain.ErrUnauthorized)
			return
		}
		identity, err := h.tokens.VerifyAccess(strings.TrimPrefix(raw, "Bearer "))
		if err != nil {
			writeError(w, domain.ErrUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), identityCtxKey{}, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFromContext(ctx context.Context) *service.AccessIdentity {
	if v, ok := ctx.Value(identityCtxKey{}).(*service.AccessIdentity); ok {
		return v
	}
	return nil
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// XFF can be a list: client, proxy1, proxy2...
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if normalized, ok := netutil.NormalizeIP(ip); ok {
			return normalized
		}
	}
	if normalized, ok := netutil.NormalizeIP(r.RemoteAddr); ok {
		return normalized
	}
	return r.RemoteAddr
}

func sessionResponses(sessions []domain.SessionInfo) []dto.SessionResponse {
	out := make([]dto.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, dto.SessionResponse{
			DeviceID:   s.DeviceID,
			DeviceInfo: s.DeviceInfo,
			IPAddress:  s.IPAddress,
			CreatedAt:  s.CreatedAt,
		})
	}
	return out
}

func logFailure(ctx context.Context, msg string, err error) {
	slog.Warn(msg,
		"error", err,
		"request_id", middleware.RequestIDFromContext(ctx),
		"trace_id", middleware.TraceIDFromContext(ctx),
	)
}
