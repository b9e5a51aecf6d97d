package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"admin-auth/internal/domain"
	"admin-auth/internal/dto"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses. Every
// OTP rejection shares one client message, so an expired, consumed or
// plain wrong code all look the same to a guesser. Internal failures get
// a generic body with no detail.
func writeError(w http.ResponseWriter, err error) {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, dto.ConflictResponse{
			Error:                     "Conflict",
			Message:                   "You are already logged in on another device",
			Sessions:                  sessionResponses(conflict.Sessions),
			CanLogoutFromOtherDevices: true,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Bad Request", Message: err.Error()})
	case errors.Is(err, domain.ErrOtpRejected):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Bad Request", Message: "Invalid or expired code"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not Found", Message: "Admin user not found. Please contact support."})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Unauthorized", Message: "Invalid or expired refresh token"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error", Message: "Something went wrong"})
	}
}
