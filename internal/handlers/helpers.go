package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"SecureVault/internal/middleware"
	"SecureVault/internal/service"
	"SecureVault/internal/vaultcrypto"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requireUser достаёт user_id из контекста; без него — 401.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return 0, false
	}
	return userID, true
}

// statusForError отображает вид ошибки сервиса на HTTP-код.
// tamper-detected намеренно отличим от прочих отказов расшифровки.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrTamperDetected):
		return http.StatusForbidden
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoMasterKey):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAccountLocked):
		return http.StatusForbidden
	case errors.Is(err, vaultcrypto.ErrUnsupportedAlgorithm):
		return http.StatusBadRequest
	case errors.Is(err, vaultcrypto.ErrAuthenticationFailed),
		errors.Is(err, vaultcrypto.ErrCiphertextCorrupted):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func serviceError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, status, msg)
}
