package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"sweetbaker/infrastructure"
	"sweetbaker/internal/account"
	"sweetbaker/pkg/jwt"
)

type JSONHandler struct {
	service *Service
}

func NewJSONHandler(service *Service) *JSONHandler {
	return &JSONHandler{service: service}
}

// RegisterRoutes mounts the account endpoints under /api/auth.
func (h *JSONHandler) RegisterRoutes(r *mux.Router, authorized *AuthMiddleware) {
	api := r.PathPrefix("/api/auth").Subrouter()
	api.HandleFunc("/send-code", h.SendCode).Methods(http.MethodPost)
	api.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/request-reset", h.RequestReset).Methods(http.MethodPost)
	api.HandleFunc("/reset-password", h.ResetPassword).Methods(http.MethodPost)
	api.Handle("/me", authorized.Wrap(http.HandlerFunc(h.Me))).Methods(http.MethodGet)
}

func (h *JSONHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req SendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.RequestCode(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Verification code sent"})
}

func (h *JSONHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acc, err := h.service.Register(r.Context(), RegisterParams{
		Email:            req.Email,
		Password:         req.Password,
		FullName:         req.FullName,
		AccountNumber:    req.AccountNumber,
		VerificationCode: req.VerificationCode,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"user": accountJSON(acc)})
}

func (h *JSONHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acc, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  accountJSON(acc),
	})
}

func (h *JSONHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req RequestResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.RequestReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "If that email exists, a reset link has been sent."})
}

func (h *JSONHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

func (h *JSONHandler) Me(w http.ResponseWriter, r *http.Request) {
	subject, ok := SubjectFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	acc, err := h.service.Account(r.Context(), subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": accountJSON(acc)})
}

func accountJSON(acc *account.Account) map[string]any {
	var fullName *string
	if acc.FullName.Valid {
		fullName = &acc.FullName.String
	}
	return map[string]any{
		"id":            acc.ID,
		"email":         acc.Email,
		"fullName":      fullName,
		"accountNumber": acc.AccountNumber,
		"createdAt":     acc.CreatedAt.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *infrastructure.ValidationError
	if errors.As(err, &ve) {
		writeJSONError(w, http.StatusBadRequest, ve.Reason)
		return
	}

	if cv, ok := infrastructure.AsConstraintViolation(err); ok {
		if cv.Field == "account_number" {
			writeJSONError(w, http.StatusConflict, "account number already in use")
		} else {
			writeJSONError(w, http.StatusConflict, "email already registered")
		}
		return
	}

	switch {
	case errors.Is(err, infrastructure.ErrAlreadyRegistered):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, infrastructure.ErrCodeNotFound),
		errors.Is(err, infrastructure.ErrCodeExpired),
		errors.Is(err, infrastructure.ErrCodeMismatch),
		errors.Is(err, infrastructure.ErrResetTokenInvalid),
		errors.Is(err, infrastructure.ErrResetTokenExpired):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, infrastructure.ErrInvalidCredentials):
		writeJSONError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, infrastructure.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, jwt.ErrMissingSecret):
		writeJSONError(w, http.StatusInternalServerError, "token generation failed")
	default:
		slog.Error("request failed", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}
