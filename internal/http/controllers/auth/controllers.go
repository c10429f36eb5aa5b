// Package auth contiene los controllers HTTP de autenticación: traducen
// DTOs a llamadas del service y errores del service a AppError.
package auth

import (
	"errors"
	"net/http"
	"time"

	dto "github.com/dropDatabas3/studytrack/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/studytrack/internal/http/errors"
	"github.com/dropDatabas3/studytrack/internal/http/helpers"
	"github.com/dropDatabas3/studytrack/internal/http/middlewares"
	svc "github.com/dropDatabas3/studytrack/internal/http/services/auth"
	"github.com/dropDatabas3/studytrack/internal/observability/logger"
)

// Controller agrupa los handlers del dominio auth.
type Controller struct {
	service *svc.Service
}

func NewController(service *svc.Service) *Controller {
	return &Controller{service: service}
}

func toAccountResponse(a svc.AccountSummary) dto.AccountResponse {
	return dto.AccountResponse{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		Role:          a.Role,
		Provider:      string(a.Provider),
		EmailVerified: a.EmailVerified,
		LastLoginAt:   a.LastLoginAt,
		CreatedAt:     a.CreatedAt,
	}
}

func expiresIn(at time.Time) int64 {
	secs := int64(time.Until(at).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}

// writeServiceError mapea los sentinels del service al AppError que
// corresponde. Cualquier error no reconocido se degrada a 500 sin
// filtrar la causa al cliente.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, svc.ErrMissingFields):
		httperrors.WriteError(w, httperrors.ErrMissingFields)
	case errors.Is(err, svc.ErrConflict):
		httperrors.WriteError(w, httperrors.ErrEmailAlreadyInUse)
	case errors.Is(err, svc.ErrInvalidCredentials):
		httperrors.WriteError(w, httperrors.ErrInvalidCredentials)
	case errors.Is(err, svc.ErrVerificationRequired):
		httperrors.WriteError(w, httperrors.ErrAccountNotVerified)
	case errors.Is(err, svc.ErrInvalidOrExpiredToken):
		httperrors.WriteError(w, httperrors.ErrInvalidOrExpiredToken)
	case errors.Is(err, svc.ErrInvalidRefreshToken):
		httperrors.WriteError(w, httperrors.ErrInvalidRefreshToken)
	default:
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
	}
}

// Register maneja POST /v1/auth/register.
func (c *Controller) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	res, err := c.service.Register(r.Context(), svc.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusCreated, dto.RegisterResponse{
		Account: toAccountResponse(res.Account),
		Message: "revisá tu correo para verificar la cuenta",
	})
}

// VerifyEmail maneja POST /v1/auth/verify-email.
func (c *Controller) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyEmailRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields)
		return
	}

	sum, err := c.service.VerifyEmail(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.VerifyEmailResponse{Account: toAccountResponse(*sum)})
}

// ResendVerification maneja POST /v1/auth/verify-email/resend.
// Respuesta genérica siempre: no revela si el email existe.
func (c *Controller) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req dto.ResendVerificationRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields)
		return
	}

	if err := c.service.ResendVerification(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusAccepted, dto.MessageResponse{
		Message: "si la cuenta existe, va a recibir un correo de verificación",
	})
}

// Login maneja POST /v1/auth/login.
func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	res, err := c.service.Login(r.Context(), svc.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.LoginResponse{
		Account:      toAccountResponse(res.Account),
		AccessToken:  res.Tokens.AccessToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn(res.Tokens.AccessExpiresAt),
		RefreshToken: res.Tokens.RefreshToken,
	})
}

// Refresh maneja POST /v1/auth/refresh.
func (c *Controller) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields)
		return
	}

	res, err := c.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.RefreshResponse{
		AccessToken:  res.Tokens.AccessToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn(res.Tokens.AccessExpiresAt),
		RefreshToken: res.Tokens.RefreshToken,
	})
}

// Logout maneja POST /v1/auth/logout. Idempotente: un token ya
// revocado o basura responde 200 igual.
func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	var req dto.LogoutRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	if err := c.service.Logout(r.Context(), req.RefreshToken); err != nil {
		writeServiceError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "sesión cerrada"})
}

// LogoutAll maneja POST /v1/auth/logout-all. Requiere access token
// (middleware RequireAuth): revoca todas las sesiones de la cuenta.
func (c *Controller) LogoutAll(w http.ResponseWriter, r *http.Request) {
	accountID := middlewares.GetAccountID(r.Context())
	if accountID == "" {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	if err := c.service.LogoutAll(r.Context(), accountID); err != nil {
		writeServiceError(w, err)
		return
	}

	logger.From(r.Context()).Info("all sessions revoked", logger.AccountID(accountID))
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "todas las sesiones cerradas"})
}

// ForgotPassword maneja POST /v1/auth/forgot-password.
// Respuesta genérica siempre: no revela si el email existe.
func (c *Controller) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ForgotPasswordRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields)
		return
	}

	if err := c.service.ForgotPassword(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusAccepted, dto.MessageResponse{
		Message: "si la cuenta existe, va a recibir un correo con instrucciones",
	})
}

// ResetPassword maneja POST /v1/auth/reset-password.
func (c *Controller) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields)
		return
	}

	if err := c.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.MessageResponse{
		Message: "password actualizado; iniciá sesión nuevamente",
	})
}
