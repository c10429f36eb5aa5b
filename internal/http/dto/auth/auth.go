// Package auth contiene los DTOs de los endpoints de autenticación.
package auth

import "time"

// AccountResponse es la vista pública de una cuenta. Nunca expone el
// hash del password ni digests de tokens.
type AccountResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	Provider      string     `json:"provider"`
	EmailVerified bool       `json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RegisterRequest representa la solicitud de alta de cuenta.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse: la cuenta creada, sin tokens (primero verificar).
type RegisterResponse struct {
	Account AccountResponse `json:"account"`
	Message string          `json:"message"`
}

// VerifyEmailRequest lleva el token de verificación en claro.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// VerifyEmailResponse devuelve la cuenta ya verificada.
type VerifyEmailResponse struct {
	Account AccountResponse `json:"account"`
}

// ResendVerificationRequest pide reenviar el mail de verificación.
type ResendVerificationRequest struct {
	Email string `json:"email"`
}

// LoginRequest representa la solicitud de login por password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse representa la respuesta exitosa de login.
type LoginResponse struct {
	Account      AccountResponse `json:"account"`
	AccessToken  string          `json:"access_token"`
	TokenType    string          `json:"token_type"` // "Bearer"
	ExpiresIn    int64           `json:"expires_in"` // segundos
	RefreshToken string          `json:"refresh_token"`
}

// RefreshRequest intercambia un refresh token por un par nuevo.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse representa la respuesta de una rotación exitosa.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest revoca el refresh token presentado.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ForgotPasswordRequest inicia el flujo de reset.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest consuma el reset con el token del mail.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// MessageResponse es la respuesta genérica de los flujos que no
// devuelven datos (forgot, resend, logout).
type MessageResponse struct {
	Message string `json:"message"`
}
