// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/vidora/internal/platform/constants"
	"github.com/taibuivan/vidora/internal/platform/middleware"
	requestutil "github.com/taibuivan/vidora/internal/platform/request"
	"github.com/taibuivan/vidora/internal/platform/respond"
)

// # Definitions & Constructors

// Handler implements the session HTTP endpoints.
//
// # Transport
//
// Tokens are returned in the body and as httpOnly, secure cookies so both
// browser and non-browser clients are served.
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

// Routes returns a [chi.Router] configured with session routes.
//
// # Endpoints
//   - POST /login           : Authenticates and issues a token pair.
//   - POST /refresh         : Rotates the refresh token.
//   - POST /logout          : Clears the session (auth).
//   - POST /change-password : Replaces the password (auth).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/logout", handler.logout)
		r.Post("/change-password", handler.changePassword)
	})

	return router
}

// # Request Payloads

type loginRequest struct {
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"oldPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

/*
Login authenticates a user and establishes a session.

POST /api/v1/auth/login

Request:
  - Body: loginRequest (userName or email, password)

Response:
  - 200: LoginResult + accessToken/refreshToken cookies
  - 400: VALIDATION_ERROR
  - 404: NOT_FOUND
  - 401: INVALID_CREDENTIALS
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), LoginInput{
		UserName: input.UserName,
		Email:    input.Email,
		Password: input.Password,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	setTokenCookies(writer, &result.TokenPair)
	respond.OK(writer, "User logged in successfully", result)
}

/*
Refresh rotates the session.

POST /api/v1/auth/refresh

Description: The refresh token is read from the refreshToken cookie, falling
back to the JSON body.

Response:
  - 200: TokenPair + cookies
  - 401: TOKEN_EXPIRED | TOKEN_INVALID | SESSION_REVOKED | REUSE_DETECTED
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	token := ""
	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil {
		token = cookie.Value
	}

	if token == "" && request.ContentLength != 0 {
		var input refreshRequest
		if err := requestutil.DecodeJSON(request, &input); err != nil {
			respond.Error(writer, request, err)
			return
		}
		token = input.RefreshToken
	}

	pair, err := handler.authService.Refresh(request.Context(), token)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	setTokenCookies(writer, pair)
	respond.OK(writer, "Access token refreshed", pair)
}

/*
Logout terminates the current user session.

POST /api/v1/auth/logout

Response:
  - 200: Session cleared, cookies expired
  - 401: UNAUTHORIZED
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	clearTokenCookies(writer)
	respond.OK(writer, "User logged out", struct{}{})
}

/*
ChangePassword replaces the authenticated user's password.

POST /api/v1/auth/change-password

Request:
  - Body: changePasswordRequest (oldPassword, newPassword, confirmPassword)

Response:
  - 200: Password changed
  - 400: VALIDATION_ERROR (including confirmation mismatch)
  - 401: INVALID_CREDENTIALS
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.authService.ChangePassword(request.Context(), ChangePasswordInput{
		UserID:          userID,
		CurrentPassword: input.OldPassword,
		NewPassword:     input.NewPassword,
		ConfirmPassword: input.ConfirmPassword,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Password changed successfully", struct{}{})
}

// # Cookies

func setTokenCookies(writer http.ResponseWriter, pair *TokenPair) {
	http.SetCookie(writer, tokenCookie(constants.AccessTokenCookieName, pair.AccessToken, pair.AccessExpiresAt))
	http.SetCookie(writer, tokenCookie(constants.RefreshTokenCookieName, pair.RefreshToken, pair.RefreshExpiresAt))
}

func clearTokenCookies(writer http.ResponseWriter) {
	for _, name := range []string{constants.AccessTokenCookieName, constants.RefreshTokenCookieName} {
		cookie := tokenCookie(name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		http.SetCookie(writer, cookie)
	}
}

func tokenCookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     constants.TokenCookiePath,
		Expires:  expires,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}
