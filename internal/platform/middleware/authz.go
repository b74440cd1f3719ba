// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net/http"
	"strings"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/constants"
	"github.com/taibuivan/vidora/internal/platform/ctxutil"
	"github.com/taibuivan/vidora/internal/platform/respond"
	"github.com/taibuivan/vidora/internal/platform/sec"
)

// TokenVerifier verifies a token of the given kind. Satisfied by [*sec.TokenIssuer].
type TokenVerifier interface {
	Verify(token string, kind sec.TokenKind) (*sec.TokenClaims, error)
}

// Authenticate resolves the access token and stores its claims in the context.
//
// # Flow
//  1. Read the 'accessToken' cookie, falling back to 'Authorization: Bearer <token>'.
//  2. If neither is present, the request proceeds as anonymous.
//  3. A present but bad token also proceeds as anonymous, with its typed error
//     (TOKEN_EXPIRED, TOKEN_INVALID, UNAUTHORIZED) recorded for [RequireAuth].
//     Public routes such as login and refresh stay reachable with a stale token.
//  4. Inject [*sec.TokenClaims] into the request context for downstream use.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token, err := accessToken(request)
			if err != nil {
				next.ServeHTTP(writer, request.WithContext(ctxutil.WithAuthError(request.Context(), err)))
				return
			}

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if token == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 2. Token Verification ─────────────────────────────────────────
			claims, err := verifier.Verify(token, sec.KindAccess)
			if err != nil {
				next.ServeHTTP(writer, request.WithContext(ctxutil.WithAuthError(request.Context(), err)))
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithAuthUser(request.Context(), claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

func accessToken(request *http.Request) (string, error) {
	if cookie, err := request.Cookie(constants.AccessTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	header := request.Header.Get(constants.HeaderAuthorization)
	if header == "" {
		return "", nil
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", apperr.Unauthorized("Invalid authorization format")
	}
	return strings.TrimSpace(token), nil
}

// RequireAuth blocks requests that are not authenticated.
//
// A token rejected by [Authenticate] is reported with its own code so clients
// can tell "refresh" (TOKEN_EXPIRED) from "log in" (UNAUTHORIZED, TOKEN_INVALID).
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetAuthUser(request.Context()) == nil {
			if err := ctxutil.GetAuthError(request.Context()); err != nil {
				respond.Error(writer, request, err)
				return
			}
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}
