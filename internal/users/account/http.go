// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account provides registration and profile management for users.

It owns the multipart upload flow for avatars and cover images and the
[AssetReplacer] that keeps remote media consistent with the user record.

# Security

Every route except registration requires an authenticated session provided by
the RequireAuth middleware.
*/
package account

import (
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/vidora/internal/platform/middleware"
	requestutil "github.com/taibuivan/vidora/internal/platform/request"
	"github.com/taibuivan/vidora/internal/platform/respond"
	"github.com/taibuivan/vidora/internal/users/auth"
)

// UploadConfig bounds multipart uploads.
type UploadConfig struct {
	// TempDir receives uploads until they reach object storage.
	TempDir string
	// MaxBytes caps the whole multipart body.
	MaxBytes int64
}

// Handler implements the HTTP layer for user accounts.
type Handler struct {
	accountService *Service
	upload         UploadConfig
}

// NewHandler constructs a new account [Handler].
func NewHandler(service *Service, upload UploadConfig) *Handler {
	return &Handler{accountService: service, upload: upload}
}

// Routes returns a [chi.Router] configured with the account endpoints.
//
// # Endpoints
//   - POST  /register       : Creates an account (multipart).
//   - GET   /me             : Current user (auth).
//   - PATCH /me             : Updates fullName/email (auth).
//   - PATCH /me/avatar      : Replaces the avatar (auth, multipart).
//   - PATCH /me/cover-image : Replaces or clears the cover (auth, multipart).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/me", handler.getMe)
		r.Patch("/me", handler.updateMe)
		r.Patch("/me/avatar", handler.updateAvatar)
		r.Patch("/me/cover-image", handler.updateCoverImage)
	})

	return router
}

type updateMeRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email"`
}

type assetResponse struct {
	URL string `json:"url"`
}

/*
POST /api/v1/users/register.

Request:
  - multipart: fullName, email, userName, password, avatar (file), coverImage (file, optional)

Response:
  - 201: PublicUser
  - 400: VALIDATION_ERROR
  - 409: CONFLICT
  - 500: UPLOAD_FAILED
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	if err := requestutil.ParseMultipart(writer, request, handler.upload.MaxBytes); err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer request.MultipartForm.RemoveAll()

	avatarPath, err := requestutil.SaveFormFile(request, auth.FieldAvatar, handler.upload.TempDir)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	coverPath, err := requestutil.SaveFormFile(request, auth.FieldCoverImage, handler.upload.TempDir)
	if err != nil {
		requestutil.RemoveFiles(avatarPath)
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.Register(request.Context(), RegisterInput{
		FullName:       request.FormValue(auth.FieldFullName),
		Email:          request.FormValue(auth.FieldEmail),
		UserName:       request.FormValue(auth.FieldUserName),
		Password:       request.FormValue(auth.FieldPassword),
		AvatarPath:     avatarPath,
		CoverImagePath: coverPath,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, "User registered successfully", user)
}

/*
GET /api/v1/users/me.

Response:
  - 200: PublicUser
  - 401: UNAUTHORIZED
*/
func (handler *Handler) getMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.GetProfile(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Current user fetched successfully", user)
}

/*
PATCH /api/v1/users/me.

Request:
  - body: updateMeRequest (fullName, email; both optional, at least one)

Response:
  - 200: PublicUser
  - 400: VALIDATION_ERROR
  - 409: CONFLICT
*/
func (handler *Handler) updateMe(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateMeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.accountService.UpdateAccount(request.Context(), userID, UpdateAccountInput{
		FullName: input.FullName,
		Email:    input.Email,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Account details updated successfully", user)
}

/*
PATCH /api/v1/users/me/avatar.

Request:
  - multipart: avatar (file)

Response:
  - 200: {url}
  - 400: VALIDATION_ERROR
  - 500: UPLOAD_FAILED
*/
func (handler *Handler) updateAvatar(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	path, err := handler.receiveFile(writer, request, auth.FieldAvatar)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	asset, err := handler.accountService.ReplaceAvatar(request.Context(), userID, path)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, "Avatar image updated successfully", assetResponse{URL: asset.URL})
}

/*
PATCH /api/v1/users/me/cover-image.

Description: A request without a coverImage file clears the cover.

Response:
  - 200: {url} (empty when cleared)
  - 500: UPLOAD_FAILED
*/
func (handler *Handler) updateCoverImage(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	path, err := handler.receiveFile(writer, request, auth.FieldCoverImage)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	asset, err := handler.accountService.ReplaceCoverImage(request.Context(), userID, path)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	response := assetResponse{}
	if asset != nil {
		response.URL = asset.URL
	}
	respond.OK(writer, "Cover image updated successfully", response)
}

// receiveFile saves the named multipart file to the temp dir. A request that
// is not multipart yields an empty path.
func (handler *Handler) receiveFile(writer http.ResponseWriter, request *http.Request, field string) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(request.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", nil
	}

	if err := requestutil.ParseMultipart(writer, request, handler.upload.MaxBytes); err != nil {
		return "", err
	}
	defer request.MultipartForm.RemoveAll()

	return requestutil.SaveFormFile(request, field, handler.upload.TempDir)
}
