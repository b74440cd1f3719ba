// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away common body decoding patterns (JSON and multipart uploads)
and the authentication context, ensuring consistent error handling.
*/
package requestutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/taibuivan/vidora/internal/platform/apperr"
	"github.com/taibuivan/vidora/internal/platform/ctxutil"
	"github.com/taibuivan/vidora/internal/platform/sec"
	"github.com/taibuivan/vidora/internal/platform/validate"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before the remainder spills to disk.
const multipartMemory = 8 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target any) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Claims extracts the authenticated token claims from the request context.

Returns nil if the request is not authenticated.
*/
func Claims(request *http.Request) *sec.TokenClaims {
	return ctxutil.GetAuthUser(request.Context())
}

/*
RequiredClaims ensures the request is authenticated and returns the token claims.

Returns:
  - *sec.TokenClaims: The verified access token claims
  - error: apperr.Unauthorized if the request is not authenticated
*/
func RequiredClaims(request *http.Request) (*sec.TokenClaims, error) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		return nil, apperr.Unauthorized("Authentication required")
	}
	return claims, nil
}

/*
RequiredUserID returns the User ID of the currently logged-in user.

Returns:
  - string: User ID
  - error: apperr.Unauthorized if not authenticated
*/
func RequiredUserID(request *http.Request) (string, error) {
	claims, err := RequiredClaims(request)
	if err != nil {
		return "", err
	}
	return claims.UserID(), nil
}

// # Multipart Uploads

/*
ParseMultipart limits the body to maxBytes and parses a multipart form.

Returns:
  - error: apperr.ValidationError if the body is not a valid multipart form
*/
func ParseMultipart(writer http.ResponseWriter, request *http.Request, maxBytes int64) error {
	request.Body = http.MaxBytesReader(writer, request.Body, maxBytes)
	if err := request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.ValidationError(fmt.Sprintf("Upload exceeds %d bytes", maxBytes))
		}
		return apperr.ValidationError("Invalid multipart payload")
	}
	return nil
}

/*
SaveFormFile copies the named multipart file into dir and returns its path.

An absent field yields an empty path and no error. The caller owns the returned
file and must remove it.

Parameters:
  - request: *http.Request (already parsed with [ParseMultipart])
  - field: string (form field name)
  - dir: string (temporary upload directory)

Returns:
  - string: Local path of the saved file, or "" if the field was not sent
  - error: Filesystem errors
*/
func SaveFormFile(request *http.Request, field, dir string) (string, error) {
	file, header, err := request.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperr.ValidationError("Invalid file field: " + field)
	}
	defer file.Close()

	return saveTemp(file, header, dir)
}

func saveTemp(file multipart.File, header *multipart.FileHeader, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("request_upload_dir_failed: %w", err)
	}

	target, err := os.CreateTemp(dir, "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", fmt.Errorf("request_upload_create_failed: %w", err)
	}
	defer target.Close()

	if _, err := io.Copy(target, file); err != nil {
		_ = os.Remove(target.Name())
		return "", fmt.Errorf("request_upload_copy_failed: %w", err)
	}

	return target.Name(), nil
}

/*
RemoveFiles deletes every non-empty path, ignoring errors. Used to discard
temporary uploads that never reach a service.
*/
func RemoveFiles(paths ...string) {
	for _, path := range paths {
		if path != "" {
			_ = os.Remove(path)
		}
	}
}
