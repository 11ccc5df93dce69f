// Package httperrors renders keyring errors as JSON problem responses.
package httperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-keyring/internal/errs"
	"github/chapool/go-keyring/internal/util"
)

const (
	PublicHTTPErrorTypeGeneric = "generic"
)

// HTTPError is the body of every error response.
type HTTPError struct {
	Code     int    `json:"status"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Internal error  `json:"-"`
}

func NewHTTPError(code int, errorType string, title string) *HTTPError {
	return &HTTPError{
		Code:  code,
		Type:  errorType,
		Title: title,
	}
}

func (e *HTTPError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("HTTPError %d (%s): %s - %v", e.Code, e.Type, e.Title, e.Internal)
	}
	return fmt.Sprintf("HTTPError %d (%s): %s", e.Code, e.Type, e.Title)
}

func (e *HTTPError) Unwrap() error {
	return e.Internal
}

var kindStatus = map[errs.Kind]int{
	errs.KindNotAuthenticated:   http.StatusUnauthorized,
	errs.KindValidation:         http.StatusBadRequest,
	errs.KindKeysNotFound:       http.StatusNotFound,
	errs.KindDerivation:         http.StatusUnprocessableEntity,
	errs.KindSharedSecret:       http.StatusUnprocessableEntity,
	errs.KindAddressMismatch:    http.StatusConflict,
	errs.KindStorageTimeout:     http.StatusGatewayTimeout,
	errs.KindVerificationFailed: http.StatusServiceUnavailable,
	errs.KindUnknown:            http.StatusInternalServerError,
}

// FromError maps err to an HTTPError. Typed keyring errors keep their code
// as the type; anything else becomes a 500 without details.
func FromError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		return &HTTPError{
			Code:     echoErr.Code,
			Type:     PublicHTTPErrorTypeGeneric,
			Title:    http.StatusText(echoErr.Code),
			Internal: err,
		}
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		code, ok := kindStatus[typed.Kind]
		if !ok {
			code = http.StatusInternalServerError
		}
		title := typed.Message
		if code == http.StatusInternalServerError {
			title = http.StatusText(code)
		}
		return &HTTPError{
			Code:     code,
			Type:     typed.Code,
			Title:    title,
			Internal: err,
		}
	}

	return &HTTPError{
		Code:     http.StatusInternalServerError,
		Type:     PublicHTTPErrorTypeGeneric,
		Title:    http.StatusText(http.StatusInternalServerError),
		Internal: err,
	}
}

// HTTPErrorHandler is installed as echo's error handler.
func HTTPErrorHandler(err error, c echo.Context) {
	httpErr := FromError(err)
	log := util.LogFromContext(c.Request().Context())

	if httpErr.Code >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", httpErr.Code).Msg("Request failed")
	} else {
		log.Debug().Err(err).Int("status", httpErr.Code).Msg("Request rejected")
	}

	if c.Response().Committed {
		return
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(httpErr.Code)
	} else {
		err = c.JSON(httpErr.Code, httpErr)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to write error response")
	}
}
