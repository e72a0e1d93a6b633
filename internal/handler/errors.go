package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/admin-dashboard/internal/apperr"
)

type errorBody struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ErrorHandler renders every error returned by a handler or middleware.
// Typed application errors keep their status and message; anything else is a
// 500 whose detail is only exposed when exposeDetail is set.
func ErrorHandler(log *slog.Logger, exposeDetail bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := renderError(err, exposeDetail)

		attrs := []any{
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path),
			slog.Int("status", status),
			slog.Any("error", err),
		}
		if status >= http.StatusInternalServerError {
			log.Error("request failed", attrs...)
		} else {
			log.Warn("request rejected", attrs...)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error("write error response", slog.Any("error", err))
		}
	}
}

func renderError(err error, exposeDetail bool) (int, errorBody) {
	if ae, ok := apperr.From(err); ok {
		return ae.Status, errorBody{Message: ae.Message, Errors: ae.Items}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch {
		case he.Code == http.StatusNotFound:
			return he.Code, errorBody{Message: "Route not found"}
		case he.Code < http.StatusInternalServerError:
			return he.Code, errorBody{Message: fmt.Sprint(he.Message)}
		}
	}

	body := errorBody{Message: "Something went wrong!", Error: "Internal server error"}
	if exposeDetail {
		body.Error = err.Error()
	}
	return http.StatusInternalServerError, body
}
