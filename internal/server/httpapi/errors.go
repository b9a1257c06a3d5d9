package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error codes surfaced as client errors.
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgInvalidTextRepr     = "22P02"
)

// classify maps err to an HTTP status and an error code. Internal errors get
// a generic message so database details do not leak.
func classify(err error) (int, string, string) {
	var pgErr *pgconn.PgError
	var tooBig *http.MaxBytesError

	switch {
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "TokenExpired", err.Error()
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "Unauthorized", err.Error()
	case errors.Is(err, common.ErrUnknownEntity):
		return http.StatusNotFound, "EntityNotFound", err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "NotFound", err.Error()
	case errors.Is(err, common.ErrUnknownAttribute):
		return http.StatusBadRequest, "AttributeNotFound", err.Error()
	case errors.Is(err, common.ErrInvalidQuery), errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, "BadRequest", err.Error()
	case errors.Is(err, common.ErrorTooLarge), errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge, "PayloadTooLarge", err.Error()
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict, "Conflict", err.Error()
	case errors.As(err, &pgErr):
		switch pgErr.Code {
		case pgForeignKeyViolation, pgInvalidTextRepr:
			return http.StatusBadRequest, "BadRequest", pgErr.Message
		case pgUniqueViolation:
			return http.StatusConflict, "Conflict", pgErr.Message
		}
	}
	return http.StatusInternalServerError, "InternalError", common.ErrorInternal.Error()
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, common.ErrorBody{Error: common.ErrorDetail{Code: code, Message: message}})
}

func (s *Server) fail(c *gin.Context, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.Request.URL.Path, "error", err)
	} else {
		s.logger.Debug(c.Request.Context(), "request rejected", "path", c.Request.URL.Path, "status", status, "error", err)
	}
	abortWithError(c, status, code, message)
}
