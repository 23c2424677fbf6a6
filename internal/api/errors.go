package api

import (
	"errors"
	"net/http"

	"github.com/annel0/army-battle/internal/auth"
	"github.com/annel0/army-battle/internal/game"
	"github.com/annel0/army-battle/internal/logging"
	"github.com/annel0/army-battle/internal/model"
	"github.com/annel0/army-battle/internal/storage"
	"github.com/gin-gonic/gin"
)

// ErrorResponse - тело ответа с ошибкой
type ErrorResponse struct {
	Success     bool               `json:"success"`
	Error       string             `json:"error"`
	Description string             `json:"error_description,omitempty"`
	Fields      []model.FieldError `json:"fields,omitempty"`
}

func abortError(c *gin.Context, status int, code, description string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Description: description})
}

// respondError переводит ошибку слоя хранения или домена в HTTP-ответ
func respondError(c *gin.Context, err error) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Error:  "validation_error",
			Fields: verr.Fields,
		})
	case errors.Is(err, game.ErrArmyCount):
		abortError(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, storage.ErrUserNotFound):
		abortError(c, http.StatusNotFound, "not_found", "User not found")
	case errors.Is(err, storage.ErrArmyNotFound):
		abortError(c, http.StatusNotFound, "not_found", "Army not found")
	case errors.Is(err, game.ErrGameNotFound):
		abortError(c, http.StatusNotFound, "not_found", "Game not found")
	case errors.Is(err, storage.ErrUserExists):
		abortError(c, http.StatusConflict, "conflict", "User already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		abortError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, auth.ErrInvalidToken):
		abortError(c, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
	default:
		logging.GetAPILogger().Error("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.Error(err)
		abortError(c, http.StatusInternalServerError, "server_error", "Internal server error")
	}
}
