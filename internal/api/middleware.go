package api

import (
	"net/http"
	"strings"

	"github.com/annel0/army-battle/internal/model"
	"github.com/gin-gonic/gin"
)

// authUserKey - ключ аутентифицированного пользователя в gin.Context
const authUserKey = "auth_user"

// jwtMiddleware проверяет JWT токен в заголовке Authorization
func (rs *RestServer) jwtMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortError(c, http.StatusUnauthorized, "unauthorized", "Missing authorization token")
			return
		}

		// Формат "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortError(c, http.StatusUnauthorized, "unauthorized", "Malformed authorization header")
			return
		}

		user, err := rs.auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			respondError(c, err)
			return
		}

		c.Set(authUserKey, user)
		c.Next()
	}
}

// adminMiddleware пропускает только администраторов. Ставится после jwtMiddleware.
func (rs *RestServer) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := authUser(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		if !user.IsAdmin {
			abortError(c, http.StatusForbidden, "forbidden", "Admin rights required")
			return
		}
		c.Next()
	}
}

func authUser(c *gin.Context) (model.UserDocument, bool) {
	v, ok := c.Get(authUserKey)
	if !ok {
		return model.UserDocument{}, false
	}
	user, ok := v.(model.UserDocument)
	return user, ok
}

// corsMiddleware разрешает запросы из браузерного клиента
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
