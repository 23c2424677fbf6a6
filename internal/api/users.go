package api

import (
	"net/http"

	"github.com/annel0/army-battle/internal/model"
	"github.com/gin-gonic/gin"
)

func (rs *RestServer) bindUserInput(c *gin.Context) (model.UserInput, bool) {
	var in model.UserInput
	if err := c.ShouldBindJSON(&in); err != nil {
		abortError(c, http.StatusBadRequest, "bad_request", "Malformed JSON body")
		return in, false
	}
	return in, true
}

// handleUserInfo - GET /users/info
func (rs *RestServer) handleUserInfo(c *gin.Context) {
	user, ok := authUser(c)
	if !ok {
		abortError(c, http.StatusNotFound, "not_found", "User not found")
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Текущий пользователь", Data: gin.H{"user": user}})
}

// handleListUsers - GET /users
func (rs *RestServer) handleListUsers(c *gin.Context) {
	users, err := rs.users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список пользователей",
		Data:    gin.H{"users": users, "total": len(users)},
	})
}

// handleGetUser - GET /users/:id, вместе с армиями пользователя
func (rs *RestServer) handleGetUser(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := rs.users.FindByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	armies, err := rs.armies.FindByOwner(ctx, user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Пользователь",
		Data:    gin.H{"user": user, "armies": armies},
	})
}

// handleCreateUser - POST /users
func (rs *RestServer) handleCreateUser(c *gin.Context) {
	rs.createUser(c, false)
}

// handleAdminRegister - POST /admin/users, создает администратора
func (rs *RestServer) handleAdminRegister(c *gin.Context) {
	rs.createUser(c, true)
}

func (rs *RestServer) createUser(c *gin.Context, isAdmin bool) {
	in, ok := rs.bindUserInput(c)
	if !ok {
		return
	}
	user, err := rs.auth.Register(c.Request.Context(), in, isAdmin)
	if err != nil {
		respondError(c, err)
		return
	}
	rs.logger.Info("Создан пользователь %s (ID: %s, admin: %v)", user.Email, user.ID, isAdmin)
	c.JSON(http.StatusCreated, GenericResponse{
		Success: true,
		Message: "Пользователь успешно создан",
		Data: gin.H{
			"id":    user.ID,
			"links": resourceLink(c, "Gets the created user", "/api/users/"+user.ID),
		},
	})
}

// handleModifyUser - PUT /users/:id, все поля обязательны
func (rs *RestServer) handleModifyUser(c *gin.Context) {
	rs.updateUser(c, false)
}

// handleUpdateUser - PATCH /users/:id, только заданные поля
func (rs *RestServer) handleUpdateUser(c *gin.Context) {
	rs.updateUser(c, true)
}

func (rs *RestServer) updateUser(c *gin.Context, partial bool) {
	in, ok := rs.bindUserInput(c)
	if !ok {
		return
	}
	user, err := rs.auth.Update(c.Request.Context(), c.Param("id"), in, partial)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Пользователь обновлен",
		Data: gin.H{
			"id":    user.ID,
			"links": resourceLink(c, "Gets the updated user", "/api/users/"+user.ID),
		},
	})
}

// handleDeleteUser - DELETE /users/:id
func (rs *RestServer) handleDeleteUser(c *gin.Context) {
	if err := rs.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
