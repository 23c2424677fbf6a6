package api

import (
	"net/http"

	"github.com/annel0/army-battle/internal/model"
	"github.com/annel0/army-battle/internal/storage"
	"github.com/gin-gonic/gin"
)

// CreateArmyRequest - тело POST /users/:id/armies
type CreateArmyRequest struct {
	Size model.Size `json:"size"`
}

// UpdateArmyRequest - тело PATCH армии. nil поля не изменяются.
type UpdateArmyRequest struct {
	Size     *model.Size             `json:"size"`
	Entities *[]model.EntityDocument `json:"entities"`
}

// handleListArmies - GET /users/:id/armies
func (rs *RestServer) handleListArmies(c *gin.Context) {
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
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Армии пользователя", Data: gin.H{"armies": armies}})
}

// handleCreateArmy - POST /users/:id/armies, создает пустую армию заданного размера
func (rs *RestServer) handleCreateArmy(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := rs.users.FindByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req CreateArmyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "bad_request", "Malformed JSON body")
		return
	}

	a, err := rs.factory.CreateNew(ctx, user.ID, req.Size.Vec())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Армия создана", Data: gin.H{"id": a.ID}})
}

// handleUpdateArmy - PATCH /users/:id/armies/:armyId
func (rs *RestServer) handleUpdateArmy(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := rs.users.FindByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	doc, err := rs.armies.FindByID(ctx, c.Param("armyId"))
	if err != nil {
		respondError(c, err)
		return
	}
	// Чужая армия для пользователя не существует
	if doc.Owner != user.ID {
		respondError(c, storage.ErrArmyNotFound)
		return
	}

	var req UpdateArmyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "bad_request", "Malformed JSON body")
		return
	}
	if req.Size != nil {
		doc.Size = *req.Size
	}
	if req.Entities != nil {
		doc.Entities = *req.Entities
	}
	if err := doc.Validate(); err != nil {
		respondError(c, err)
		return
	}

	if err := rs.armies.Update(ctx, doc); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Армия обновлена", Data: gin.H{"id": doc.ID}})
}
