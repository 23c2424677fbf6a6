package api

import (
	"net/http"

	"github.com/annel0/army-battle/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// StartGameRequest - тело POST /games
type StartGameRequest struct {
	Armies []string `json:"armies"`
}

// handleStartGame - POST /games, загружает армии и запускает игровой цикл
func (rs *RestServer) handleStartGame(c *gin.Context) {
	var req StartGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "bad_request", "Malformed JSON body")
		return
	}

	ctx, span := observability.Tracer().Start(c.Request.Context(), "game.start")
	defer span.End()
	span.SetAttributes(attribute.StringSlice("game.armies", req.Armies))

	g, err := rs.games.StartGame(ctx, req.Armies)
	if err != nil {
		span.RecordError(err)
		respondError(c, err)
		return
	}
	span.SetAttributes(attribute.String("game.id", g.ID()))

	if user, ok := authUser(c); ok {
		rs.logger.Info("Пользователь %s запустил игру %s", user.Email, g.ID())
	}
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Игра запущена", Data: g.Info()})
}

// handleListGames - GET /games
func (rs *RestServer) handleListGames(c *gin.Context) {
	games := rs.games.List()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Активные игры",
		Data:    gin.H{"games": games, "total": len(games)},
	})
}

// handleGetGame - GET /games/:id
func (rs *RestServer) handleGetGame(c *gin.Context) {
	g, err := rs.games.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Игра",
		Data:    gin.H{"game": g.Info(), "armies": g.Snapshots()},
	})
}

// handleStopGame - POST /games/:id/stop, останавливает игру и сохраняет армии
func (rs *RestServer) handleStopGame(c *gin.Context) {
	info, err := rs.games.StopGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Игра остановлена", Data: info})
}
