package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jlcedu/rechtszaal-backend/internal/courtroom"
	"github.com/jlcedu/rechtszaal-backend/internal/services"
)

type SimulationHandler struct {
	simulationService services.SimulationService
}

func NewSimulationHandler(simulationService services.SimulationService) *SimulationHandler {
	return &SimulationHandler{simulationService: simulationService}
}

func (sh *SimulationHandler) Start(c *gin.Context) {
	caseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid case id"})
		return
	}
	snapshot, err := sh.simulationService.StartCase(c.Request.Context(), caseID)
	if err != nil {
		c.JSON(simulationStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": snapshot})
}

func (sh *SimulationHandler) Get(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	snapshot, err := sh.simulationService.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": snapshot})
}

func (sh *SimulationHandler) Submit(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	var req struct {
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := sh.simulationService.SubmitTurn(c.Request.Context(), sessionID, req.Message); err != nil {
		c.JSON(simulationStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": true})
}

func (sh *SimulationHandler) End(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	score, err := sh.simulationService.EndSession(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(simulationStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"score": score})
}

func simulationStatus(err error) int {
	var valErr *courtroom.ValidationError
	var stateErr *courtroom.StateError
	switch {
	case errors.As(err, &valErr):
		return http.StatusBadRequest
	case errors.As(err, &stateErr), errors.Is(err, courtroom.ErrBusy):
		return http.StatusConflict
	case err.Error() == "session not found" || err.Error() == "case not found":
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
