package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fareroute/internal/fare"
	"fareroute/internal/faretable"
	"fareroute/internal/middleware"
	"fareroute/internal/store"
)

// respondError maps workflow errors onto HTTP replies.
func respondError(c *gin.Context, err error) {
	var (
		verr *fare.ValidationError
		derr *fare.DecodeError
		nerr *fare.NotReadyError
		cerr *store.ConflictError
	)
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": verr.Error(), "stage": verr.Stage, "errors": verr.Errors})
	case errors.As(err, &derr):
		c.JSON(http.StatusBadRequest, gin.H{"error": derr.Error()})
	case errors.As(err, &nerr):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "missing_stage": nerr.MissingStage})
	case errors.As(err, &cerr):
		c.JSON(http.StatusConflict, gin.H{"error": cerr.Error(), "version": cerr.Version})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	case errors.Is(err, faretable.ErrEmptyBatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		middleware.Log(c).WithError(err).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func routeID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid route id"})
		return 0, false
	}
	return uint(id), true
}

func currentUser(c *gin.Context) (uint, bool) {
	id, err := middleware.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return 0, false
	}
	return id, true
}
