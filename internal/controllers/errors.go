package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"barmap/internal/store"
)

// respondError maps store errors onto HTTP statuses.
func respondError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Bar not found"})
	case errors.Is(err, store.ErrInvalidCoordinate):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates"})
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "Bar already exists"})
	default:
		logrus.WithError(err).Errorf("%s: database error", op)
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid bar ID"})
		return 0, false
	}
	return uint(id), true
}
