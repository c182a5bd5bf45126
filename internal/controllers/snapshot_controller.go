package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"barmap/internal/models"
	"barmap/internal/snapshot"
)

// SnapshotReader loads an exported snapshot.
type SnapshotReader interface {
	Get(ctx context.Context, key string) ([]models.Bar, error)
}

// SnapshotController lets admins read the last export of a source.
type SnapshotController struct {
	snapshots SnapshotReader
}

func NewSnapshotController(snapshots SnapshotReader) *SnapshotController {
	return &SnapshotController{snapshots: snapshots}
}

func (sc *SnapshotController) GetSnapshot(c *gin.Context) {
	key := snapshot.Key(c.Param("source"))
	bars, err := sc.snapshots.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No snapshot for " + c.Param("source")})
			return
		}
		logrus.WithError(err).WithField("key", key).Error("GetSnapshot: read failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Snapshot read failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "count": len(bars), "data": bars})
}
