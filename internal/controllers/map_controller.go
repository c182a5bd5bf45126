package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"barmap/internal/mapview"
	"barmap/internal/models"
	"barmap/internal/store"
)

// MapController renders the bar map page and its JSON model.
type MapController struct {
	bars    store.BarStore
	view    mapview.View
	title   string
	liveURL string
}

func NewMapController(bars store.BarStore, view mapview.View, liveURL string) *MapController {
	return &MapController{bars: bars, view: view, title: "DC Happy Hours", liveURL: liveURL}
}

func (mc *MapController) load(c *gin.Context) (mapview.Map, bool) {
	bars, err := mc.bars.List(c.Request.Context(), store.Filter{})
	if err != nil {
		respondError(c, "Load map", err)
		return mapview.Map{}, false
	}
	if bars == nil {
		bars = []models.Bar{}
	}
	return mapview.Build(mc.view, bars), true
}

// Page serves the Leaflet map with every stored bar as a marker.
func (mc *MapController) Page(c *gin.Context) {
	m, ok := mc.load(c)
	if !ok {
		return
	}
	c.HTML(http.StatusOK, mapview.PageTemplate, mapview.PageData{
		Title:   mc.title,
		Map:     m,
		LiveURL: mc.liveURL,
	})
}

// MapJSON returns the view and markers the page is built from.
func (mc *MapController) MapJSON(c *gin.Context) {
	m, ok := mc.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, m)
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
