package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"barmap/internal/events"
	"barmap/internal/geo"
	"barmap/internal/mapview"
	"barmap/internal/models"
	"barmap/internal/store"
)

// BarController serves the bar listing and the admin write API.
type BarController struct {
	bars      store.BarStore
	publisher events.Publisher
}

func NewBarController(bars store.BarStore, publisher events.Publisher) *BarController {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &BarController{bars: bars, publisher: publisher}
}

type barInput struct {
	Name         string   `json:"name" binding:"required"`
	Lat          *float64 `json:"lat" binding:"required"`
	Lng          *float64 `json:"lng" binding:"required"`
	HappyHour    string   `json:"happy_hour"`
	Address      string   `json:"address"`
	Phone        string   `json:"phone"`
	Website      string   `json:"website"`
	OpeningHours []string `json:"opening_hours"`
}

type barUpdateInput struct {
	Name         *string   `json:"name"`
	Lat          *float64  `json:"lat"`
	Lng          *float64  `json:"lng"`
	HappyHour    *string   `json:"happy_hour"`
	Address      *string   `json:"address"`
	Phone        *string   `json:"phone"`
	Website      *string   `json:"website"`
	OpeningHours *[]string `json:"opening_hours"`
}

// filterFromQuery reads source, q, limit and the lat/lng/radius triple.
func filterFromQuery(c *gin.Context) (store.Filter, error) {
	f := store.Filter{
		Source: c.Query("source"),
		Query:  c.Query("q"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return f, errBadQuery("limit")
		}
		f.Limit = limit
	}

	lat, lng, radius := c.Query("lat"), c.Query("lng"), c.Query("radius")
	if lat == "" && lng == "" && radius == "" {
		return f, nil
	}
	n := store.Near{Radius: 1000}
	var err error
	if n.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
		return f, errBadQuery("lat")
	}
	if n.Lng, err = strconv.ParseFloat(lng, 64); err != nil {
		return f, errBadQuery("lng")
	}
	if radius != "" {
		if n.Radius, err = strconv.ParseFloat(radius, 64); err != nil || n.Radius <= 0 {
			return f, errBadQuery("radius")
		}
	}
	f.Near = &n
	return f, nil
}

type errBadQuery string

func (e errBadQuery) Error() string { return "invalid query parameter: " + string(e) }

// ListBars returns bars matching the query filters.
func (bc *BarController) ListBars(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bars, err := bc.bars.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, "List bars", err)
		return
	}
	if bars == nil {
		bars = []models.Bar{}
	}
	c.JSON(http.StatusOK, gin.H{"data": bars})
}

// GetBar returns one bar with its popup and stored point geometry.
func (bc *BarController) GetBar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	bar, err := bc.bars.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Get bar", err)
		return
	}

	resp := gin.H{"bar": bar, "popup": mapview.PopupHTML(*bar)}
	geometry, err := geo.WKBToGeoJSON(bar.Geometry)
	if err != nil {
		logrus.WithError(err).WithField("bar_id", bar.ID).Warn("GetBar: stored geometry unreadable")
	} else if geometry != "" {
		resp["geometry"] = json.RawMessage(geometry)
	}
	c.JSON(http.StatusOK, resp)
}

// GeoJSON returns the filtered bars as a FeatureCollection.
func (bc *BarController) GeoJSON(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bars, err := bc.bars.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, "List bars", err)
		return
	}
	body, err := json.Marshal(mapview.FeatureCollection(bars))
	if err != nil {
		logrus.WithError(err).Error("GeoJSON: encode failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Encoding failed"})
		return
	}
	c.Data(http.StatusOK, "application/geo+json", body)
}

// CreateBar adds a manually curated bar.
func (bc *BarController) CreateBar(c *gin.Context) {
	var input barInput
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateBar: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	bar := models.Bar{
		Name:         input.Name,
		Lat:          *input.Lat,
		Lng:          *input.Lng,
		HappyHour:    input.HappyHour,
		Source:       models.SourceManual,
		ExternalID:   uuid.NewString(),
		Address:      input.Address,
		Phone:        input.Phone,
		Website:      input.Website,
		OpeningHours: input.OpeningHours,
	}
	if err := bc.bars.Create(c.Request.Context(), &bar); err != nil {
		respondError(c, "Create bar", err)
		return
	}

	bc.publish(c, events.BarCreated, bar)
	c.JSON(http.StatusCreated, gin.H{"bar": bar})
}

// UpdateBar applies a partial update.
func (bc *BarController) UpdateBar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var input barUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateBar: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bar, err := bc.bars.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Get bar", err)
		return
	}
	applyBarUpdates(bar, &input)

	if err := bc.bars.Update(c.Request.Context(), bar); err != nil {
		respondError(c, "Update bar", err)
		return
	}

	bc.publish(c, events.BarUpdated, *bar)
	c.JSON(http.StatusOK, gin.H{"bar": bar})
}

func applyBarUpdates(bar *models.Bar, input *barUpdateInput) {
	if input.Name != nil {
		bar.Name = *input.Name
	}
	if input.Lat != nil {
		bar.Lat = *input.Lat
	}
	if input.Lng != nil {
		bar.Lng = *input.Lng
	}
	if input.HappyHour != nil {
		bar.HappyHour = *input.HappyHour
	}
	if input.Address != nil {
		bar.Address = *input.Address
	}
	if input.Phone != nil {
		bar.Phone = *input.Phone
	}
	if input.Website != nil {
		bar.Website = *input.Website
	}
	if input.OpeningHours != nil {
		bar.OpeningHours = *input.OpeningHours
	}
}

// DeleteBar removes a bar.
func (bc *BarController) DeleteBar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	bar, err := bc.bars.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, "Get bar", err)
		return
	}
	if err := bc.bars.Delete(c.Request.Context(), id); err != nil {
		respondError(c, "Delete bar", err)
		return
	}

	bc.publish(c, events.BarDeleted, *bar)
	c.JSON(http.StatusOK, gin.H{"message": "Bar deleted successfully"})
}

func (bc *BarController) publish(c *gin.Context, kind string, bar models.Bar) {
	if err := bc.publisher.Publish(c.Request.Context(), events.NewBarEvent(kind, bar)); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"bar_id": bar.ID,
			"type":   kind,
		}).Warn("Failed to publish bar event")
	}
}
