package controllers

import (
	"context"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"barmap/internal/importer"
	"barmap/internal/sources"
)

// ImportRunner runs one import of a source.
type ImportRunner interface {
	Run(ctx context.Context, src sources.Source, opts importer.Options) (importer.Result, error)
}

// ImportController triggers source imports from the admin API.
type ImportController struct {
	runner  ImportRunner
	sources map[string]sources.Source
}

func NewImportController(runner ImportRunner, srcs ...sources.Source) *ImportController {
	byName := make(map[string]sources.Source, len(srcs))
	for _, s := range srcs {
		byName[s.Name()] = s
	}
	return &ImportController{runner: runner, sources: byName}
}

type importInput struct {
	Enrich bool `json:"enrich"`
}

// Import runs the source named in the path and returns the run summary.
func (ic *ImportController) Import(c *gin.Context) {
	name := c.Param("source")
	src, ok := ic.sources[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Unknown source: " + name,
			"available": ic.names(),
		})
		return
	}

	var input importInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	res, err := ic.runner.Run(c.Request.Context(), src, importer.Options{Enrich: input.Enrich})
	if err != nil {
		logrus.WithError(err).WithField("source", name).Error("Import failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Import failed: " + err.Error(), "result": res})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}

func (ic *ImportController) names() []string {
	out := make([]string, 0, len(ic.sources))
	for n := range ic.sources {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
