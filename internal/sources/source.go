// Package sources fetches bar listings from external directories.
package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"barmap/internal/models"
)

const (
	unnamedBar     = "Unnamed Bar"
	userAgent      = "barmap/1.0"
	defaultTimeout = 30 * time.Second
)

var ErrMissingAPIKey = errors.New("missing API key")

// Source is a bar directory the importer can pull from.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]models.Bar, error)
}

// Enricher adds detail fields to a bar that a listing call does not return.
type Enricher interface {
	Enrich(ctx context.Context, bar *models.Bar) error
}

// StatusError is returned when a directory answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}
