package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"whereis/internal/application/service"
	"whereis/internal/domain"
)

// PositionResolver is satisfied by *service.Resolver.
type PositionResolver interface {
	Resolve(ctx context.Context, assetID string, now time.Time) service.Resolution
}

// Linker is satisfied by *service.MapLinker.
type Linker interface {
	Links(p domain.Position) service.MapLinks
}

type PositionResponse struct {
	AssetID    string            `json:"asset_id"`
	Position   domain.Position   `json:"position"`
	Source     string            `json:"source"`
	Stale      bool              `json:"stale"`
	AgeSeconds float64           `json:"age_seconds"`
	Links      *service.MapLinks `json:"links,omitempty"`
}

type PositionHandler struct {
	resolver PositionResolver
	linker   Linker
	now      func() time.Time
}

func NewPositionHandler(resolver PositionResolver, linker Linker, now func() time.Time) *PositionHandler {
	if now == nil {
		now = time.Now
	}
	return &PositionHandler{resolver: resolver, linker: linker, now: now}
}

// HandleGetPosition resolves GET /v1/assets/:id/position.
func (h *PositionHandler) HandleGetPosition(c echo.Context) error {
	assetID, err := NormalizeAssetID(c.Param("id"))
	if err != nil {
		return RespondWithError(c, NewValidationError("id", err.Error()))
	}

	now := h.now()
	res := h.resolver.Resolve(c.Request().Context(), assetID, now)
	if !res.Found {
		return RespondWithError(c, NewNoPositionError(assetID, res.RateLimited()))
	}

	return c.JSON(http.StatusOK, h.buildResponse(res, now))
}

func (h *PositionHandler) buildResponse(res service.Resolution, now time.Time) PositionResponse {
	out := PositionResponse{
		AssetID:    res.AssetID,
		Position:   res.Position,
		Source:     res.Source.String(),
		Stale:      res.Stale(),
		AgeSeconds: now.Sub(res.Position.FetchedAt).Seconds(),
	}
	if h.linker != nil {
		links := h.linker.Links(res.Position)
		out.Links = &links
	}
	return out
}

type HealthHandler struct {
	name    string
	version string
}

func NewHealthHandler(name, version string) *HealthHandler {
	return &HealthHandler{name: name, version: version}
}

func (h *HealthHandler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"name":    h.name,
		"version": h.version,
	})
}
