package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/medislot-api/internal/catalog"
	"github.com/gdg-garage/medislot-api/internal/models"
	"gorm.io/gorm"
)

type CatalogHandler struct {
	db *gorm.DB
}

func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

type CentersResponse struct {
	Body []models.HealthCenter
}

func (h *CatalogHandler) HandleCenters(ctx context.Context, _ *struct{}) (*CentersResponse, error) {
	centers, err := catalog.Centers(h.db.WithContext(ctx))
	if err != nil {
		return nil, problem(err)
	}
	return &CentersResponse{Body: centers}, nil
}

type CenterServicesRequest struct {
	ID string `path:"id"`
}

type CenterServicesResponse struct {
	Body []catalog.Offering
}

func (h *CatalogHandler) HandleServices(ctx context.Context, input *CenterServicesRequest) (*CenterServicesResponse, error) {
	db := h.db.WithContext(ctx)
	if _, err := catalog.Center(db, input.ID); err != nil {
		return nil, problem(err)
	}
	offerings, err := catalog.Services(db, input.ID)
	if err != nil {
		return nil, problem(err)
	}
	return &CenterServicesResponse{Body: offerings}, nil
}

func (h *CatalogHandler) register(api huma.API) {
	huma.Get(api, "/centers", h.HandleCenters, tagged("Catalog"))
	huma.Get(api, "/centers/{id}/services", h.HandleServices, tagged("Catalog"))
}
