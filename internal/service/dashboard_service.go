package service

import (
	"context"

	"crmdesk/internal/models"
)

type DashboardService struct {
	api Backend
}

func NewDashboardService(api Backend) *DashboardService {
	return &DashboardService{api: api}
}

// KPIs returns the caller's landing page cards.
func (s *DashboardService) KPIs(ctx context.Context, a Actor) ([]models.KPI, error) {
	return s.api.Dashboard(ctx, a.Token, a.Role)
}
