package service

import (
	"context"

	"crmdesk/internal/domain"
	"crmdesk/internal/incentive"
	"crmdesk/internal/models"
)

type IncentiveService struct {
	api Backend
}

func NewIncentiveService(api Backend) *IncentiveService {
	return &IncentiveService{api: api}
}

// Slabs returns the configured tiers after checking they are well formed.
func (s *IncentiveService) Slabs(ctx context.Context, a Actor) ([]models.Slab, error) {
	slabs, err := s.api.Slabs(ctx, a.Token)
	if err != nil {
		return nil, err
	}
	if err := incentive.Validate(slabs); err != nil {
		return nil, err
	}
	return slabs, nil
}

// ForStaff classifies a staff member's earnings into a slab. Staff and
// freelancers may only look at themselves.
func (s *IncentiveService) ForStaff(ctx context.Context, a Actor, staffID int64) (incentive.Result, error) {
	if staffID <= 0 {
		staffID = a.UserID
	}
	if staffID != a.UserID && !canViewOthers(a.Role) {
		return incentive.Result{}, ErrForbidden
	}
	slabs, err := s.Slabs(ctx, a)
	if err != nil {
		return incentive.Result{}, err
	}
	earned, err := s.api.StaffEarnings(ctx, a.Token, staffID)
	if err != nil {
		return incentive.Result{}, err
	}
	res, err := incentive.Evaluate(staffID, slabs, earned)
	if err != nil {
		return res, invalid(err)
	}
	return res, nil
}

func canViewOthers(role string) bool {
	switch role {
	case domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleTeamLeader:
		return true
	}
	return false
}
