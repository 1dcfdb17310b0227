package service

import (
	"context"
	"encoding/json"

	"crmdesk/internal/models"

	"go.uber.org/zap"
)

// Audit actions.
const (
	ActionLogin        = "auth.login"
	ActionLogout       = "auth.logout"
	ActionLeadStatus   = "lead.status"
	ActionLeadAssign   = "lead.assign"
	ActionLeadExport   = "lead.export"
	ActionUserCreate   = "user.create"
	ActionUserEdit     = "user.edit"
	ActionUserToggle   = "user.toggle"
	ActionProfileWrite = "profile.update"
)

type AuditWriter interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// AuditService records who changed what. A failed write is logged and
// never fails the request that caused it.
type AuditService struct {
	repo AuditWriter
	log  *zap.Logger
}

func NewAuditService(repo AuditWriter, log *zap.Logger) *AuditService {
	return &AuditService{repo: repo, log: log}
}

func (s *AuditService) Record(ctx context.Context, a Actor, action, resource, resourceID string, meta map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	var metaJSON string
	if meta != nil {
		b, _ := json.Marshal(meta)
		metaJSON = string(b)
	}
	err := s.repo.Create(ctx, &models.AuditLog{
		UserID:     a.UserID,
		Role:       a.Role,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IP:         a.IP,
		UserAgent:  a.UserAgent,
		Metadata:   metaJSON,
	})
	if err != nil {
		s.log.Warn("audit write failed",
			zap.String("action", action),
			zap.String("resource_id", resourceID),
			zap.Error(err))
	}
}
