package service

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"crmdesk/internal/backend"
	"crmdesk/internal/models"
	"crmdesk/pkg/cloudinary"

	"go.uber.org/zap"
)

// Picture is an uploaded profile picture.
type Picture struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

type ProfileService struct {
	api   Backend
	cloud cloudinary.Uploader
	audit *AuditService
	log   *zap.Logger
}

// NewProfileService wires the profile flow. cloud may be nil, in which case
// pictures are forwarded to the backend as files.
func NewProfileService(api Backend, cloud cloudinary.Uploader, audit *AuditService, log *zap.Logger) *ProfileService {
	return &ProfileService{api: api, cloud: cloud, audit: audit, log: log}
}

func (s *ProfileService) Get(ctx context.Context, a Actor) (*models.Profile, error) {
	return s.api.Profile(ctx, a.Token, a.Role)
}

// Update patches the caller's own profile. With Cloudinary configured the
// picture is uploaded there first and its URL sent as profile_pic_url.
func (s *ProfileService) Update(ctx context.Context, a Actor, f backend.Form, pic *Picture) (*models.Profile, error) {
	if f.Fields == nil {
		f.Fields = map[string][]string{}
	}
	// Identity and activation are not self-service.
	for _, k := range []string{"id", "email", "user_active", "is_admin", "is_team_leader", "is_staff_new", "is_freelancer"} {
		f.Fields.Del(k)
	}
	if pic != nil {
		if s.cloud != nil {
			url, err := s.cloud.UploadProfileImage(ctx, pic.Content, a.UserID)
			if err != nil {
				s.log.Warn("profile picture upload failed", zap.Int64("user_id", a.UserID), zap.Error(err))
				return nil, fmt.Errorf("upload profile picture: %w", err)
			}
			f.Fields.Set("profile_pic_url", url)
		} else {
			f.Files = append(f.Files, backend.File{
				Field:       "profile_pic",
				Filename:    pic.Filename,
				ContentType: pic.ContentType,
				Content:     pic.Content,
			})
		}
	}
	if len(f.Fields) == 0 && len(f.Files) == 0 {
		return nil, invalid(fmt.Errorf("nothing to update"))
	}
	p, err := s.api.UpdateProfile(ctx, a.Token, a.Role, f)
	if err != nil {
		return nil, err
	}
	changed := make([]string, 0, len(f.Fields)+len(f.Files))
	for k := range f.Fields {
		changed = append(changed, k)
	}
	for _, file := range f.Files {
		changed = append(changed, file.Field)
	}
	s.audit.Record(ctx, a, ActionProfileWrite, "profile", strconv.FormatInt(a.UserID, 10), map[string]interface{}{"fields": changed})
	if p == nil {
		return s.Get(ctx, a)
	}
	return p, nil
}
