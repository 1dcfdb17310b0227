package cloudinary

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/cloudinary/cloudinary-go/v2/config"
	"github.com/google/uuid"
)

// Uploader stores profile pictures and returns their public URL.
type Uploader interface {
	UploadProfileImage(ctx context.Context, file io.Reader, userID int64) (url string, err error)
}

// Square avatar delivered at auto quality and format.
const (
	AvatarSize  = 400
	avatarEager = "q_auto,f_auto,w_400,h_400,c_fill,g_face"
)

var eagerAsyncFalse = false

// AvatarURL returns the optimized delivery URL for an uploaded public ID.
func AvatarURL(cloudName, publicID string) string {
	return fmt.Sprintf("https://res.cloudinary.com/%s/image/upload/q_auto,f_auto,w_%d,h_%d,c_fill,g_face/%s",
		cloudName, AvatarSize, AvatarSize, publicID)
}

// PublicID names one upload of a user's picture. Every upload gets a new
// name so browsers and CDNs never serve a stale avatar.
func PublicID(userID int64) string {
	return fmt.Sprintf("user_%d_%s", userID, strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

type client struct {
	cloudName string
	folder    string
	uploader  *uploader.API
}

func (c *client) UploadProfileImage(ctx context.Context, file io.Reader, userID int64) (string, error) {
	result, err := c.uploader.Upload(ctx, file, uploader.UploadParams{
		Folder:     c.folder,
		PublicID:   PublicID(userID),
		Eager:      avatarEager,
		EagerAsync: &eagerAsyncFalse,
	})
	if err != nil {
		return "", err
	}
	if len(result.Eager) > 0 && result.Eager[0].SecureURL != "" {
		return result.Eager[0].SecureURL, nil
	}
	if result.PublicID != "" {
		return AvatarURL(c.cloudName, result.PublicID), nil
	}
	return result.SecureURL, nil
}

// New builds an Uploader that writes into folder.
func New(cloudName, apiKey, apiSecret, folder string) (Uploader, error) {
	cfg, err := config.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	up, err := uploader.NewWithConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	return &client{cloudName: cloudName, folder: folder, uploader: up}, nil
}
