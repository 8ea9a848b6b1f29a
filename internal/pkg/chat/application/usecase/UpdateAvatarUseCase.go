package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	storage "kala-setu/internal/infrastructure/storage/port"
	chat "kala-setu/internal/pkg/chat/application/domain"
	profiles "kala-setu/internal/repository/port"
)

const (
	AvatarSize     = 256
	MaxAvatarBytes = 5 << 20
)

// ErrInvalidImage is returned for uploads that are not a decodable image.
var ErrInvalidImage = errors.New("avatar: not a valid image")

type UpdateAvatarInput struct {
	UserID string
	Image  io.Reader
}

// UpdateAvatarUseCase crops the upload to a square JPEG, stores it and points
// the profile at its public URL.
type UpdateAvatarUseCase struct {
	Profiles profiles.ProfileRepository
	Store    storage.ObjectStore
	Bucket   string
}

func NewUpdateAvatarUseCase(repo profiles.ProfileRepository, store storage.ObjectStore, bucket string) *UpdateAvatarUseCase {
	return &UpdateAvatarUseCase{Profiles: repo, Store: store, Bucket: bucket}
}

func (uc *UpdateAvatarUseCase) Execute(ctx context.Context, in UpdateAvatarInput) (string, error) {
	if in.UserID == "" || in.Image == nil {
		return "", fmt.Errorf("user_id and image are required")
	}

	img, err := imaging.Decode(io.LimitReader(in.Image, MaxAvatarBytes), imaging.AutoOrientation(true))
	if err != nil {
		return "", ErrInvalidImage
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return "", ErrInvalidImage
	}

	var buf bytes.Buffer
	thumb := imaging.Fill(img, AvatarSize, AvatarSize, imaging.Center, imaging.Lanczos)
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("avatar: encode: %w", err)
	}

	key := in.UserID + "/" + uuid.NewString() + ".jpg"
	if _, err := uc.Store.Upload(ctx, uc.Bucket, key, bytes.NewReader(buf.Bytes()), "image/jpeg"); err != nil {
		return "", storeErr(err)
	}

	url := uc.Store.PublicURL(uc.Bucket, key)
	if err := uc.Profiles.SetAvatarURL(ctx, in.UserID, url); err != nil {
		return "", storeErr(err, chat.ErrProfileNotFound)
	}
	return url, nil
}
