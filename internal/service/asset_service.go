package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/voicedeck/postqueue/internal/apperrors"
	"github.com/voicedeck/postqueue/internal/models"
	"github.com/voicedeck/postqueue/internal/repository"
)

const mediaURLExpiry = 1 * time.Hour

type AssetService interface {
	Upload(ctx context.Context, userID int64, files []*multipart.FileHeader) ([]*models.MediaAsset, error)
	List(ctx context.Context, userID int64) ([]*models.MediaAsset, error)
	ResolveItemURLs(ctx context.Context, itemID int64) ([]string, error)
}

type assetService struct {
	ma repository.MediaAssetRepository
	im repository.ItemMediaRepository
	r2 R2Service
}

func NewAssetService(ma repository.MediaAssetRepository, im repository.ItemMediaRepository, r2 R2Service) AssetService {
	return &assetService{
		ma: ma,
		im: im,
		r2: r2,
	}
}

func (s *assetService) Upload(ctx context.Context, userID int64, files []*multipart.FileHeader) ([]*models.MediaAsset, error) {
	if len(files) == 0 {
		slog.Info("no files provided for upload")
		return nil, apperrors.ErrValidation
	}

	var assets []*models.MediaAsset
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}

		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}

		kind, err := filetype.Match(data)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		if !filetype.IsImage(data) && !filetype.IsVideo(data) {
			err = errors.New("only image and video uploads are supported")
			slog.Info(err.Error())
			return nil, apperrors.ErrValidation
		}

		id, err := gonanoid.New()
		if err != nil {
			return nil, err
		}
		key := fmt.Sprintf("%d/%s.%s", userID, id, kind.Extension)

		if err := s.r2.UploadToR2(ctx, key, data, kind.MIME.Value); err != nil {
			return nil, fmt.Errorf("error uploading media: %w", err)
		}

		asset := &models.MediaAsset{
			UserID:    userID,
			FileName:  strings.TrimSpace(fh.Filename),
			FileType:  kind.MIME.Value,
			FileSize:  fh.Size,
			ObjectKey: key,
		}
		assetID, err := s.ma.Create(ctx, nil, asset)
		if err != nil {
			return nil, fmt.Errorf("error saving media asset: %w", err)
		}
		asset.ID = assetID
		assets = append(assets, asset)
	}

	return assets, nil
}

func (s *assetService) List(ctx context.Context, userID int64) ([]*models.MediaAsset, error) {
	return s.ma.ListByUserID(ctx, userID)
}

// ResolveItemURLs turns an item's attached assets into presigned URLs,
// ordered by display order.
func (s *assetService) ResolveItemURLs(ctx context.Context, itemID int64) ([]string, error) {
	media, err := s.im.ListByItemID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	var urls []string
	for _, m := range media {
		asset, err := s.ma.GetByID(ctx, m.AssetID)
		if err != nil {
			return nil, err
		}
		if asset == nil {
			slog.Info("media asset missing for item", "item_id", itemID, "asset_id", m.AssetID)
			continue
		}
		u, err := s.r2.PresignGet(ctx, asset.ObjectKey, mediaURLExpiry)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}
