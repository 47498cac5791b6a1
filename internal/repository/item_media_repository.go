package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/voicedeck/postqueue/internal/models"
)

type ItemMediaRepository interface {
	Create(ctx context.Context, tx *sql.Tx, im *models.QueueItemMedia) error
	ListByItemID(ctx context.Context, itemID int64) ([]*models.QueueItemMedia, error)
}

type itemMediaRepository struct {
	db *sql.DB
}

func NewItemMediaRepository(db *sql.DB) ItemMediaRepository {
	return &itemMediaRepository{db: db}
}

func (r *itemMediaRepository) Create(ctx context.Context, tx *sql.Tx, im *models.QueueItemMedia) error {
	query := `INSERT INTO queue_item_media (item_id, asset_id, display_order) VALUES ($1, $2, $3)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, im.ItemID, im.AssetID, im.DisplayOrder)
	} else {
		_, err = r.db.ExecContext(ctx, query, im.ItemID, im.AssetID, im.DisplayOrder)
	}
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (r *itemMediaRepository) ListByItemID(ctx context.Context, itemID int64) ([]*models.QueueItemMedia, error) {
	query := `SELECT item_id, asset_id, display_order, created_at FROM queue_item_media WHERE item_id = $1 ORDER BY display_order ASC`
	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var media []*models.QueueItemMedia
	for rows.Next() {
		var im models.QueueItemMedia
		err := rows.Scan(&im.ItemID, &im.AssetID, &im.DisplayOrder, &im.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		media = append(media, &im)
	}
	return media, nil
}
