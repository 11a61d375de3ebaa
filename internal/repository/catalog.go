package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/atinyakov/GophChat/internal/models"
)

// PostgresCatalogRepository reads the custom emoji of the server.
type PostgresCatalogRepository struct {
	DB *sql.DB
}

func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{DB: db}
}

// CustomEmojis returns the emoji updated after since, oldest first. A zero
// since returns all of them.
func (r *PostgresCatalogRepository) CustomEmojis(ctx context.Context, since time.Time) ([]models.Emoji, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, name, aliases, extension, updated_at
		  FROM custom_emojis
		 WHERE updated_at > $1
		 ORDER BY updated_at
	`, since)
	if err != nil {
		return nil, fmt.Errorf("CustomEmojis: %w", err)
	}
	defer rows.Close()

	emojis := []models.Emoji{}
	for rows.Next() {
		var e models.Emoji
		if err := rows.Scan(&e.ID, &e.Name, pq.Array(&e.Aliases), &e.Extension, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		emojis = append(emojis, e)
	}
	return emojis, rows.Err()
}
