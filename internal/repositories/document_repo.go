package repositories

import (
	"context"
	"encoding/json"

	"github.com/hwainwright/gatefold/internal/database"
	"github.com/hwainwright/gatefold/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DocumentRepository reads the edition-metadata projection maintained by the
// publishing workflow. The access core only ever reads it.
type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*models.Document, error)
}

// DocumentRepositoryImpl implements DocumentRepository on postgres
type DocumentRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *database.DB) DocumentRepository {
	return &DocumentRepositoryImpl{pool: db.Pool}
}

// GetByID retrieves a document projection by its identifier
func (r *DocumentRepositoryImpl) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT id, title, storage_key, page_count, articles FROM documents WHERE id = $1`

	var doc models.Document
	var articles []byte

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&doc.ID, &doc.Title, &doc.StorageKey, &doc.PageCount, &articles,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if len(articles) > 0 {
		if err := json.Unmarshal(articles, &doc.Articles); err != nil {
			return nil, models.ErrInternalServer
		}
	}

	return &doc, nil
}
