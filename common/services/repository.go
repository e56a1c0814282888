package services

import (
	"context"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/LexiconIndonesia/crypto-news-crawler/repository"
	"github.com/jackc/pgx/v5"
	"github.com/samber/mo"
)

// Pool is the part of pgxpool.Pool the repositories need
type Pool interface {
	repository.DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// InsertResult counts the outcome of a batch insert
type InsertResult struct {
	Inserted int
	Skipped  int
}

// DataSourceService defines the interface for data source database operations
type DataSourceService interface {
	// GetLatestPublishedAt returns the newest known publish time of a record type
	GetLatestPublishedAt(ctx context.Context, recordType common.RecordType) (mo.Option[time.Time], error)

	// InsertBatch inserts records in one transaction, ignoring natural-key conflicts
	InsertBatch(ctx context.Context, records []models.DataSource) (InsertResult, error)

	// List returns records newest first
	List(ctx context.Context, recordType common.RecordType, limit, offset int) ([]models.DataSource, error)

	// Count returns the number of records of a type
	Count(ctx context.Context, recordType common.RecordType) (int64, error)

	// ExistsByURL reports whether a URL was already ingested for a type
	ExistsByURL(ctx context.Context, recordType common.RecordType, url string) (bool, error)

	// GetByID gets a record by ID
	GetByID(ctx context.Context, id string) (models.DataSource, error)
}
