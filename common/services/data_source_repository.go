package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/LexiconIndonesia/crypto-news-crawler/common"
	"github.com/LexiconIndonesia/crypto-news-crawler/common/models"
	"github.com/LexiconIndonesia/crypto-news-crawler/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("data source not found")

// DataSourceRepository is a PostgreSQL implementation of DataSourceService
type DataSourceRepository struct {
	pool    Pool
	queries *repository.Queries
}

// NewDataSourceRepository creates a new PostgreSQL DataSourceRepository
func NewDataSourceRepository(pool Pool) DataSourceService {
	return &DataSourceRepository{
		pool:    pool,
		queries: repository.New(pool),
	}
}

// GetLatestPublishedAt returns MAX(published_at) for the type, None when the table has no dated rows
func (r *DataSourceRepository) GetLatestPublishedAt(ctx context.Context, recordType common.RecordType) (mo.Option[time.Time], error) {
	latest, err := r.queries.GetLatestPublishedAt(ctx, recordType.String())
	if err != nil {
		return mo.None[time.Time](), fmt.Errorf("query latest published_at: %w", err)
	}
	if !latest.Valid {
		return mo.None[time.Time](), nil
	}
	return mo.Some(latest.Time.UTC()), nil
}

// InsertBatch inserts all records in a single transaction. A conflict on the
// natural key leaves the stored row untouched and counts as skipped; any other
// failure rolls the whole batch back.
func (r *DataSourceRepository) InsertBatch(ctx context.Context, records []models.DataSource) (InsertResult, error) {
	var result InsertResult
	if len(records) == 0 {
		return result, nil
	}

	params, err := toInsertParams(records)
	if err != nil {
		return result, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Warn().Err(rbErr).Msg("Failed to roll back batch insert")
		}
	}()

	qtx := r.queries.WithTx(tx)
	for _, p := range params {
		n, err := qtx.InsertDataSource(ctx, p)
		if err != nil {
			return InsertResult{}, fmt.Errorf("insert %s (%s): %w", p.ID, p.Url, err)
		}
		if n == 0 {
			result.Skipped++
			log.Debug().Str("id", p.ID).Str("url", p.Url).Msg("Duplicate skipped")
			continue
		}
		result.Inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return InsertResult{}, fmt.Errorf("commit batch insert: %w", err)
	}
	committed = true

	return result, nil
}

// List returns records of a type ordered by published_at DESC NULLS LAST, created_at DESC
func (r *DataSourceRepository) List(ctx context.Context, recordType common.RecordType, limit, offset int) ([]models.DataSource, error) {
	rows, err := r.queries.ListDataSources(ctx, repository.ListDataSourcesParams{
		Type:   recordType.String(),
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list data sources: %w", err)
	}

	results := make([]models.DataSource, 0, len(rows))
	for _, row := range rows {
		ds, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		results = append(results, ds)
	}
	return results, nil
}

// Count returns the number of records of a type
func (r *DataSourceRepository) Count(ctx context.Context, recordType common.RecordType) (int64, error) {
	count, err := r.queries.CountDataSources(ctx, recordType.String())
	if err != nil {
		return 0, fmt.Errorf("count data sources: %w", err)
	}
	return count, nil
}

// ExistsByURL reports whether a URL was already ingested for a type
func (r *DataSourceRepository) ExistsByURL(ctx context.Context, recordType common.RecordType, url string) (bool, error) {
	exists, err := r.queries.DataSourceExistsByURL(ctx, repository.DataSourceExistsByURLParams{
		Type: recordType.String(),
		Url:  url,
	})
	if err != nil {
		return false, fmt.Errorf("check data source %s: %w", url, err)
	}
	return exists, nil
}

// GetByID gets a record by ID
func (r *DataSourceRepository) GetByID(ctx context.Context, id string) (models.DataSource, error) {
	row, err := r.queries.GetDataSourceByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.DataSource{}, ErrNotFound
		}
		return models.DataSource{}, fmt.Errorf("get data source %s: %w", id, err)
	}
	return fromRow(row)
}

func toInsertParams(records []models.DataSource) ([]repository.InsertDataSourceParams, error) {
	params := make([]repository.InsertDataSourceParams, 0, len(records))
	for _, ds := range records {
		raw, err := ds.RawContentText()
		if err != nil {
			return nil, err
		}
		params = append(params, repository.InsertDataSourceParams{
			ID:          ds.ID,
			Type:        ds.Type.String(),
			Url:         ds.URL,
			Summary:     ds.Summary,
			PublishedAt: toTimestamptz(ds.PublishedAt),
			RawContent:  raw,
			CreatedAt:   ds.CreatedAt,
		})
	}
	return params, nil
}

func toTimestamptz(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

func fromRow(row repository.DataSource) (models.DataSource, error) {
	ds := models.DataSource{
		ID:        row.ID,
		Type:      common.RecordType(row.Type),
		URL:       row.Url,
		Summary:   row.Summary,
		CreatedAt: row.CreatedAt.UTC(),
	}
	if row.PublishedAt.Valid {
		ds.PublishedAt = lo.ToPtr(row.PublishedAt.Time.UTC())
	}
	if row.RawContent != "" {
		if err := json.Unmarshal([]byte(row.RawContent), &ds.RawContent); err != nil {
			return models.DataSource{}, fmt.Errorf("decode raw content of %s: %w", row.ID, err)
		}
	}
	return ds, nil
}
