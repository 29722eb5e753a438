package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/maltedev/avvo-profile-scraper/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// StoredProfile is a persisted scrape of one attorney profile.
type StoredProfile struct {
	ID             int64           `db:"id" json:"id"`
	ProfileURL     string          `db:"profile_url" json:"profile_url"`
	NomenclatureID string          `db:"nomenclature_id" json:"nomenclature_id"`
	FullName       string          `db:"full_name" json:"full_name"`
	ReviewCount    int             `db:"review_count" json:"review_count"`
	ReviewFilter   string          `db:"review_filter" json:"review_filter"`
	Record         json.RawMessage `db:"record" json:"record"`
	ScrapedAt      time.Time       `db:"scraped_at" json:"scraped_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// AfterSaveFunc runs inside the transaction that stored a profile.
type AfterSaveFunc func(ctx context.Context, tx pgx.Tx, profileID int64) error

type ProfileRepository struct {
	db *DB
}

func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// SaveScrape upserts the profile by URL and replaces its reviews. afterSave,
// when set, joins the same transaction so dependent writes commit or roll
// back together with the scrape.
func (r *ProfileRepository) SaveScrape(ctx context.Context, p *models.ProfileRecord, reviews []*models.ReviewRecord, afterSave AfterSaveFunc) (int64, error) {
	if p.ProfileURL == "" {
		return 0, fmt.Errorf("profile URL is required")
	}

	record, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal profile: %w", err)
	}

	var id int64
	err = r.db.Transaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO attorney_profiles (
				profile_url, nomenclature_id, full_name, review_count,
				review_filter, record, scraped_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (profile_url) DO UPDATE SET
				nomenclature_id = EXCLUDED.nomenclature_id,
				full_name = EXCLUDED.full_name,
				review_count = EXCLUDED.review_count,
				review_filter = EXCLUDED.review_filter,
				record = EXCLUDED.record,
				scraped_at = EXCLUDED.scraped_at,
				updated_at = NOW()
			RETURNING id`

		if err := tx.QueryRow(ctx, query,
			p.ProfileURL, p.NomenclatureID, p.FullName, len(reviews),
			p.ReviewDateFilter, record, p.ScrapedAt,
		).Scan(&id); err != nil {
			return fmt.Errorf("failed to upsert profile: %w", err)
		}

		if _, err := tx.Exec(ctx, "DELETE FROM attorney_reviews WHERE profile_id = $1", id); err != nil {
			return fmt.Errorf("failed to clear reviews: %w", err)
		}

		if err := insertReviews(ctx, tx, id, reviews); err != nil {
			return err
		}

		if afterSave != nil {
			return afterSave(ctx, tx, id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return id, nil
}

func insertReviews(ctx context.Context, tx pgx.Tx, profileID int64, reviews []*models.ReviewRecord) error {
	if len(reviews) == 0 {
		return nil
	}

	query := `
		INSERT INTO attorney_reviews (
			profile_id, position, reviewer_name, review_date, rating,
			title, body, review_type, tooltip,
			response_name, response_date, response_text
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	batch := &pgx.Batch{}
	for i, rv := range reviews {
		var respName, respText *string
		var respDate *time.Time
		if rv.Response != nil {
			respName, respText, respDate = &rv.Response.Name, &rv.Response.Text, rv.Response.Date
		}
		batch.Queue(query,
			profileID, i, rv.ReviewerName, rv.Date, rv.Rating,
			rv.Title, rv.Text, rv.Type, rv.Tooltip,
			respName, respDate, respText,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert reviews: %w", err)
	}
	return nil
}

func (r *ProfileRepository) GetByURL(ctx context.Context, profileURL string) (*StoredProfile, error) {
	query := `
		SELECT id, profile_url, nomenclature_id, full_name, review_count,
		       review_filter, record, scraped_at, updated_at
		FROM attorney_profiles
		WHERE profile_url = $1`

	sp := &StoredProfile{}
	err := r.db.pool.QueryRow(ctx, query, profileURL).Scan(
		&sp.ID, &sp.ProfileURL, &sp.NomenclatureID, &sp.FullName, &sp.ReviewCount,
		&sp.ReviewFilter, &sp.Record, &sp.ScrapedAt, &sp.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, profileURL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return sp, nil
}

// ListReviews returns the stored reviews of a profile in page order.
func (r *ProfileRepository) ListReviews(ctx context.Context, profileID int64) ([]*models.ReviewRecord, error) {
	query := `
		SELECT reviewer_name, review_date, rating, title, body, review_type, tooltip,
		       response_name, response_date, response_text
		FROM attorney_reviews
		WHERE profile_id = $1
		ORDER BY position`

	rows, err := r.db.pool.Query(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*models.ReviewRecord
	for rows.Next() {
		rv := &models.ReviewRecord{}
		var respName, respText *string
		var respDate *time.Time
		if err := rows.Scan(
			&rv.ReviewerName, &rv.Date, &rv.Rating, &rv.Title, &rv.Text, &rv.Type, &rv.Tooltip,
			&respName, &respDate, &respText,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		if respName != nil || respText != nil {
			rv.Response = &models.AttorneyResponse{Date: respDate}
			if respName != nil {
				rv.Response.Name = *respName
			}
			if respText != nil {
				rv.Response.Text = *respText
			}
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return reviews, nil
}
