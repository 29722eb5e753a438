package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/avvo-profile-scraper/internal/database"
	"github.com/maltedev/avvo-profile-scraper/internal/models"
	"github.com/maltedev/avvo-profile-scraper/internal/scraper"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeProfileScraped is published after a profile and its reviews are stored
	EventTypeProfileScraped EventType = "PROFILE_SCRAPED"

	AggregateTypeProfile = "attorney_profile"
)

// ProfileScrapedPayload is the body of a PROFILE_SCRAPED event.
type ProfileScrapedPayload struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	Timestamp      time.Time `json:"timestamp"`
	RunID          string    `json:"run_id"`
	JobID          string    `json:"job_id,omitempty"`
	ProfileID      int64     `json:"profile_id"`
	ProfileURL     string    `json:"profile_url"`
	NomenclatureID string    `json:"nomenclature_id"`
	FullName       string    `json:"attorney_full_name"`
	FirmName       string    `json:"firm_name,omitempty"`
	State          string    `json:"company_state,omitempty"`
	PracticeArea   string    `json:"primary_practice_area,omitempty"`
	OverallRating  *float64  `json:"overall_average_rating,omitempty"`
	ReviewCount    int       `json:"reviews_extracted"`
	ReviewFilter   string    `json:"review_date_filter"`
	StopReason     string    `json:"stop_reason,omitempty"`
	PagesLoaded    int       `json:"pages_loaded,omitempty"`
	Source         string    `json:"source"`
}

// NewProfileScrapedPayload summarizes a scrape result. ProfileID is filled in
// once the profile row exists.
func NewProfileScrapedPayload(res *scraper.Result, jobID string) *ProfileScrapedPayload {
	p := res.Profile
	payload := &ProfileScrapedPayload{
		RunID:          res.RunID,
		JobID:          jobID,
		ProfileURL:     p.ProfileURL,
		NomenclatureID: p.NomenclatureID,
		FullName:       p.FullName,
		FirmName:       p.FirmName,
		State:          p.State,
		PracticeArea:   p.PrimaryPracticeArea,
		OverallRating:  p.OverallRating,
		ReviewCount:    len(res.Reviews),
		ReviewFilter:   p.ReviewDateFilter,
	}
	if res.Walk != nil {
		payload.StopReason = string(res.Walk.StopReason)
		payload.PagesLoaded = res.Walk.PagesLoaded
	}
	return payload
}

// OutboxWriter inserts events inside a caller-owned transaction.
type OutboxWriter interface {
	InsertWithTx(ctx context.Context, tx pgx.Tx, event *database.OutboxEvent) error
}

// ProfileStore persists a scrape and runs afterSave in the same transaction.
type ProfileStore interface {
	SaveScrape(ctx context.Context, p *models.ProfileRecord, reviews []*models.ReviewRecord, afterSave database.AfterSaveFunc) (int64, error)
}

// Publisher handles event publishing using transactional outbox pattern
type Publisher struct {
	profiles ProfileStore
	outbox   OutboxWriter
	stream   string
	logger   *slog.Logger
}

// NewPublisher creates a publisher backed by the profile and outbox tables of db.
func NewPublisher(db *database.DB, logger *slog.Logger) *Publisher {
	return NewPublisherWith(database.NewProfileRepository(db), database.NewOutboxRepository(db), logger)
}

func NewPublisherWith(profiles ProfileStore, outbox OutboxWriter, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		profiles: profiles,
		outbox:   outbox,
		stream:   database.DefaultStream,
		logger:   logger.With("component", "event_publisher"),
	}
}

// SaveAndPublish stores the scrape and queues a PROFILE_SCRAPED event in one
// transaction. Either both are committed or neither is.
func (p *Publisher) SaveAndPublish(ctx context.Context, res *scraper.Result, jobID string) (int64, error) {
	payload := NewProfileScrapedPayload(res, jobID)

	var event *database.OutboxEvent
	id, err := p.profiles.SaveScrape(ctx, res.Profile, res.Reviews, func(ctx context.Context, tx pgx.Tx, profileID int64) error {
		payload.ProfileID = profileID

		var err error
		event, err = p.newEvent(payload)
		if err != nil {
			return err
		}
		if err := p.outbox.InsertWithTx(ctx, tx, event); err != nil {
			return fmt.Errorf("failed to insert outbox event: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published to outbox",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"nomenclature_id", payload.NomenclatureID,
		"profile_id", id,
		"outbox_id", event.ID,
	)

	return id, nil
}

func (p *Publisher) newEvent(payload *ProfileScrapedPayload) (*database.OutboxEvent, error) {
	if payload.EventID == "" {
		payload.EventID = uuid.New().String()
	}
	if payload.EventType == "" {
		payload.EventType = string(EventTypeProfileScraped)
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}
	if payload.Source == "" {
		payload.Source = database.Source
	}

	// profiles without a recognizable URL slug still get a stable aggregate id
	aggregateID := payload.NomenclatureID
	if aggregateID == "" {
		aggregateID = payload.ProfileURL
	}

	event, err := database.NewEvent(AggregateTypeProfile, aggregateID, string(EventTypeProfileScraped), payload)
	if err != nil {
		return nil, err
	}
	event.TargetStream = p.stream
	return event, nil
}
