package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/phishsim/backend/internal/apperrors"
	"github.com/phishsim/backend/internal/models"
)

type CampaignRepo struct {
	pool *pgxpool.Pool
}

func NewCampaignRepo(pool *pgxpool.Pool) *CampaignRepo {
	return &CampaignRepo{pool: pool}
}

func (r *CampaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO campaigns (owner_id, recipient_email, subject, email_content, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, c.OwnerID, c.RecipientEmail, c.Subject, c.EmailContent, c.Status,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CampaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var c models.Campaign
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, recipient_email, subject, email_content,
		       status, created_at, sent_at, clicked_at, updated_at
		FROM campaigns WHERE id = $1
	`, id).Scan(&c.ID, &c.OwnerID, &c.RecipientEmail, &c.Subject, &c.EmailContent,
		&c.Status, &c.CreatedAt, &c.SentAt, &c.ClickedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListByOwner returns the owner's campaigns newest first, projected
// without the content body.
func (r *CampaignRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.CampaignSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, owner_id, recipient_email, subject, status, created_at, sent_at, clicked_at
		FROM campaigns
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.CampaignSummary
	for rows.Next() {
		var c models.CampaignSummary
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.RecipientEmail, &c.Subject,
			&c.Status, &c.CreatedAt, &c.SentAt, &c.ClickedAt); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// StatusPatch carries the timestamp to stamp alongside a status change.
type StatusPatch struct {
	SentAt    *time.Time
	ClickedAt *time.Time
}

// UpdateStatusIf performs the compare-and-swap transition: the update
// only applies while the row still holds expectedStatus, so two
// concurrent callers cannot both win. Returns the updated record, or
// nil when the guard did not match (no row in expectedStatus).
func (r *CampaignRepo) UpdateStatusIf(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string, patch StatusPatch) (*models.Campaign, error) {
	var c models.Campaign
	err := r.pool.QueryRow(ctx, `
		UPDATE campaigns
		SET status = $3,
		    sent_at = COALESCE($4, sent_at),
		    clicked_at = COALESCE($5, clicked_at),
		    updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING id, owner_id, recipient_email, subject, email_content,
		          status, created_at, sent_at, clicked_at, updated_at
	`, id, expectedStatus, newStatus, patch.SentAt, patch.ClickedAt,
	).Scan(&c.ID, &c.OwnerID, &c.RecipientEmail, &c.Subject, &c.EmailContent,
		&c.Status, &c.CreatedAt, &c.SentAt, &c.ClickedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}
