package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/phishsim/backend/internal/apperrors"
	"github.com/phishsim/backend/internal/dispatch"
	"github.com/phishsim/backend/internal/models"
	"github.com/phishsim/backend/internal/repositories"
	"github.com/phishsim/backend/internal/templates"
)

// fakeStore is an in-memory CampaignStore with the same CAS semantics
// as the Postgres repo.
type fakeStore struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*models.Campaign
}

func newFakeStore() *fakeStore {
	return &fakeStore{campaigns: make(map[uuid.UUID]*models.Campaign)}
}

func (f *fakeStore) Create(ctx context.Context, c *models.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	f.campaigns[c.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.CampaignSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CampaignSummary
	for _, c := range f.campaigns {
		if c.OwnerID != ownerID {
			continue
		}
		out = append(out, models.CampaignSummary{
			ID:             c.ID,
			OwnerID:        c.OwnerID,
			RecipientEmail: c.RecipientEmail,
			Subject:        c.Subject,
			Status:         c.Status,
			CreatedAt:      c.CreatedAt,
			SentAt:         c.SentAt,
			ClickedAt:      c.ClickedAt,
		})
	}
	return out, nil
}

func (f *fakeStore) UpdateStatusIf(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string, patch repositories.StatusPatch) (*models.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.campaigns[id]
	if !ok || c.Status != expectedStatus {
		return nil, nil
	}
	c.Status = newStatus
	if patch.SentAt != nil {
		c.SentAt = patch.SentAt
	}
	if patch.ClickedAt != nil {
		c.ClickedAt = patch.ClickedAt
	}
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
}

// fakeChannel returns a canned result, a canned error, or blocks until
// the caller's deadline like the real client does.
type fakeChannel struct {
	result     *dispatch.SendResult
	err        error
	neverReply bool
	health     *dispatch.HealthResult
	calls      int
}

func (f *fakeChannel) SendEmail(ctx context.Context, req dispatch.SendRequest) (*dispatch.SendResult, error) {
	f.calls++
	if f.neverReply {
		<-ctx.Done()
		return nil, &apperrors.ChannelError{Code: apperrors.CodeTimeout, Message: "no response within deadline"}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeChannel) HealthCheck(ctx context.Context) (*dispatch.HealthResult, error) {
	if f.health == nil {
		return nil, &apperrors.ChannelError{Code: apperrors.CodeConnection, Message: "mailer unreachable"}
	}
	return f.health, nil
}

func newService(store CampaignStore, channel ChannelClient) *CampaignService {
	return NewCampaignService(store, channel, templates.NewCatalog(), nil, 50*time.Millisecond, zap.NewNop())
}

func TestCreateWithDefaultTemplate(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, &fakeChannel{})
	owner := uuid.New()

	c, err := svc.Create(context.Background(), owner, CreateCampaignInput{RecipientEmail: "a@example.com"})
	require.NoError(t, err)

	assert.Equal(t, models.CampaignStatusPending, c.Status)
	assert.Equal(t, owner, c.OwnerID)
	assert.Contains(t, c.EmailContent, templates.TrackingLinkPlaceholder)
	assert.NotEmpty(t, c.Subject)
}

func TestCreateRejectsBadRecipient(t *testing.T) {
	svc := newService(newFakeStore(), &fakeChannel{})

	_, err := svc.Create(context.Background(), uuid.New(), CreateCampaignInput{RecipientEmail: "not-an-address"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestCreateCustomContentPlaceholderRule(t *testing.T) {
	svc := newService(newFakeStore(), &fakeChannel{})
	owner := uuid.New()

	_, err := svc.Create(context.Background(), owner, CreateCampaignInput{
		RecipientEmail: "a@example.com",
		Subject:        "hi",
		Content:        `<p>no link here</p>`,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	c, err := svc.Create(context.Background(), owner, CreateCampaignInput{
		RecipientEmail: "a@example.com",
		Subject:        "hi",
		Content:        `<p><a href="{{TRACKING_LINK}}">link</a></p>`,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusPending, c.Status)
}

func TestCreateUnknownTemplate(t *testing.T) {
	svc := newService(newFakeStore(), &fakeChannel{})

	_, err := svc.Create(context.Background(), uuid.New(), CreateCampaignInput{
		RecipientEmail: "a@example.com",
		TemplateID:     "does-not-exist",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestSendHappyPath(t *testing.T) {
	store := newFakeStore()
	sentAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	channel := &fakeChannel{result: &dispatch.SendResult{Success: true, Message: "email sent", SentAt: &sentAt}}
	svc := newService(store, channel)
	owner := uuid.New()

	c, err := svc.Create(context.Background(), owner, CreateCampaignInput{RecipientEmail: "a@example.com"})
	require.NoError(t, err)

	updated, err := svc.Send(context.Background(), c.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusSent, updated.Status)
	require.NotNil(t, updated.SentAt)
	assert.True(t, updated.SentAt.Equal(sentAt))
}

func TestSendTwiceSecondFailsInvalidState(t *testing.T) {
	store := newFakeStore()
	channel := &fakeChannel{result: &dispatch.SendResult{Success: true}}
	svc := newService(store, channel)
	owner := uuid.New()

	c, err := svc.Create(context.Background(), owner, CreateCampaignInput{RecipientEmail: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), c.ID, owner)
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), c.ID, owner)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState))

	after, err := store.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusSent, after.Status, "second call must not change terminal status")
	assert.Equal(t, 1, channel.calls, "second call must not reach the channel")
}

func TestSendUnknownCampaign(t *testing.T) {
	svc := newService(newFakeStore(), &fakeChannel{})

	_, err := svc.Send(context.Background(), uuid.New(), uuid.New())
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestSendOtherOwnersCampaign(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, &fakeChannel{result: &dispatch.SendResult{Success: true}})
	owner := uuid.New()

	c, err := svc.Create(context.Background(), owner, CreateCampaignInput{RecipientEmail: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), c.ID, uuid.New())
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	after, _ := store.GetByID(context.Background(), c.ID)
	assert.Equal(t, models.CampaignStatusPending, after.Status)
}

func TestSendTimeoutMarksFailed(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, &fakeChannel{neverReply: true})
	owner := uuid.New()

	c, err := svc.Create(context.Background(), owner, CreateCampaignInput{RecipientEmail: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), c.ID, owner)
	require.Error(t, err)

	var cerr *apperrors.ChannelError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, apperrors.CodeTimeout, cerr.Code)

	after, _ := store.GetByID(context.Background(), c.ID)
	assert.Equal(t, models.CampaignStatusFailed, after.Status, "dispatched campaign must not stay PENDING")
}

func TestSendDispatcherFailureMarksFailed(t *testing.T) {
	store := newFakeStore()
	channel := &fakeChannel{result: &dispatch.SendResult{
		Success: false,
		Message: "email delivery failed",
		Error:   &dispatch.ErrorDetail{Code: apperrors.CodeSendFailed, Message: "smtp: connection reset"},
	}}
	svc := newService(store, channel)
	owner := uuid.New()

	c, err := svc.Create(context.Background(), owner, CreateCampaignInput{RecipientEmail: "a@example.com"})
	require.NoError(t, err)

	_, err = svc.Send(context.Background(), c.ID, owner)
	require.Error(t, err)

	var terr *apperrors.TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, apperrors.CodeSendFailed, terr.Code)

	after, _ := store.GetByID(context.Background(), c.ID)
	assert.Equal(t, models.CampaignStatusFailed, after.Status)
}

func TestRecordClickIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, &fakeChannel{result: &dispatch.SendResult{Success: true}})
	owner := uuid.New()

	c, err := svc.Create(context.Background(), owner, CreateCampaignInput{RecipientEmail: "a@example.com"})
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), c.ID, owner)
	require.NoError(t, err)

	first, err := svc.RecordClick(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusClicked, first.Status)
	require.NotNil(t, first.ClickedAt)

	second, err := svc.RecordClick(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusClicked, second.Status)
	require.NotNil(t, second.ClickedAt)
	assert.True(t, second.ClickedAt.Equal(*first.ClickedAt), "clicked_at must not be re-stamped")
}

func TestRecordClickOnPendingLeavesStateAlone(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, &fakeChannel{})
	owner := uuid.New()

	c, err := svc.Create(context.Background(), owner, CreateCampaignInput{RecipientEmail: "a@example.com"})
	require.NoError(t, err)

	got, err := svc.RecordClick(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusPending, got.Status)
	assert.Nil(t, got.ClickedAt)
}

func TestRecordClickUnknownID(t *testing.T) {
	svc := newService(newFakeStore(), &fakeChannel{})

	_, err := svc.RecordClick(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestListOnlyReturnsOwnersCampaigns(t *testing.T) {
	store := newFakeStore()
	svc := newService(store, &fakeChannel{})
	alice := uuid.New()
	bob := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), alice, CreateCampaignInput{RecipientEmail: "a@example.com"})
		require.NoError(t, err)
	}
	_, err := svc.Create(context.Background(), bob, CreateCampaignInput{RecipientEmail: "b@example.com"})
	require.NoError(t, err)

	list, err := svc.List(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, c := range list {
		assert.Equal(t, alice, c.OwnerID)
	}
}

func TestEndToEndLifecycle(t *testing.T) {
	store := newFakeStore()
	sentAt := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	channel := &fakeChannel{result: &dispatch.SendResult{Success: true, SentAt: &sentAt}}
	svc := newService(store, channel)
	owner := uuid.New()

	c, err := svc.Create(context.Background(), owner, CreateCampaignInput{RecipientEmail: "a@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusPending, c.Status)

	sent, err := svc.Send(context.Background(), c.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusSent, sent.Status)
	assert.True(t, sent.SentAt.Equal(sentAt))

	clicked, err := svc.RecordClick(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusClicked, clicked.Status)
	require.NotNil(t, clicked.ClickedAt)

	// Terminal: further clicks change nothing.
	again, err := svc.RecordClick(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, again.ClickedAt.Equal(*clicked.ClickedAt))
	assert.Equal(t, models.CampaignStatusClicked, again.Status)
}
