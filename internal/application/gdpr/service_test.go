package gdpr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/foliotrack/internal/domain"
	"github.com/alejandrodnm/foliotrack/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeStore struct {
	requests map[string]domain.DeletionRequest
	created  []domain.DeletionRequest
}

func newFakeStore() *fakeStore {
	return &fakeStore{requests: make(map[string]domain.DeletionRequest)}
}

func (f *fakeStore) CreateRequest(_ context.Context, req domain.DeletionRequest) error {
	for _, r := range f.requests {
		if r.UserID == req.UserID && r.Status.IsActive() {
			return ports.ErrActiveRequestExists
		}
	}
	f.requests[req.ID] = req
	f.created = append(f.created, req)
	return nil
}

func (f *fakeStore) GetRequest(_ context.Context, id string) (domain.DeletionRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return domain.DeletionRequest{}, ports.ErrRequestNotFound
	}
	return req, nil
}

func (f *fakeStore) ListRequests(_ context.Context, userID string) ([]domain.DeletionRequest, error) {
	var out []domain.DeletionRequest
	for _, r := range f.requests {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ClaimNextPending(_ context.Context) (domain.DeletionRequest, error) {
	for id, r := range f.requests {
		if r.Status == domain.StatusPending {
			now := time.Now().UTC()
			r.Status = domain.StatusInProgress
			r.ProcessedAt = &now
			f.requests[id] = r
			return r, nil
		}
	}
	return domain.DeletionRequest{}, ports.ErrRequestNotFound
}

func (f *fakeStore) SaveProgress(_ context.Context, req domain.DeletionRequest) error {
	if _, ok := f.requests[req.ID]; !ok {
		return ports.ErrRequestNotFound
	}
	f.requests[req.ID] = req
	return nil
}

type fakeCounter struct {
	counts domain.DataCounts
	err    error
}

func (f *fakeCounter) CountUserData(_ context.Context, _ string) (domain.DataCounts, error) {
	return f.counts, f.err
}

type fakeEraser struct {
	executed []string
	failOn   string
	perStep  map[string]int
}

func (f *fakeEraser) Execute(_ context.Context, _ string, step string) (int, error) {
	f.executed = append(f.executed, step)
	if step == f.failOn {
		return 0, errors.New("erase failed")
	}
	if n, ok := f.perStep[step]; ok {
		return n, nil
	}
	return 1, nil
}

type fakeRevoker struct {
	revoked  [][]string
	failAt   int // revocaciones completadas antes de fallar; -1 = nunca falla
	errValue error
}

func (f *fakeRevoker) RevokeAttestations(_ context.Context, uids []string) (int, error) {
	f.revoked = append(f.revoked, uids)
	if f.failAt >= 0 && f.failAt < len(uids) {
		if f.errValue == nil {
			f.errValue = errors.New("revocation failed")
		}
		return f.failAt, f.errValue
	}
	return len(uids), nil
}

type fakeAttestations struct {
	uids       map[string][]string // kind → uids
	marked     []string
	listFailed bool
}

func (f *fakeAttestations) ListAttestationUIDs(_ context.Context, _, kind string) ([]string, error) {
	if f.listFailed {
		return nil, errors.New("list failed")
	}
	return f.uids[kind], nil
}

func (f *fakeAttestations) MarkRevoked(_ context.Context, uids []string) error {
	f.marked = append(f.marked, uids...)
	return nil
}

func newTestService(store *fakeStore, eraser *fakeEraser, revoker *fakeRevoker, att *fakeAttestations) *Service {
	s := New(store, &fakeCounter{}, eraser, revoker, att)
	s.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	n := 0
	s.newID = func() string {
		n++
		return string(rune('a'+n-1)) + "-req"
	}
	return s
}

func validInput() domain.DeletionRequestInput {
	return domain.DeletionRequestInput{
		UserID:      "user-1",
		RequestType: domain.DeletionFullAccount,
		Reason:      "leaving",
	}
}

// --- CreateRequest ---

func TestCreateRequest_Valid(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store, &fakeEraser{}, &fakeRevoker{failAt: -1}, &fakeAttestations{})

	req, err := s.CreateRequest(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), req.CreatedAt)
	require.Len(t, store.created, 1)
}

func TestCreateRequest_InvalidInput(t *testing.T) {
	s := newTestService(newFakeStore(), &fakeEraser{}, &fakeRevoker{failAt: -1}, &fakeAttestations{})

	_, err := s.CreateRequest(context.Background(), domain.DeletionRequestInput{
		RequestType: "EVERYTHING",
	})

	var invalid *ErrInvalidRequest
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Errors, "userId is required")
	assert.Contains(t, invalid.Errors, "requestType must be FULL_ACCOUNT, FORECASTS_ONLY, or PII_ONLY")
}

func TestCreateRequest_RejectsActiveDuplicate(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store, &fakeEraser{}, &fakeRevoker{failAt: -1}, &fakeAttestations{})

	_, err := s.CreateRequest(context.Background(), validInput())
	require.NoError(t, err)

	_, err = s.CreateRequest(context.Background(), validInput())
	assert.ErrorIs(t, err, ports.ErrActiveRequestExists)
}

func TestCreateRequest_AllowedAfterTerminal(t *testing.T) {
	store := newFakeStore()
	s := newTestService(store, &fakeEraser{}, &fakeRevoker{failAt: -1}, &fakeAttestations{})

	first, err := s.CreateRequest(context.Background(), validInput())
	require.NoError(t, err)

	first.Status = domain.StatusCompleted
	require.NoError(t, store.SaveProgress(context.Background(), first))

	_, err = s.CreateRequest(context.Background(), validInput())
	assert.NoError(t, err)
}

// --- Estimate ---

func TestEstimate(t *testing.T) {
	counter := &fakeCounter{counts: domain.DataCounts{Attestations: 50}}
	s := New(newFakeStore(), counter, &fakeEraser{}, &fakeRevoker{failAt: -1}, &fakeAttestations{})

	plan, estimate, err := s.Estimate(context.Background(), "user-1", domain.DeletionFullAccount)
	require.NoError(t, err)

	assert.Len(t, plan.Steps, 8)
	assert.Equal(t, 50, plan.EstimatedItems.Attestations)
	// 50 attestations × 15s = 750s → min 12, max ceil(1500/60) = 25
	assert.Equal(t, "12-25 minutes", estimate.Description)
}

func TestEstimate_CounterError(t *testing.T) {
	counter := &fakeCounter{err: errors.New("db down")}
	s := New(newFakeStore(), counter, &fakeEraser{}, &fakeRevoker{failAt: -1}, &fakeAttestations{})

	_, _, err := s.Estimate(context.Background(), "user-1", domain.DeletionFullAccount)
	assert.Error(t, err)
}

// --- ProcessRequest ---

func TestProcessRequest_FullAccountHappyPath(t *testing.T) {
	store := newFakeStore()
	eraser := &fakeEraser{}
	revoker := &fakeRevoker{failAt: -1}
	att := &fakeAttestations{uids: map[string][]string{"": {"uid-1", "uid-2"}}}

	s := newTestService(store, eraser, revoker, att)

	created, err := s.CreateRequest(context.Background(), validInput())
	require.NoError(t, err)

	done, err := s.ProcessRequest(context.Background(), created)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, done.Status)
	assert.Equal(t, 2, done.AttestationsRevoked)
	assert.True(t, done.OffchainDataDeleted)
	require.NotNil(t, done.ProcessedAt)
	require.NotNil(t, done.CompletedAt)

	// Todos los pasos offchain en orden; revoke_attestations va por el revoker
	assert.Equal(t, []string{
		domain.StepDeleteForecasts,
		domain.StepDeletePositions,
		domain.StepDeleteTransactions,
		domain.StepDeleteWallets,
		domain.StepAnonymizePII,
		domain.StepDeleteOffchainData,
		domain.StepDeleteUser,
	}, eraser.executed)
	assert.Equal(t, []string{"uid-1", "uid-2"}, att.marked)

	persisted, err := store.GetRequest(context.Background(), done.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, persisted.Status)
}

func TestProcessRequest_ForecastsOnlyUsesForecastKind(t *testing.T) {
	store := newFakeStore()
	eraser := &fakeEraser{}
	att := &fakeAttestations{uids: map[string][]string{
		"forecast": {"uid-f1"},
		"":         {"uid-f1", "uid-i1"},
	}}

	s := newTestService(store, eraser, &fakeRevoker{failAt: -1}, att)

	input := validInput()
	input.RequestType = domain.DeletionForecastsOnly
	created, err := s.CreateRequest(context.Background(), input)
	require.NoError(t, err)

	done, err := s.ProcessRequest(context.Background(), created)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, done.Status)
	assert.Equal(t, 1, done.AttestationsRevoked, "only forecast attestations revoked")
	assert.Equal(t, []string{
		domain.StepDeleteForecasts,
		domain.StepResetCalibration,
	}, eraser.executed)
}

func TestProcessRequest_RequiredStepFailureEndsFailed(t *testing.T) {
	store := newFakeStore()
	eraser := &fakeEraser{failOn: domain.StepDeleteWallets}

	s := newTestService(store, eraser, &fakeRevoker{failAt: -1}, &fakeAttestations{})

	created, err := s.CreateRequest(context.Background(), validInput())
	require.NoError(t, err)

	done, err := s.ProcessRequest(context.Background(), created)
	require.Error(t, err)
	assert.Equal(t, domain.StatusFailed, done.Status)
	require.NotNil(t, done.CompletedAt)

	// El fallo corta el plan: delete_user nunca corre
	assert.NotContains(t, eraser.executed, domain.StepDeleteUser)
}

func TestProcessRequest_OptionalStepFailureContinues(t *testing.T) {
	store := newFakeStore()
	eraser := &fakeEraser{failOn: domain.StepDeleteAvatar}

	s := newTestService(store, eraser, &fakeRevoker{failAt: -1}, &fakeAttestations{})

	input := validInput()
	input.RequestType = domain.DeletionPIIOnly
	created, err := s.CreateRequest(context.Background(), input)
	require.NoError(t, err)

	done, err := s.ProcessRequest(context.Background(), created)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)
}

func TestProcessRequest_PartialRevocationPersisted(t *testing.T) {
	store := newFakeStore()
	att := &fakeAttestations{uids: map[string][]string{"": {"uid-1", "uid-2", "uid-3"}}}
	revoker := &fakeRevoker{failAt: 2}

	s := newTestService(store, &fakeEraser{}, revoker, att)

	created, err := s.CreateRequest(context.Background(), validInput())
	require.NoError(t, err)

	done, err := s.ProcessRequest(context.Background(), created)
	require.Error(t, err)

	assert.Equal(t, domain.StatusFailed, done.Status)
	assert.Equal(t, 2, done.AttestationsRevoked)
	assert.Equal(t, []string{"uid-1", "uid-2"}, att.marked, "only confirmed revocations marked")
}

func TestProcessRequest_TerminalRejected(t *testing.T) {
	s := newTestService(newFakeStore(), &fakeEraser{}, &fakeRevoker{failAt: -1}, &fakeAttestations{})

	_, err := s.ProcessRequest(context.Background(), domain.DeletionRequest{
		ID: "done", Status: domain.StatusCompleted,
	})
	assert.Error(t, err)
}

// --- drainPending ---

func TestDrainPending_ProcessesAllPending(t *testing.T) {
	store := newFakeStore()
	eraser := &fakeEraser{}
	s := newTestService(store, eraser, &fakeRevoker{failAt: -1}, &fakeAttestations{})

	input := validInput()
	input.RequestType = domain.DeletionPIIOnly
	_, err := s.CreateRequest(context.Background(), input)
	require.NoError(t, err)

	input.UserID = "user-2"
	_, err = s.CreateRequest(context.Background(), input)
	require.NoError(t, err)

	s.drainPending(context.Background())

	for _, r := range store.requests {
		assert.Equal(t, domain.StatusCompleted, r.Status)
	}
}
