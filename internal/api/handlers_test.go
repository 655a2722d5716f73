package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ignite/newsletter-backend/internal/queue"
	"github.com/ignite/newsletter-backend/internal/storage"
	"github.com/ignite/newsletter-backend/internal/subscriber"
	"github.com/ignite/newsletter-backend/internal/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memQueue struct {
	jobs []queue.ValidationJob
}

func (q *memQueue) Enqueue(ctx context.Context, job queue.ValidationJob) error {
	q.jobs = append(q.jobs, job)
	return nil
}

type memMailer struct{}

func (memMailer) SendConfirmation(ctx context.Context, email, confirmURL string) error { return nil }

type downStore struct{}

func (downStore) GetByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error) {
	return nil, storage.ErrUnavailable
}
func (downStore) GetByID(ctx context.Context, id string) (*subscriber.Subscriber, error) {
	return nil, storage.ErrUnavailable
}
func (downStore) Put(ctx context.Context, sub *subscriber.Subscriber) error {
	return storage.ErrUnavailable
}

type testEnv struct {
	router http.Handler
	store  *storage.MemoryStore
	queue  *memQueue
	svc    *subscription.Service
}

func newTestEnv() *testEnv {
	store := storage.NewMemoryStore()
	q := &memQueue{}
	svc := subscription.NewService(store, q, memMailer{}, "https://news.example.com/confirm")
	return &testEnv{
		router: SetupRoutes(NewHandlers(svc), nil),
		store:  store,
		queue:  q,
		svc:    svc,
	}
}

func (e *testEnv) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) subscription.Result {
	t.Helper()
	var res subscription.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	return res
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv()
	rec := env.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubscribeEndpoint(t *testing.T) {
	env := newTestEnv()

	rec := env.post(t, "/subscribe", `{"email":"a@x.com"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	res := decodeResult(t, rec)
	assert.True(t, res.Success)

	// Second subscribe is accepted but creates nothing new.
	rec = env.post(t, "/subscribe", `{"email":"a@x.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.store.Len())
	assert.Len(t, env.queue.jobs, 2)
}

func TestSubscribeRejectsBadInput(t *testing.T) {
	env := newTestEnv()

	rec := env.post(t, "/subscribe", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON format", decodeResult(t, rec).Message)

	rec = env.post(t, "/subscribe", `{"email":"not-an-email"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid email format", decodeResult(t, rec).Message)

	assert.Equal(t, 0, env.store.Len())
}

func TestUnsubscribeEndpointNeverLeaks(t *testing.T) {
	env := newTestEnv()

	// Unknown email and a real unsubscribe produce identical responses.
	recUnknown := env.post(t, "/unsubscribe", `{"email":"ghost@x.com"}`)
	assert.Equal(t, http.StatusOK, recUnknown.Code)

	env.post(t, "/subscribe", `{"email":"real@x.com"}`)
	recKnown := env.post(t, "/unsubscribe", `{"email":"real@x.com"}`)
	assert.Equal(t, http.StatusOK, recKnown.Code)

	assert.Equal(t, decodeResult(t, recUnknown), decodeResult(t, recKnown))
}

func TestConfirmEndpoint(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.post(t, "/subscribe", `{"email":"a@x.com"}`)
	require.NoError(t, env.svc.ProcessValidationJob(ctx, env.queue.jobs[0]))

	sub, err := env.store.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.NotNil(t, sub)

	rec := env.get(t, "/confirm?id="+sub.ID+"&token="+sub.ValidationToken)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResult(t, rec).Success)

	sub, _ = env.store.GetByID(ctx, sub.ID)
	assert.Equal(t, subscriber.StatusConfirmed, sub.Status)
}

func TestConfirmEndpointErrors(t *testing.T) {
	env := newTestEnv()

	rec := env.get(t, "/confirm")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.get(t, "/confirm?id=no-such-id&token=tok")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Subscriber not found", decodeResult(t, rec).Message)
}

func TestStoreOutageReturns500(t *testing.T) {
	svc := subscription.NewService(downStore{}, &memQueue{}, memMailer{}, "https://news.example.com/confirm")
	env := &testEnv{router: SetupRoutes(NewHandlers(svc), nil)}

	rec := env.post(t, "/subscribe", `{"email":"a@x.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to subscribe", decodeResult(t, rec).Message)

	rec = env.post(t, "/unsubscribe", `{"email":"a@x.com"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = env.get(t, "/confirm?id=x&token=y")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
