package subscriber

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func record(status Status) *Subscriber {
	s := New("reader@example.com")
	s.Status = status
	return s
}

func TestDecideCoversEveryStateActionPair(t *testing.T) {
	states := []*Subscriber{
		nil, // absent
		record(StatusPendingValidation),
		record(StatusConfirmed),
		record(StatusUnsubscribed),
	}
	actions := []Action{ActionSubscribe, ActionUnsubscribe, ActionValidateConsumed, ActionConfirm}

	for _, s := range states {
		for _, a := range actions {
			d := Decide(s, a)
			assert.NotZero(t, d.HTTPStatus, "state=%v action=%v must yield a response", s, a)
			assert.NotEmpty(t, d.Message, "state=%v action=%v must yield a message", s, a)
		}
	}
}

func TestDecideSubscribe(t *testing.T) {
	tests := []struct {
		name        string
		current     *Subscriber
		wantStatus  int
		wantCreate  bool
		wantPersist bool
		wantEnqueue bool
		wantNext    Status
	}{
		{
			name:        "absent creates pending record and enqueues",
			current:     nil,
			wantStatus:  http.StatusCreated,
			wantCreate:  true,
			wantEnqueue: true,
			wantNext:    StatusPendingValidation,
		},
		{
			name:        "pending is a no-op but re-enqueues",
			current:     record(StatusPendingValidation),
			wantStatus:  http.StatusOK,
			wantEnqueue: true,
			wantNext:    StatusPendingValidation,
		},
		{
			name:       "confirmed is a pure no-op",
			current:    record(StatusConfirmed),
			wantStatus: http.StatusOK,
			wantNext:   StatusConfirmed,
		},
		{
			name:        "unsubscribed restarts the cycle",
			current:     record(StatusUnsubscribed),
			wantStatus:  http.StatusOK,
			wantPersist: true,
			wantEnqueue: true,
			wantNext:    StatusPendingValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.current, ActionSubscribe)
			assert.True(t, d.Success)
			assert.Equal(t, tt.wantStatus, d.HTTPStatus)
			assert.Equal(t, tt.wantCreate, d.Create)
			assert.Equal(t, tt.wantPersist, d.Persist)
			assert.Equal(t, tt.wantEnqueue, d.Enqueue)
			assert.Equal(t, tt.wantNext, d.Next)
		})
	}
}

func TestDecideUnsubscribe(t *testing.T) {
	// Absent: success, no record created, no existence leakage.
	d := Decide(nil, ActionUnsubscribe)
	assert.True(t, d.Success)
	assert.Equal(t, http.StatusOK, d.HTTPStatus)
	assert.False(t, d.Create)
	assert.False(t, d.Persist)
	assert.Equal(t, "Successfully unsubscribed", d.Message)

	// Confirmed and pending both transition to unsubscribed.
	for _, status := range []Status{StatusPendingValidation, StatusConfirmed} {
		d := Decide(record(status), ActionUnsubscribe)
		assert.True(t, d.Success)
		assert.True(t, d.Persist)
		assert.Equal(t, StatusUnsubscribed, d.Next)
	}

	// Already unsubscribed: idempotent, same message as the absent case.
	d = Decide(record(StatusUnsubscribed), ActionUnsubscribe)
	assert.True(t, d.Success)
	assert.False(t, d.Persist)
	assert.Equal(t, "Successfully unsubscribed", d.Message)
}

func TestDecideValidateConsumed(t *testing.T) {
	d := Decide(record(StatusPendingValidation), ActionValidateConsumed)
	assert.True(t, d.SendConfirmation)
	assert.True(t, d.Persist)
	assert.Equal(t, StatusPendingValidation, d.Next, "consuming the job never confirms")

	for _, s := range []*Subscriber{nil, record(StatusConfirmed), record(StatusUnsubscribed)} {
		d := Decide(s, ActionValidateConsumed)
		assert.True(t, d.Success, "stale jobs are acknowledged, not retried")
		assert.False(t, d.SendConfirmation)
		assert.False(t, d.Persist)
	}
}

func TestDecideConfirm(t *testing.T) {
	d := Decide(nil, ActionConfirm)
	assert.False(t, d.Success)
	assert.Equal(t, http.StatusNotFound, d.HTTPStatus)

	d = Decide(record(StatusPendingValidation), ActionConfirm)
	assert.True(t, d.Success)
	assert.True(t, d.Persist)
	assert.Equal(t, StatusConfirmed, d.Next)

	// Confirming twice stays confirmed and stays successful.
	d = Decide(record(StatusConfirmed), ActionConfirm)
	assert.True(t, d.Success)
	assert.False(t, d.Persist)

	d = Decide(record(StatusUnsubscribed), ActionConfirm)
	assert.False(t, d.Success)
	assert.Equal(t, http.StatusBadRequest, d.HTTPStatus)
}
