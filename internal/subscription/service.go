package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/newsletter-backend/internal/pkg/logger"
	"github.com/ignite/newsletter-backend/internal/queue"
	"github.com/ignite/newsletter-backend/internal/storage"
	"github.com/ignite/newsletter-backend/internal/subscriber"
)

// Store is the subscriber record store the service reads and writes.
// Absent records come back as (nil, nil).
type Store interface {
	GetByEmail(ctx context.Context, email string) (*subscriber.Subscriber, error)
	GetByID(ctx context.Context, id string) (*subscriber.Subscriber, error)
	Put(ctx context.Context, sub *subscriber.Subscriber) error
}

// ConditionalStore is implemented by stores that support conditional creates.
// When available, the create path uses it to tighten the duplicate race.
type ConditionalStore interface {
	PutIfAbsent(ctx context.Context, sub *subscriber.Subscriber) error
}

// Enqueuer publishes validation jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job queue.ValidationJob) error
}

// ConfirmationMailer delivers the double-opt-in email.
type ConfirmationMailer interface {
	SendConfirmation(ctx context.Context, email, confirmURL string) error
}

// Result is the outward-facing outcome of a lifecycle action.
type Result struct {
	HTTPStatus int    `json:"-"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
}

// tokenTTL is how long a confirmation link stays valid.
const tokenTTL = 24 * time.Hour

// Service runs the subscription lifecycle: it loads the record, asks the
// state machine for a decision, and carries out the directed side effects.
// It holds no mutable state; instances are safe for concurrent use.
type Service struct {
	store          Store
	queue          Enqueuer
	mailer         ConfirmationMailer
	confirmBaseURL string
}

// NewService creates the lifecycle service. confirmBaseURL is the public
// endpoint confirmation links point at, e.g. "https://news.example.com/confirm".
func NewService(store Store, q Enqueuer, mailer ConfirmationMailer, confirmBaseURL string) *Service {
	return &Service{
		store:          store,
		queue:          q,
		mailer:         mailer,
		confirmBaseURL: confirmBaseURL,
	}
}

// Subscribe handles a subscribe request for a raw, untrusted email.
func (s *Service) Subscribe(ctx context.Context, rawEmail string) (Result, error) {
	email := subscriber.NormalizeEmail(rawEmail)
	if !subscriber.ValidEmail(email) {
		return Result{HTTPStatus: http.StatusBadRequest, Message: "Invalid email format"}, nil
	}

	current, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("loading subscriber: %w", err)
	}

	d := subscriber.Decide(current, subscriber.ActionSubscribe)
	target := current

	if d.Create {
		target = subscriber.New(email)
		if err := s.create(ctx, target); err != nil {
			if errors.Is(err, storage.ErrAlreadyExists) {
				// Lost a concurrent-create race; same answer a duplicate
				// subscribe would have gotten.
				return Result{HTTPStatus: http.StatusOK, Success: true, Message: "Email is already subscribed"}, nil
			}
			return Result{}, fmt.Errorf("creating subscriber: %w", err)
		}
		logger.Info("subscriber created", "subscriber_id", target.ID, "email", email)
	} else if d.Persist {
		target.Status = d.Next
		target.ValidationToken = ""
		target.TokenExpires = time.Time{}
		target.UpdatedAt = time.Now().UTC()
		if err := s.store.Put(ctx, target); err != nil {
			return Result{}, fmt.Errorf("updating subscriber: %w", err)
		}
		logger.Info("subscriber re-subscribed", "subscriber_id", target.ID, "email", email)
	}

	if d.Enqueue {
		job := queue.NewValidationJob(target.ID, target.Email)
		if err := s.queue.Enqueue(ctx, job); err != nil {
			// The record write (if any) already happened; the whole request is
			// idempotent, so the caller retries and only the enqueue reruns.
			return Result{}, fmt.Errorf("enqueuing validation job: %w", err)
		}
	}

	return result(d), nil
}

// create uses a conditional write when the store offers one.
func (s *Service) create(ctx context.Context, sub *subscriber.Subscriber) error {
	if cs, ok := s.store.(ConditionalStore); ok {
		return cs.PutIfAbsent(ctx, sub)
	}
	return s.store.Put(ctx, sub)
}

// Unsubscribe handles an unsubscribe request. The response never reveals
// whether the address was known.
func (s *Service) Unsubscribe(ctx context.Context, rawEmail string) (Result, error) {
	email := subscriber.NormalizeEmail(rawEmail)
	if !subscriber.ValidEmail(email) {
		return Result{HTTPStatus: http.StatusBadRequest, Message: "Invalid email format"}, nil
	}

	current, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("loading subscriber: %w", err)
	}

	d := subscriber.Decide(current, subscriber.ActionUnsubscribe)
	if d.Persist {
		current.Status = d.Next
		current.ValidationToken = ""
		current.TokenExpires = time.Time{}
		current.UpdatedAt = time.Now().UTC()
		if err := s.store.Put(ctx, current); err != nil {
			return Result{}, fmt.Errorf("updating subscriber: %w", err)
		}
		logger.Info("subscriber unsubscribed", "subscriber_id", current.ID, "email", email)
	}

	return result(d), nil
}

// Confirm handles a confirmation link. The link carries the record id and the
// token the validate worker issued; the email itself never appears in the URL.
func (s *Service) Confirm(ctx context.Context, id, token string) (Result, error) {
	if id == "" || token == "" {
		return Result{HTTPStatus: http.StatusBadRequest, Message: "Missing id or token"}, nil
	}

	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Result{}, fmt.Errorf("loading subscriber: %w", err)
	}

	// Token verification is input validation, not a state transition. It only
	// applies while a confirmation is actually pending; a repeated confirm on
	// an already-confirmed record stays successful even though the token was
	// cleared by the first one.
	if current != nil && current.Status == subscriber.StatusPendingValidation {
		if current.ValidationToken == "" || current.ValidationToken != token {
			return Result{HTTPStatus: http.StatusBadRequest, Message: "Invalid validation token"}, nil
		}
		if time.Now().UTC().After(current.TokenExpires) {
			return Result{HTTPStatus: http.StatusBadRequest, Message: "Validation token has expired"}, nil
		}
	}

	d := subscriber.Decide(current, subscriber.ActionConfirm)
	if d.Persist {
		current.Status = d.Next
		current.ValidationToken = ""
		current.TokenExpires = time.Time{}
		current.UpdatedAt = time.Now().UTC()
		if err := s.store.Put(ctx, current); err != nil {
			return Result{}, fmt.Errorf("updating subscriber: %w", err)
		}
		logger.Info("subscriber confirmed", "subscriber_id", current.ID, "email", current.Email)
	}

	return result(d), nil
}

// ProcessValidationJob consumes one queued validation job: if the record is
// still pending, issue a fresh token and send the confirmation email. Any
// returned error leaves the message on the queue for redelivery.
func (s *Service) ProcessValidationJob(ctx context.Context, job queue.ValidationJob) error {
	current, err := s.store.GetByID(ctx, job.SubscriberID)
	if err != nil {
		return fmt.Errorf("loading subscriber: %w", err)
	}

	d := subscriber.Decide(current, subscriber.ActionValidateConsumed)
	if !d.SendConfirmation {
		logger.Debug("dropping stale validation job", "subscriber_id", job.SubscriberID)
		return nil
	}

	now := time.Now().UTC()
	current.ValidationToken = uuid.New().String()
	current.TokenExpires = now.Add(tokenTTL)
	current.UpdatedAt = now
	if err := s.store.Put(ctx, current); err != nil {
		return fmt.Errorf("storing validation token: %w", err)
	}

	confirmURL := s.confirmURL(current.ID, current.ValidationToken)
	if err := s.mailer.SendConfirmation(ctx, current.Email, confirmURL); err != nil {
		// Redelivery reruns the whole job and mints a new token, which is fine:
		// only the latest stored token confirms.
		return fmt.Errorf("sending confirmation: %w", err)
	}

	logger.Info("validation processed", "subscriber_id", current.ID, "email", current.Email)
	return nil
}

func (s *Service) confirmURL(id, token string) string {
	v := url.Values{}
	v.Set("id", id)
	v.Set("token", token)
	return s.confirmBaseURL + "?" + v.Encode()
}

func result(d subscriber.Decision) Result {
	return Result{HTTPStatus: d.HTTPStatus, Success: d.Success, Message: d.Message}
}
