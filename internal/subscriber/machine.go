package subscriber

import "net/http"

// Action is an external trigger applied to a subscriber record.
type Action int

const (
	// ActionSubscribe is a POST /subscribe request.
	ActionSubscribe Action = iota
	// ActionUnsubscribe is a POST /unsubscribe request.
	ActionUnsubscribe
	// ActionValidateConsumed is a validation job arriving from the queue.
	ActionValidateConsumed
	// ActionConfirm is a GET /confirm request whose token already checked out.
	ActionConfirm
)

// Decision is the outcome of applying an action to the current record state.
// It tells the caller what to do; it performs no side effects itself.
type Decision struct {
	Next             Status // status to store; meaningful when Create or Persist
	Create           bool   // create a new record (current state is absent)
	Persist          bool   // write the mutated record back
	Enqueue          bool   // enqueue a validation job
	SendConfirmation bool   // hand the record to the confirmation mailer
	HTTPStatus       int
	Success          bool
	Message          string
}

// Decide computes the transition for (current, action). It is total: every
// state/action pair has a defined outcome, so retried HTTP requests and
// redelivered queue messages always land on the same result. current is nil
// when no record exists for the email yet.
func Decide(current *Subscriber, action Action) Decision {
	if current == nil {
		return decideAbsent(action)
	}

	switch action {
	case ActionSubscribe:
		return decideSubscribe(current)
	case ActionUnsubscribe:
		return decideUnsubscribe(current)
	case ActionValidateConsumed:
		return decideValidateConsumed(current)
	case ActionConfirm:
		return decideConfirm(current)
	}

	return Decision{HTTPStatus: http.StatusBadRequest, Message: "Unknown action"}
}

func decideAbsent(action Action) Decision {
	switch action {
	case ActionSubscribe:
		return Decision{
			Next:       StatusPendingValidation,
			Create:     true,
			Enqueue:    true,
			HTTPStatus: http.StatusCreated,
			Success:    true,
			Message:    "Successfully subscribed. Validation email will be sent shortly.",
		}
	case ActionUnsubscribe:
		// Success without a record: the response must not reveal whether the
		// address was ever subscribed.
		return Decision{
			HTTPStatus: http.StatusOK,
			Success:    true,
			Message:    "Successfully unsubscribed",
		}
	case ActionValidateConsumed:
		// Stale job for a record that never made it to the store. Acknowledge
		// so the queue stops redelivering it.
		return Decision{HTTPStatus: http.StatusOK, Success: true, Message: "No matching subscriber"}
	case ActionConfirm:
		return Decision{
			HTTPStatus: http.StatusNotFound,
			Message:    "Subscriber not found",
		}
	}
	return Decision{HTTPStatus: http.StatusBadRequest, Message: "Unknown action"}
}

func decideSubscribe(current *Subscriber) Decision {
	switch current.Status {
	case StatusPendingValidation:
		// Idempotent repeat; re-enqueue so a lost validation email gets resent.
		return Decision{
			Next:       StatusPendingValidation,
			Enqueue:    true,
			HTTPStatus: http.StatusOK,
			Success:    true,
			Message:    "Email is already subscribed",
		}
	case StatusConfirmed:
		return Decision{
			Next:       StatusConfirmed,
			HTTPStatus: http.StatusOK,
			Success:    true,
			Message:    "Email is already subscribed",
		}
	case StatusUnsubscribed:
		// Re-subscription restarts the cycle on the existing record.
		return Decision{
			Next:       StatusPendingValidation,
			Persist:    true,
			Enqueue:    true,
			HTTPStatus: http.StatusOK,
			Success:    true,
			Message:    "Successfully subscribed. Validation email will be sent shortly.",
		}
	}
	return Decision{HTTPStatus: http.StatusInternalServerError, Message: "Unknown subscriber state"}
}

func decideUnsubscribe(current *Subscriber) Decision {
	switch current.Status {
	case StatusPendingValidation, StatusConfirmed:
		return Decision{
			Next:       StatusUnsubscribed,
			Persist:    true,
			HTTPStatus: http.StatusOK,
			Success:    true,
			Message:    "Successfully unsubscribed",
		}
	case StatusUnsubscribed:
		return Decision{
			Next:       StatusUnsubscribed,
			HTTPStatus: http.StatusOK,
			Success:    true,
			Message:    "Successfully unsubscribed",
		}
	}
	return Decision{HTTPStatus: http.StatusInternalServerError, Message: "Unknown subscriber state"}
}

func decideValidateConsumed(current *Subscriber) Decision {
	if current.Status == StatusPendingValidation {
		// Still eligible: issue a fresh token and send the confirmation email.
		// The status does not change; only following the link confirms.
		return Decision{
			Next:             StatusPendingValidation,
			Persist:          true,
			SendConfirmation: true,
			HTTPStatus:       http.StatusOK,
			Success:          true,
			Message:          "Validation email queued",
		}
	}
	// Confirmed or unsubscribed since the job was enqueued; drop it.
	return Decision{HTTPStatus: http.StatusOK, Success: true, Message: "Subscriber no longer pending"}
}

func decideConfirm(current *Subscriber) Decision {
	switch current.Status {
	case StatusPendingValidation:
		return Decision{
			Next:       StatusConfirmed,
			Persist:    true,
			HTTPStatus: http.StatusOK,
			Success:    true,
			Message:    "Email successfully validated",
		}
	case StatusConfirmed:
		return Decision{
			Next:       StatusConfirmed,
			HTTPStatus: http.StatusOK,
			Success:    true,
			Message:    "Email already validated",
		}
	case StatusUnsubscribed:
		return Decision{
			HTTPStatus: http.StatusBadRequest,
			Message:    "Subscription is not awaiting validation",
		}
	}
	return Decision{HTTPStatus: http.StatusInternalServerError, Message: "Unknown subscriber state"}
}
