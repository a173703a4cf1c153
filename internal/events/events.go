package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies a kind of domain event as a dotted string.
type EventType string

// Event types published by the user service
const (
	UserCreated   EventType = "user.created"
	UserApproved  EventType = "user.approved"
	AgentApproved EventType = "agent.approved"
	AgentRejected EventType = "agent.rejected"
)

// Event types published by the loan service
const (
	LoanCreated  EventType = "loan.created"
	LoanApproved EventType = "loan.approved"
	LoanRejected EventType = "loan.rejected"
	LoanEdited   EventType = "loan.edited"
)

// Service identities stamped into the envelope
const (
	UserService = "user-service"
	LoanService = "loan-service"
)

// Event is the envelope carried on the bus. An event is a value: it is
// fully populated at construction and never mutated afterwards.
type Event struct {
	EventType     EventType      `json:"event_type"`
	Service       string         `json:"service"`
	Timestamp     string         `json:"timestamp"`
	Data          map[string]any `json:"data"`
	CorrelationID string         `json:"correlation_id,omitempty"`
}

// New builds an event envelope with the timestamp set to now (UTC) and a
// non-nil data payload.
func New(eventType EventType, service string, data map[string]any) Event {
	if data == nil {
		data = map[string]any{}
	}
	return Event{
		EventType: eventType,
		Service:   service,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Data:      data,
	}
}

// WithCorrelationID returns a copy of the event carrying the correlation id.
func (e Event) WithCorrelationID(id string) Event {
	e.CorrelationID = id
	return e
}

// Marshal serializes the event to its JSON wire form.
func (e Event) Marshal() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", e.EventType, err)
	}
	return body, nil
}

// UnmarshalEvent decodes an event from its JSON wire form. Unknown wire
// fields are ignored; a missing timestamp is backfilled to now and a missing
// data payload becomes an empty map.
func UnmarshalEvent(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if e.Timestamp == "" {
		e.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if e.Data == nil {
		e.Data = map[string]any{}
	}
	return e, nil
}

// NewUserCreated is published when a new user signs up.
func NewUserCreated(userID uint, email string, isCustomer, isAgent bool) Event {
	return New(UserCreated, UserService, map[string]any{
		"user_id":     userID,
		"email":       email,
		"is_customer": isCustomer,
		"is_agent":    isAgent,
	})
}

// NewUserApproved is published when a user account is approved.
func NewUserApproved(userID uint, email string) Event {
	return New(UserApproved, UserService, map[string]any{
		"user_id": userID,
		"email":   email,
	})
}

// NewAgentApproved is published when an admin approves an agent.
func NewAgentApproved(userID uint, email string) Event {
	return New(AgentApproved, UserService, map[string]any{
		"user_id": userID,
		"email":   email,
	})
}

// NewAgentRejected is published when an admin removes a pending agent.
func NewAgentRejected(userID uint, email string) Event {
	return New(AgentRejected, UserService, map[string]any{
		"user_id": userID,
		"email":   email,
	})
}

// NewLoanCreated is published when an agent submits a loan request.
func NewLoanCreated(loanID uint, customerID, agentID string, principal float64) Event {
	return New(LoanCreated, LoanService, map[string]any{
		"loan_id":     loanID,
		"customer_id": customerID,
		"agent_id":    agentID,
		"principal":   principal,
	})
}

// NewLoanApproved is published when an admin approves a loan.
func NewLoanApproved(loanID uint, customerID string) Event {
	return New(LoanApproved, LoanService, map[string]any{
		"loan_id":     loanID,
		"customer_id": customerID,
	})
}

// NewLoanRejected is published when an admin rejects a loan.
func NewLoanRejected(loanID uint, customerID string) Event {
	return New(LoanRejected, LoanService, map[string]any{
		"loan_id":     loanID,
		"customer_id": customerID,
	})
}

// NewLoanEdited is published when an agent reworks a loan request.
func NewLoanEdited(loanID uint, customerID string, principal float64, months int) Event {
	return New(LoanEdited, LoanService, map[string]any{
		"loan_id":     loanID,
		"customer_id": customerID,
		"principal":   principal,
		"months":      months,
	})
}
