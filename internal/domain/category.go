package domain

import "fmt"

// EventType represents the kind of event a welcome board is made for.
// Values include EventWedding, EventEngagement, EventHaldi, EventMehendi,
// EventSangeet, and EventReception.
type EventType string

const (
	EventEngagement EventType = "engagement"
	EventHaldi      EventType = "haldi"
	EventMehendi    EventType = "mehendi"
	EventSangeet    EventType = "sangeet"
	EventWedding    EventType = "wedding"
	EventReception  EventType = "reception"
)

// BudgetBucket represents a closed budget range in INR.
type BudgetBucket string

const (
	BudgetLow  BudgetBucket = "3000-5000"
	BudgetMid  BudgetBucket = "5001-8000"
	BudgetHigh BudgetBucket = "8001-15000"
)

// EventTypes lists all valid event types in display order.
func EventTypes() []EventType {
	return []EventType{
		EventEngagement, EventHaldi, EventMehendi,
		EventSangeet, EventWedding, EventReception,
	}
}

// BudgetBuckets lists all valid budget buckets in ascending order.
func BudgetBuckets() []BudgetBucket {
	return []BudgetBucket{BudgetLow, BudgetMid, BudgetHigh}
}

// Category scopes both ranking and persistence to one
// (event type, budget bucket) pair. Every exemplar belongs to exactly
// one category; a ranking request targets exactly one category.
type Category struct {
	EventType    EventType    `json:"event_type"`
	BudgetBucket BudgetBucket `json:"budget_bucket"`
}

// Validate checks that both halves of the category are members of their
// closed enumerations.
// Parameters: none.
// Returns:
//   - error: ErrInvalidCategory (wrapped) if either value is unknown.
func (c Category) Validate() error {
	validEvent := false
	for _, e := range EventTypes() {
		if c.EventType == e {
			validEvent = true
			break
		}
	}
	if !validEvent {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidCategory, c.EventType)
	}

	validBudget := false
	for _, b := range BudgetBuckets() {
		if c.BudgetBucket == b {
			validBudget = true
			break
		}
	}
	if !validBudget {
		return fmt.Errorf("%w: unknown budget bucket %q", ErrInvalidCategory, c.BudgetBucket)
	}

	return nil
}

// String returns the canonical "event/budget" form used for partition keys
// and log fields.
func (c Category) String() string {
	return string(c.EventType) + "/" + string(c.BudgetBucket)
}
