package domain

import (
	"strings"
	"time"
)

// Domain entity: the single business record of the tracker.
// Does not depend on gin, Postgres, Redis.
type Task struct {
	ID          int64      `json:"id"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	OwnerID     string     `json:"owner_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

// Stamp returns the time a mutation at now should record: never earlier than
// the previous mutation or the creation time.
func (t Task) Stamp(now time.Time) time.Time {
	last := t.CreatedAt
	if t.UpdatedAt != nil && t.UpdatedAt.After(last) {
		last = *t.UpdatedAt
	}
	if now.Before(last) {
		return last
	}
	return now
}

// Order selects how ListByOwner sorts its result.
type Order string

const (
	OrderInsertion Order = "insertion" // ascending id
	OrderNewest    Order = "newest"    // descending id
)

// ParseOrder maps a query value to an Order. Empty means insertion order.
func ParseOrder(s string) (Order, bool) {
	switch Order(s) {
	case "", OrderInsertion:
		return OrderInsertion, true
	case OrderNewest:
		return OrderNewest, true
	}
	return "", false
}

// ListFilter narrows a per-owner listing.
type ListFilter struct {
	Completed *bool // nil = any
	Query     string
	Order     Order
}

// Matches reports whether t passes the completion and query parts of the filter.
// Ownership is not part of the filter.
func (f ListFilter) Matches(t Task) bool {
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.Query != "" && !containsFold(t.Description, f.Query) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
