package orders

import (
	"strings"

	"github.com/ariefcatur/go-storefront/internal/apperr"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// forward-only graph, enforced when strict transitions are on
var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:  {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// ParseStatus accepts any of the six statuses, case-insensitively.
func ParseStatus(s string) (Status, error) {
	for _, st := range allStatuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", &apperr.InvalidStatusError{Status: s}
}

// Cancellable reports whether stock may still be released for an order in s.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed || s == StatusProcessing
}

func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}
