package orders

import "strings"

// Decision is the outcome of an order access check.
type Decision int

const (
	Allowed Decision = iota
	NotFound
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	}
	return "unknown"
}

// Guard is the access-control boundary for order data. Orders are
// partitioned by the department that placed them; a caller authenticated to
// one department may not read another department's orders.
type Guard struct {
	history HistoryStore
}

func NewGuard(history HistoryStore) *Guard {
	return &Guard{history: history}
}

// Authorize checks that the order exists and belongs to the caller's
// department. The department comparison is case-insensitive.
func (g *Guard) Authorize(callerDepartment, orderID string) Decision {
	rec, ok := g.history.Find(orderID)
	if !ok {
		return NotFound
	}
	if !strings.EqualFold(rec.Department, callerDepartment) {
		return Forbidden
	}
	return Allowed
}
