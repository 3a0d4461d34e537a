package orders

type Status string

const (
	StatusPending         Status = "pending"
	StatusProcessing      Status = "processing"
	StatusShipped         Status = "shipped"
	StatusDelivered       Status = "delivered"
	StatusCancelled       Status = "cancelled"
	StatusAwaitingBargain Status = "awaiting_bargain_approval"
)

// awaiting_bargain_approval leaves only through reconciliation (to pending,
// or removal) or an explicit cancel. delivered and cancelled are terminal.
var validNext = map[Status]map[Status]bool{
	StatusPending:         {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing:      {StatusShipped: true, StatusCancelled: true},
	StatusShipped:         {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:       {},
	StatusCancelled:       {},
	StatusAwaitingBargain: {StatusCancelled: true},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func ValidStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}
