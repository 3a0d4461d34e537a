package bargains

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCountered Status = "countered"
)

// A bargain leaves pending exactly once. accepted, rejected and countered
// are all terminal for the record; further negotiation is a new bargain.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusAccepted: true, StatusRejected: true, StatusCountered: true},
	StatusAccepted:  {},
	StatusRejected:  {},
	StatusCountered: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Decision is a seller's verdict on a pending bargain.
type Decision string

const (
	DecisionAccept  Decision = "accept"
	DecisionReject  Decision = "reject"
	DecisionCounter Decision = "counter"
)

func (d Decision) Target() (Status, bool) {
	switch d {
	case DecisionAccept:
		return StatusAccepted, true
	case DecisionReject:
		return StatusRejected, true
	case DecisionCounter:
		return StatusCountered, true
	}
	return "", false
}
