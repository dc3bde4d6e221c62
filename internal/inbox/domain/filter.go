package domain

// FilterAction is the verdict of a transfer filter.
type FilterAction int

const (
	FilterAccept FilterAction = iota
	FilterQuarantine
	FilterReject
)

func (a FilterAction) String() string {
	switch a {
	case FilterQuarantine:
		return "quarantine"
	case FilterReject:
		return "reject"
	default:
		return "accept"
	}
}

// FilterContext is what the first-stage filters see of an incoming transfer.
// PayloadSize is -1 until the payload part has been received.
type FilterContext struct {
	Sender      string
	PayloadSize int64
}

// FilterResult is a verdict and the reason reported back to the sender.
type FilterResult struct {
	Action FilterAction
	Reason string
}

// Accepted is the verdict of a filter with nothing to object.
var Accepted = FilterResult{Action: FilterAccept}

// QuarantinePriority orders quarantined items behind every regular inbox item.
const QuarantinePriority = 1000
