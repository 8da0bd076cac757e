package room

// OutcomeKind classifies what a Service operation did
type OutcomeKind int

const (
	// OutcomeDropped means nothing happened: no state change, no deliveries
	OutcomeDropped OutcomeKind = iota
	// OutcomeAccepted means a join succeeded
	OutcomeAccepted
	// OutcomeRejected means a join was refused; Err holds the reason
	OutcomeRejected
	// OutcomeRelayed means a message or typing signal went to the peer
	OutcomeRelayed
	// OutcomeThrottled means a message was refused by the rate limiter
	OutcomeThrottled
	// OutcomeLeft means a bound connection left its room
	OutcomeLeft
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDropped:
		return "dropped"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	case OutcomeRelayed:
		return "relayed"
	case OutcomeThrottled:
		return "throttled"
	case OutcomeLeft:
		return "left"
	default:
		return "unknown"
	}
}

// Delivery is one outbound event addressed to one connection
type Delivery struct {
	ConnID  string
	Event   string
	Payload any
}

// Outcome is the explicit result of a Service operation.
// FUNCTIONAL DISCOVERY: The Service never touches a transport; the caller
// turns Deliveries into frames after every lock has been released
type Outcome struct {
	Kind          OutcomeKind
	Err           error
	RoomID        string
	Nickname      string
	RoomCreated   bool
	RoomDestroyed bool
	Deliveries    []Delivery
}

// DeliveriesTo returns the deliveries addressed to connID
func (o Outcome) DeliveriesTo(connID string) []Delivery {
	var out []Delivery
	for _, d := range o.Deliveries {
		if d.ConnID == connID {
			out = append(out, d)
		}
	}
	return out
}

func dropped() Outcome {
	return Outcome{Kind: OutcomeDropped}
}
