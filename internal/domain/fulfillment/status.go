package fulfillment

// OrderStatus represents the lifecycle status of a fulfillment order
type OrderStatus string

const (
	StatusOpen       OrderStatus = "OPEN"
	StatusInProgress OrderStatus = "IN_PROGRESS"
	StatusScheduled  OrderStatus = "SCHEDULED"
	StatusOnHold     OrderStatus = "ON_HOLD"
	StatusClosed     OrderStatus = "CLOSED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// AllOrderStatuses returns every order status
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{StatusOpen, StatusInProgress, StatusScheduled, StatusOnHold, StatusClosed, StatusCancelled}
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusScheduled, StatusOnHold, StatusClosed, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

// IsHoldable reports whether an order in this status may be placed on hold
func (s OrderStatus) IsHoldable() bool {
	return s == StatusOpen || s == StatusInProgress || s == StatusScheduled
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case StatusOpen:
		switch target {
		case StatusInProgress, StatusScheduled, StatusOnHold, StatusClosed, StatusCancelled:
			return true
		}
	case StatusInProgress:
		switch target {
		case StatusScheduled, StatusOnHold, StatusClosed, StatusCancelled:
			return true
		}
	case StatusScheduled:
		switch target {
		case StatusInProgress, StatusOnHold, StatusClosed, StatusCancelled:
			return true
		}
	case StatusOnHold:
		// Leaving a hold goes back to one of the holdable statuses.
		return target.IsHoldable() || target == StatusCancelled
	case StatusClosed, StatusCancelled:
		return false
	}
	return false
}

// RequestStatus represents the 3PL request handshake state
type RequestStatus string

const (
	RequestUnsubmitted           RequestStatus = "UNSUBMITTED"
	RequestSubmitted             RequestStatus = "SUBMITTED"
	RequestAccepted              RequestStatus = "ACCEPTED"
	RequestRejected              RequestStatus = "REJECTED"
	RequestCancellationRequested RequestStatus = "CANCELLATION_REQUESTED"
	RequestCancellationAccepted  RequestStatus = "CANCELLATION_ACCEPTED"
	RequestCancellationRejected  RequestStatus = "CANCELLATION_REJECTED"
)

// IsValid checks if the status is a valid RequestStatus
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestUnsubmitted, RequestSubmitted, RequestAccepted, RequestRejected,
		RequestCancellationRequested, RequestCancellationAccepted, RequestCancellationRejected:
		return true
	}
	return false
}

// String returns the string representation of RequestStatus
func (s RequestStatus) String() string {
	return string(s)
}

// IsWithFulfiller reports whether the fulfiller currently owns the request
func (s RequestStatus) IsWithFulfiller() bool {
	return s == RequestSubmitted || s == RequestAccepted || s == RequestCancellationRequested
}

// CanTransitionTo checks if the handshake can move to the target status
func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	switch s {
	case RequestUnsubmitted, RequestRejected:
		return target == RequestSubmitted
	case RequestSubmitted:
		return target == RequestAccepted || target == RequestRejected
	case RequestAccepted:
		return target == RequestCancellationRequested
	case RequestCancellationRequested:
		return target == RequestCancellationAccepted || target == RequestCancellationRejected
	case RequestCancellationAccepted, RequestCancellationRejected:
		return false
	}
	return false
}

// HoldReason is the closed set of reasons an order can be held for
type HoldReason string

const (
	HoldAwaitingPayment     HoldReason = "AWAITING_PAYMENT"
	HoldHighRiskOfFraud     HoldReason = "HIGH_RISK_OF_FRAUD"
	HoldIncorrectAddress    HoldReason = "INCORRECT_ADDRESS"
	HoldInventoryOutOfStock HoldReason = "INVENTORY_OUT_OF_STOCK"
	HoldOther               HoldReason = "OTHER"
)

// AllHoldReasons returns every hold reason
func AllHoldReasons() []HoldReason {
	return []HoldReason{HoldAwaitingPayment, HoldHighRiskOfFraud, HoldIncorrectAddress, HoldInventoryOutOfStock, HoldOther}
}

// IsValid checks if the reason is a valid HoldReason
func (r HoldReason) IsValid() bool {
	switch r {
	case HoldAwaitingPayment, HoldHighRiskOfFraud, HoldIncorrectAddress, HoldInventoryOutOfStock, HoldOther:
		return true
	}
	return false
}

// String returns the string representation of HoldReason
func (r HoldReason) String() string {
	return string(r)
}
