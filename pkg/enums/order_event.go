package enums

// OrderEventType is carried in the `event_type` attribute of order messages.
type OrderEventType string

const (
	EventOrderPlaced   OrderEventType = "order.placed"
	EventOrderCanceled OrderEventType = "order.canceled"
)

// IsValid reports whether the event type is one the portfolio hook understands.
func (e OrderEventType) IsValid() bool {
	switch e {
	case EventOrderPlaced, EventOrderCanceled:
		return true
	default:
		return false
	}
}
