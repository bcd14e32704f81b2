package outbox

// Event is the domain event envelope written to the outbox table inside the
// same transaction as the state change it describes. The Kafka topic name
// equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	// EventBookingCreated fires exactly once per successfully created booking,
	// never on failed validation and never on later status changes.
	EventBookingCreated = "barberbook.booking.created.v1"

	// EventBookingStatusChanged fires on barber-initiated confirm/cancel.
	EventBookingStatusChanged = "barberbook.booking.status_changed.v1"
)
