package shared

// PaymentStatus defines the lifecycle of one participant's payment
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
)

// SessionStatus defines the lifecycle of a bill split session
type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "ACTIVE"
	SessionStatusReconciled SessionStatus = "RECONCILED"
	SessionStatusCancelled  SessionStatus = "CANCELLED"
)

// PaymentEventType defines inbound payment lifecycle events
type PaymentEventType string

const (
	PaymentEventStarted   PaymentEventType = "PAYMENT_STARTED"
	PaymentEventCompleted PaymentEventType = "PAYMENT_COMPLETED"
	PaymentEventFailed    PaymentEventType = "PAYMENT_FAILED"
)

// Valid reports whether t is a known payment event type
func (t PaymentEventType) Valid() bool {
	switch t {
	case PaymentEventStarted, PaymentEventCompleted, PaymentEventFailed:
		return true
	}
	return false
}

// ChangeKind names what happened to a bill split state
type ChangeKind string

const (
	ChangeSplitCommitted   ChangeKind = "SPLIT_COMMITTED"
	ChangePaymentStarted   ChangeKind = "PAYMENT_STARTED"
	ChangePaymentCompleted ChangeKind = "PAYMENT_COMPLETED"
	ChangePaymentFailed    ChangeKind = "PAYMENT_FAILED"
	ChangePaymentTimedOut  ChangeKind = "PAYMENT_TIMED_OUT"
	ChangeBillReconciled   ChangeKind = "BILL_RECONCILED"
	ChangeSessionCancelled ChangeKind = "SESSION_CANCELLED"
)

// FailureReason defines well-known payment failure reasons set by the service itself
type FailureReason string

const (
	FailureReasonProcessingTimeout FailureReason = "processing_timeout"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
