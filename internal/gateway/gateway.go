package gateway

import "context"

// IntentState is the payment gateway's own view of a payment intent. It is
// the authoritative state: local paymentStatus fields can drift after partial
// failures, gateway state cannot.
type IntentState string

const (
	IntentRequiresCapture       IntentState = "requires_capture"
	IntentSucceeded             IntentState = "succeeded"
	IntentRequiresPaymentMethod IntentState = "requires_payment_method"
	IntentRequiresConfirmation  IntentState = "requires_confirmation"
	IntentRequiresAction        IntentState = "requires_action"
	IntentCanceled              IntentState = "canceled"
)

// NeverConfirmed reports whether the intent was never confirmed by the guest,
// meaning nothing was ever charged and a cancel is always safe.
func (s IntentState) NeverConfirmed() bool {
	switch s {
	case IntentRequiresPaymentMethod, IntentRequiresConfirmation, IntentRequiresAction:
		return true
	}
	return false
}

// IntentStatus is the result of retrieving an intent from the gateway.
type IntentStatus struct {
	State           IntentState
	AuthorizedCents int64
	CapturedCents   int64
}

// PaymentGateway is the capability interface the settlement engine consumes.
// The gateway itself (card networks, webhooks, processor API surface) lives
// outside this codebase.
type PaymentGateway interface {
	// Authorize places a hold on the guest's payment method and returns the
	// intent reference.
	Authorize(ctx context.Context, customerRef, methodRef string, amountCents int64, metadata map[string]string) (string, error)

	// RetrieveStatus fetches the authoritative state of an intent.
	RetrieveStatus(ctx context.Context, intentRef string) (*IntentStatus, error)

	// Capture settles an authorized intent. amountCents == 0 captures the full
	// authorized amount; a partial amount releases the remainder.
	Capture(ctx context.Context, intentRef string, amountCents int64) error

	// Cancel voids an authorization that was never (fully) captured.
	Cancel(ctx context.Context, intentRef, reason string) error

	// Refund returns captured funds to the guest and returns the gateway's
	// refund reference.
	Refund(ctx context.Context, intentRef string, amountCents int64, metadata map[string]string) (string, error)
}
