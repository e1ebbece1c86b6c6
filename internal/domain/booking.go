package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "PENDING"
	PaymentStatusPaid           PaymentStatus = "PAID"
	PaymentStatusPendingCharges PaymentStatus = "PENDING_CHARGES"
	PaymentStatusPaymentFailed  PaymentStatus = "PAYMENT_FAILED"
	PaymentStatusChargesPaid    PaymentStatus = "CHARGES_PAID"
	PaymentStatusChargesCleared PaymentStatus = "CHARGES_CLEARED"
	PaymentStatusRefunded       PaymentStatus = "REFUNDED"
)

type Booking struct {
	ID            int64         `json:"id"`
	GuestID       int64         `json:"guest_id"`
	HostID        int64         `json:"host_id"`
	CarID         int64         `json:"car_id"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	StartDate     time.Time     `json:"start_date"`
	EndDate       time.Time     `json:"end_date"`

	// Price snapshot fields, captured at authorization time. All settlement
	// math uses these snapshots, never live listing prices.
	DailyRateCents       int64 `json:"daily_rate_cents"`
	SubtotalCents        int64 `json:"subtotal_cents"` // refundable base: daily rate x days, fees excluded
	ServiceFeeCents      int64 `json:"service_fee_cents"`
	InsuranceFeeCents    int64 `json:"insurance_fee_cents"`
	DeliveryFeeCents     int64 `json:"delivery_fee_cents"`
	TaxCents             int64 `json:"tax_cents"`
	SecurityDepositCents int64 `json:"security_deposit_cents"`

	// Amounts actually drawn from each funding source at authorization time.
	CreditsAppliedCents    int64 `json:"credits_applied_cents"`
	BonusAppliedCents      int64 `json:"bonus_applied_cents"`
	ChargeAmountCents      int64 `json:"charge_amount_cents"` // card-funded portion
	DepositFromWalletCents int64 `json:"deposit_from_wallet_cents"`
	DepositFromCardCents   int64 `json:"deposit_from_card_cents"`

	// IsValidationOnly marks bookings whose card authorization was a nominal
	// validation charge because credits/bonus covered the full trip cost.
	IsValidationOnly bool `json:"is_validation_only"`

	GatewayCustomerRef string `json:"gateway_customer_ref"`
	PaymentMethodRef   string `json:"payment_method_ref"`
	PaymentIntentRef   string `json:"payment_intent_ref"`

	// Contact snapshot, denormalized at booking creation so settlement
	// notifications never depend on the identity service being up.
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone"`
	HostEmail  string `json:"host_email"`

	PendingChargesCents int64      `json:"pending_charges_cents"`
	TripEndedAt         *time.Time `json:"trip_ended_at,omitempty"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy        *int64     `json:"cancelled_by,omitempty"`
	CancellationReason string     `json:"cancellation_reason"`

	CreatedOn time.Time `json:"created_on"`
	UpdatedOn time.Time `json:"updated_on"`
}

// TripDays returns the billed trip length in days, minimum one.
func (b *Booking) TripDays() int {
	days := int(b.EndDate.Sub(b.StartDate).Hours() / 24)
	if days < 1 {
		return 1
	}
	return days
}

// TripCostCents is the full booking cost: refundable base plus all
// non-refundable fees and taxes. The security deposit is not part of it.
func (b *Booking) TripCostCents() int64 {
	return b.SubtotalCents + b.ServiceFeeCents + b.InsuranceFeeCents + b.DeliveryFeeCents + b.TaxCents
}
