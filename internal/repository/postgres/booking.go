package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"carshare-settlement/internal/domain"
	"carshare-settlement/internal/repository"
)

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

const bookingColumns = `id, guest_id, host_id, car_id, status, payment_status, start_date, end_date,
	daily_rate_cents, subtotal_cents, service_fee_cents, insurance_fee_cents, delivery_fee_cents, tax_cents,
	security_deposit_cents, credits_applied_cents, bonus_applied_cents, charge_amount_cents,
	deposit_from_wallet_cents, deposit_from_card_cents, is_validation_only,
	COALESCE(gateway_customer_ref, ''), COALESCE(payment_method_ref, ''), COALESCE(payment_intent_ref, ''),
	COALESCE(guest_email, ''), COALESCE(guest_phone, ''), COALESCE(host_email, ''),
	pending_charges_cents, trip_ended_at, cancelled_at, cancelled_by, COALESCE(cancellation_reason, ''),
	created_on, updated_on`

func scanBooking(row *sql.Row) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := row.Scan(
		&b.ID, &b.GuestID, &b.HostID, &b.CarID, &b.Status, &b.PaymentStatus, &b.StartDate, &b.EndDate,
		&b.DailyRateCents, &b.SubtotalCents, &b.ServiceFeeCents, &b.InsuranceFeeCents, &b.DeliveryFeeCents, &b.TaxCents,
		&b.SecurityDepositCents, &b.CreditsAppliedCents, &b.BonusAppliedCents, &b.ChargeAmountCents,
		&b.DepositFromWalletCents, &b.DepositFromCardCents, &b.IsValidationOnly,
		&b.GatewayCustomerRef, &b.PaymentMethodRef, &b.PaymentIntentRef,
		&b.GuestEmail, &b.GuestPhone, &b.HostEmail,
		&b.PendingChargesCents, &b.TripEndedAt, &b.CancelledAt, &b.CancelledBy, &b.CancellationReason,
		&b.CreatedOn, &b.UpdatedOn,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	return scanBooking(r.db.QueryRowContext(ctx, query, id))
}

func (r *bookingRepository) MarkCancelled(ctx context.Context, id, cancelledBy int64, reason string) (bool, error) {
	query := `UPDATE bookings
	          SET status = $1, cancelled_at = $2, cancelled_by = $3, cancellation_reason = $4, updated_on = $2
	          WHERE id = $5 AND status IN ($6, $7)`
	res, err := r.db.ExecContext(ctx, query,
		domain.BookingStatusCancelled, time.Now(), cancelledBy, reason,
		id, domain.BookingStatusPending, domain.BookingStatusConfirmed)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *bookingRepository) UpdatePaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	query := `UPDATE bookings SET payment_status = $1, updated_on = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	return err
}

func (r *bookingRepository) SetPendingCharges(ctx context.Context, id int64, amountCents int64) error {
	query := `UPDATE bookings SET pending_charges_cents = $1, updated_on = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, amountCents, time.Now(), id)
	return err
}

func (r *bookingRepository) AppendGuestMessage(ctx context.Context, id int64, message string) error {
	query := `INSERT INTO booking_messages (booking_id, body, created_on) VALUES ($1, $2, $3)`
	_, err := r.db.ExecContext(ctx, query, id, message, time.Now())
	return err
}
