package service

import (
	"context"
	"fmt"
	"strconv"

	"gopkg.in/gomail.v2"
)

type emailService struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewEmailService(host, port, username, password, from string) EmailService {
	p, _ := strconv.Atoi(port)
	return &emailService{
		host:     host,
		port:     p,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *emailService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email via gomail: %w", err)
	}
	return nil
}

func (s *emailService) SendHostCancellationNotice(ctx context.Context, hostEmail string, bookingID int64, reason string) error {
	body := fmt.Sprintf("Hello,\n\nBooking #%d has been cancelled by the guest.", bookingID)
	if reason != "" {
		body += fmt.Sprintf("\n\nReason given: %s", reason)
	}
	body += "\n\nYour car is available for new bookings again.\n\nBest regards,\nThe CarShare Team"
	return s.send(hostEmail, fmt.Sprintf("Booking #%d cancelled", bookingID), body)
}

func (s *emailService) SendChargeConfirmation(ctx context.Context, guestEmail string, bookingID, amountCents int64, category string) error {
	body := fmt.Sprintf("Hello,\n\nYour post-trip %s charge of $%.2f for booking #%d was processed successfully.\n\nBest regards,\nThe CarShare Team",
		category, float64(amountCents)/100, bookingID)
	return s.send(guestEmail, fmt.Sprintf("Trip charge processed for booking #%d", bookingID), body)
}

func (s *emailService) SendChargeFailureNotice(ctx context.Context, guestEmail string, bookingID, amountCents int64, final bool) error {
	body := fmt.Sprintf("Hello,\n\nWe could not process your post-trip charge of $%.2f for booking #%d.",
		float64(amountCents)/100, bookingID)
	if final {
		body += "\n\nOur support team will contact you to settle the remaining balance."
	} else {
		body += "\n\nWe will retry the charge automatically. Please make sure your payment method is up to date."
	}
	body += "\n\nBest regards,\nThe CarShare Team"
	return s.send(guestEmail, fmt.Sprintf("Trip charge failed for booking #%d", bookingID), body)
}

func (s *emailService) SendAdminChargeReview(ctx context.Context, adminEmail string, bookingID, amountCents int64, failureReason string) error {
	body := fmt.Sprintf("A trip charge needs manual review.\n\nBooking: #%d\nAmount: $%.2f\nLast failure: %s\n\nThe charge has been taken out of the automatic retry queue.",
		bookingID, float64(amountCents)/100, failureReason)
	return s.send(adminEmail, fmt.Sprintf("Charge review required for booking #%d", bookingID), body)
}
