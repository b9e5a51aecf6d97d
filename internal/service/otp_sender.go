package service

import "context"

// OtpSender delivers the plaintext passcode out of band. Delivery is
// best effort: a send failure must not fail the request-otp call.
type OtpSender interface {
	Deliver(ctx context.Context, email, code string) error
}
