package accounts

import "context"

// Notifier delivers account lifecycle email. Delivery failures never roll
// back the operation that triggered them, callers log and move on.
type Notifier interface {
	SendWelcome(ctx context.Context, email, firstName string) error
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// NotifierFuncs adapts free functions to the Notifier interface. Nil
// fields are no-ops.
type NotifierFuncs struct {
	Welcome       func(ctx context.Context, email, firstName string) error
	Verification  func(ctx context.Context, email, token string) error
	PasswordReset func(ctx context.Context, email, token string) error
}

func (n NotifierFuncs) SendWelcome(ctx context.Context, email, firstName string) error {
	if n.Welcome == nil {
		return nil
	}
	return n.Welcome(ctx, email, firstName)
}

func (n NotifierFuncs) SendVerification(ctx context.Context, email, token string) error {
	if n.Verification == nil {
		return nil
	}
	return n.Verification(ctx, email, token)
}

func (n NotifierFuncs) SendPasswordReset(ctx context.Context, email, token string) error {
	if n.PasswordReset == nil {
		return nil
	}
	return n.PasswordReset(ctx, email, token)
}

type noopNotifier struct{}

func (noopNotifier) SendWelcome(context.Context, string, string) error {
	return nil
}

func (noopNotifier) SendVerification(context.Context, string, string) error {
	return nil
}

func (noopNotifier) SendPasswordReset(context.Context, string, string) error {
	return nil
}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
