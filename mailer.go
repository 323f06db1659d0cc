package account

import "context"

// Mail template keys handed to the delivery collaborator.
const (
	TemplateActivation    = "account_activation"
	TemplatePasswordReset = "password_reset"
)

// Mailer is the out-of-band delivery collaborator. It receives the raw token
// value exactly once per issuance, never a hash. Delivery runs after the
// business transaction has committed; a delivery failure is reported as a
// warning and never rolls back the registration or reset request.
type Mailer interface {
	Deliver(ctx context.Context, recipient, template string, data map[string]any) error
}

// MailerFunc adapts a function to the Mailer interface.
type MailerFunc func(ctx context.Context, recipient, template string, data map[string]any) error

// Deliver implements Mailer.
func (f MailerFunc) Deliver(ctx context.Context, recipient, template string, data map[string]any) error {
	if f == nil {
		return nil
	}
	return f(ctx, recipient, template, data)
}

type noopMailer struct{}

func (noopMailer) Deliver(context.Context, string, string, map[string]any) error {
	return nil
}

// logMailer is the development fallback: it logs the delivery instead of
// sending it. The token value is included because that is the whole point of
// a development mailer; production embeds a real transport.
type logMailer struct {
	logger Logger
}

func (m logMailer) Deliver(_ context.Context, recipient, template string, data map[string]any) error {
	logger := m.logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info("mail delivery", "to", recipient, "template", template, "data", data)
	return nil
}

func normalizeMailer(m Mailer) Mailer {
	if m == nil {
		return logMailer{logger: defLogger{}}
	}
	return m
}
