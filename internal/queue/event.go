// Package queue defines the message payloads exchanged over the broker and
// the background consumer that delivers account emails.
package queue

// EmailQueueName is the durable queue account emails travel through.
const EmailQueueName = "account.email"

// Mail template identifiers carried in EmailRequestedEvent.
const (
	TemplateConfirmEmail   = "confirmEmail"
	TemplateForgotPassword = "forgotPasswordEmail"
)

// EmailRequestedEvent is published whenever a use-case wants an account
// email sent. The signed link token is minted at publish time so the
// consumer can build the confirmation or reset link without access to the
// signing secrets.
type EmailRequestedEvent struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Template    string `json:"template"`
	Token       string `json:"token"`
	RequestedAt string `json:"requested_at"`
}
