package intake

import (
	"fmt"
	"net/url"
	"strings"
)

// MailtoLink builds the mail-client deep link opened after a contact
// submission. Subject and body are query-escaped the way browsers expect
// (%20 for spaces, not +).
func MailtoLink(address string, submission ContactSubmission) string {
	body := fmt.Sprintf("Name: %s\nEmail: %s\n\nMessage:\n%s",
		submission.FullName, submission.Email, submission.Message)
	return fmt.Sprintf("mailto:%s?subject=%s&body=%s",
		address, escapeComponent(submission.Subject), escapeComponent(body))
}

// WhatsAppLink builds the wa.me deep link with a prefilled message.
func WhatsAppLink(phoneNumber, name, message string) string {
	text := fmt.Sprintf("Name: %s\n\nMessage: %s", name, message)
	return fmt.Sprintf("https://wa.me/%s?text=%s", phoneNumber, escapeComponent(text))
}

// escapeComponent mirrors encodeURIComponent: percent-encoding with %20 for
// spaces rather than the + form encoding used by url.QueryEscape.
func escapeComponent(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}
