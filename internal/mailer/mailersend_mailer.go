package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mailersend/mailersend-go"

	"github.com/sajilotech/frontdesk/internal/booking"
)

type MailerSendClient struct {
	client  *mailersend.Mailersend
	from    mailersend.From
	enabled bool
}

func NewMailerSend(apiKey, fromName, fromEmail string) *MailerSendClient {
	m := &MailerSendClient{
		enabled: apiKey != "" && fromEmail != "",
		from: mailersend.From{
			Name:  fromName,
			Email: fromEmail,
		},
	}

	if m.enabled {
		m.client = mailersend.NewMailersend(apiKey)
	}

	return m
}

func (m *MailerSendClient) SendConfirmationEmail(toEmail, toName, date, timeOfDay string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	when := booking.FormatDate(date)
	subject := "Your appointment is confirmed"
	html := fmt.Sprintf(`
		<h2>Appointment Confirmed</h2>
		<p>Hi %s,</p>
		<p>Your appointment is booked for:</p>
		<p><strong>%s at %s</strong></p>
		<p>If you need to change or cancel, just reply in the chat with 'cancel appointment'.</p>
	`, toName, when, timeOfDay)

	text := fmt.Sprintf("Hi %s,\n\nYour appointment is confirmed for %s at %s.", toName, when, timeOfDay)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) SendCancellationEmail(toEmail, toName, date, timeOfDay string) error {
	if !m.enabled {
		return fmt.Errorf("MailerSend not configured")
	}

	when := booking.FormatDate(date)
	subject := "Your appointment has been cancelled"
	html := fmt.Sprintf(`
		<h2>Appointment Cancelled</h2>
		<p>Hi %s,</p>
		<p>Your appointment on <strong>%s at %s</strong> has been cancelled.</p>
		<p>You can book a new one any time in the chat.</p>
	`, toName, when, timeOfDay)

	text := fmt.Sprintf("Hi %s,\n\nYour appointment on %s at %s has been cancelled.", toName, when, timeOfDay)

	return m.sendEmail(toEmail, toName, subject, text, html)
}

func (m *MailerSendClient) sendEmail(toEmail, toName, subject, text, html string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := m.client.Email.NewMessage()
	msg.SetFrom(m.from)
	msg.SetRecipients([]mailersend.Recipient{{Name: toName, Email: toEmail}})
	msg.SetSubject(subject)

	if strings.TrimSpace(text) != "" {
		msg.SetText(text)
	}
	if strings.TrimSpace(html) != "" {
		msg.SetHTML(html)
	}

	_, err := m.client.Email.Send(ctx, msg)
	return err
}
