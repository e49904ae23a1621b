package mailer

import (
	"fmt"

	"github.com/sajilotech/frontdesk/pkg/logger"
)

type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendConfirmationEmail(toEmail, toName, date, timeOfDay string) error {
	logger.Info("📧 [DEV MAIL] Appointment Confirmation",
		"to", toEmail,
		"name", toName,
		"date", date,
		"time", timeOfDay,
	)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 APPOINTMENT CONFIRMATION (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s (%s)\n"+
		"Subject: Your appointment is confirmed\n"+
		"\n"+
		"Date: %s\n"+
		"Time: %s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		toEmail, toName, date, timeOfDay)

	return nil
}

func (d *DevMailer) SendCancellationEmail(toEmail, toName, date, timeOfDay string) error {
	logger.Info("📧 [DEV MAIL] Appointment Cancellation",
		"to", toEmail,
		"name", toName,
		"date", date,
		"time", timeOfDay,
	)

	fmt.Printf("\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"📧 APPOINTMENT CANCELLATION (DEV MODE)\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n"+
		"To: %s (%s)\n"+
		"Subject: Your appointment has been cancelled\n"+
		"\n"+
		"Date: %s\n"+
		"Time: %s\n"+
		"━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n",
		toEmail, toName, date, timeOfDay)

	return nil
}
