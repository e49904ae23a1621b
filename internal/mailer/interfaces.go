package mailer

type Service interface {
	SendConfirmationEmail(toEmail, toName, date, timeOfDay string) error
	SendCancellationEmail(toEmail, toName, date, timeOfDay string) error
}
