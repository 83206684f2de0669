package notify

import (
	"fmt"
	"io"
	"strings"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	gomail "gopkg.in/gomail.v2"
)

// SMTPConfig carries the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailSender delivers entry passes over SMTP with the QR image attached.
type EmailSender struct {
	cfg SMTPConfig
}

func NewEmailSender(cfg SMTPConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

func (s *EmailSender) SendPass(recipient string, image []byte, summary domain.ReservationSummary) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", "Reservation Confirmed - Your Entry Pass")
	m.SetBody("text/plain", passBody(summary))
	m.Attach("entry-pass.png", gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(image)
		return err
	}))

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.Username, s.cfg.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send pass mail: %w", err)
	}
	return nil
}

func passBody(summary domain.ReservationSummary) string {
	return fmt.Sprintf(
		"Your reservation for stalls %s has been confirmed.\n\n"+
			"Reservation: %s\nBooked on: %s\n\n"+
			"The attached QR code is your entry pass. Present it at the gate.\n\n"+
			"Book Fair Team",
		strings.Join(summary.StallCodes, ", "),
		summary.ReservationID,
		summary.CreatedAt.Format("2 Jan 2006 15:04"),
	)
}
