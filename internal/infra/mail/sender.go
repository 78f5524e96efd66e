package mail

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/gomail.v2"
)

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		FromName: "Equipo Comercial Muyu",
	}
}

// Send delivers msg over SMTP, one envelope per recipient so addresses are
// not disclosed to each other.
func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("email without recipients")
	}

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	sc, err := d.Dial()
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	defer sc.Close()

	contentType := "text/plain"
	if msg.HTML {
		contentType = "text/html"
	}

	var errs []error
	for _, to := range msg.To {
		if err := ctx.Err(); err != nil {
			return err
		}
		m := gomail.NewMessage()
		m.SetAddressHeader("From", s.From, s.FromName)
		m.SetHeader("To", to)
		m.SetHeader("Subject", msg.Subject)
		m.SetBody(contentType, msg.Body)

		if err := gomail.Send(sc, m); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", to, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("smtp send: %w", errors.Join(errs...))
	}
	return nil
}

// Dispatch sends immediately. It lets the sender stand in for the queue
// producer when no broker is configured.
func (s *EmailSender) Dispatch(ctx context.Context, msg Message) error {
	return s.Send(ctx, msg)
}

func (s *EmailSender) Address() string {
	return s.From
}
