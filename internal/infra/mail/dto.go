package mail

import "gopkg.in/gomail.v2"

// Dialer é satisfeito por *gomail.Dialer; os testes trocam por um fake.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// templateData is what every template sees: the caller's data plus the
// recipient.
type templateData struct {
	Email string
	Data  map[string]any
}
