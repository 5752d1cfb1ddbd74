package entity

import (
	"errors"
	"regexp"
	"strings"
)

var ErrInvalidIdentity = errors.New("valid email is required")

var identityPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Identity é o email canônico (trim + lowercase). Única chave de progresso e
// de eventos de ciclo de vida.
type Identity string

// ParseIdentity normaliza e valida um email no formato local@dominio.tld.
func ParseIdentity(raw string) (Identity, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if !identityPattern.MatchString(s) {
		return "", ErrInvalidIdentity
	}
	return Identity(s), nil
}

func (i Identity) String() string {
	return string(i)
}
