// Package qrtoken encodes the issuer/subject pair carried by attendance QR codes.
package qrtoken

import (
	"errors"
	"strings"
)

// Delimiter separates issuer and subject in the serialized token.
const Delimiter = "|"

var (
	ErrMalformed = errors.New("malformed qr token")
	ErrDelimiter = errors.New("token field contains delimiter")
	ErrEmpty     = errors.New("token field is empty")
)

// Token binds a scan to the teacher who issued it and the subject.
type Token struct {
	Issuer  string
	Subject string
}

// String returns the serialized form without validation.
func (t Token) String() string {
	return t.Issuer + Delimiter + t.Subject
}

// Encode serializes issuer and subject. Fields may not contain the delimiter.
func Encode(issuer, subject string) (string, error) {
	if strings.TrimSpace(issuer) == "" || strings.TrimSpace(subject) == "" {
		return "", ErrEmpty
	}
	if strings.Contains(issuer, Delimiter) || strings.Contains(subject, Delimiter) {
		return "", ErrDelimiter
	}
	return Token{Issuer: issuer, Subject: subject}.String(), nil
}

// Decode parses a serialized token. It requires exactly one delimiter and two non-empty parts.
func Decode(s string) (Token, error) {
	if strings.Count(s, Delimiter) != 1 {
		return Token{}, ErrMalformed
	}
	issuer, subject, _ := strings.Cut(s, Delimiter)
	if issuer == "" || subject == "" {
		return Token{}, ErrMalformed
	}
	return Token{Issuer: issuer, Subject: subject}, nil
}
