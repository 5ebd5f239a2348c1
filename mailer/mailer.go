// Package mailer delivers report files by email through Amazon SES.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	emailverifier "github.com/AfterShip/email-verifier"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	sestypes "github.com/aws/aws-sdk-go-v2/service/ses/types"
)

var (
	ErrInvalidAddress = errors.New("invalid email address")
	ErrNoRecipients   = errors.New("no recipients")
)

var verifier = emailverifier.NewVerifier()

// ValidateAddresses checks the syntax of every address.
func ValidateAddresses(addrs ...string) error {
	for _, addr := range addrs {
		if !verifier.ParseAddress(addr).Valid {
			return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
		}
	}
	return nil
}

// SplitAddresses splits a comma separated address list, dropping blanks.
func SplitAddresses(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// Route sends reports whose file name contains Key to To and Cc.
type Route struct {
	Key string
	To  []string
	Cc  []string
}

type Routes struct {
	Routes  []Route
	Default Route
}

// Select returns the first route whose key occurs in the file name, ignoring
// case, or the default route.
func (r Routes) Select(filename string) Route {
	name := strings.ToLower(filename)
	for _, route := range r.Routes {
		if route.Key != "" && strings.Contains(name, strings.ToLower(route.Key)) {
			return route
		}
	}
	return r.Default
}

// SESAPI is the subset of the SES client used here.
type SESAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

type SESSender struct {
	Client SESAPI
}

func NewSESSender(cfg aws.Config) *SESSender {
	return &SESSender{Client: ses.NewFromConfig(cfg)}
}

// Send composes m and hands it to SES, returning the message id.
func (s *SESSender) Send(ctx context.Context, m Message) (string, error) {
	destinations := m.Destinations()
	if len(destinations) == 0 {
		return "", ErrNoRecipients
	}
	raw, err := Compose(m)
	if err != nil {
		return "", fmt.Errorf("compose message: %w", err)
	}
	out, err := s.Client.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(m.From),
		Destinations: destinations,
		RawMessage:   &sestypes.RawMessage{Data: raw},
	})
	if err != nil {
		return "", fmt.Errorf("send raw email: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
