package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

type Config struct {
	Host      string        `split_words:"true" required:"true"`
	Port      int           `split_words:"true" default:"587"`
	Username  string        `split_words:"true"`
	Password  string        `split_words:"true"`
	From      string        `split_words:"true" required:"true"`
	SSL       bool          `envconfig:"SSL" default:"false"`
	TLSPolicy string        `split_words:"true" default:"mandatory"`
	Timeout   time.Duration `split_words:"true" default:"15s"`
}

// Client sends plain-text mail over SMTP. A new connection is dialled per
// message.
type Client struct {
	from string
	opts []mail.Option
	host string
	send func(ctx context.Context, c *mail.Client, m *mail.Msg) error
}

func NewClient(cfg Config) (*Client, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, errors.New("smtp host is required")
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = strings.TrimSpace(cfg.Username)
	}
	if from == "" {
		return nil, errors.New("smtp sender address is required")
	}

	policy, err := tlsPolicy(cfg.TLSPolicy)
	if err != nil {
		return nil, err
	}

	opts := []mail.Option{mail.WithTLSPolicy(policy)}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.SSL {
		opts = append(opts, mail.WithSSL())
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if user := strings.TrimSpace(cfg.Username); user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(user),
			mail.WithPassword(cfg.Password),
		)
	}

	return &Client{
		from: from,
		opts: opts,
		host: host,
		send: func(ctx context.Context, c *mail.Client, m *mail.Msg) error {
			return c.DialAndSendWithContext(ctx, m)
		},
	}, nil
}

func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	msg, err := c.message(to, subject, body)
	if err != nil {
		return err
	}
	client, err := mail.NewClient(c.host, c.opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}
	if err := c.send(ctx, client, msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

func (c *Client) message(to, subject, body string) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(c.from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", c.from, err)
	}
	if err := msg.To(strings.TrimSpace(to)); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)
	return msg, nil
}

func tlsPolicy(name string) (mail.TLSPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "mandatory":
		return mail.TLSMandatory, nil
	case "opportunistic":
		return mail.TLSOpportunistic, nil
	case "none":
		return mail.NoTLS, nil
	default:
		return mail.TLSMandatory, fmt.Errorf("unknown smtp tls policy %q", name)
	}
}
