// Package email implements the Email Provider Actor kind (spec §4.4)
// backed by SMTP via go-mail.
package email

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/aras-services/native-gateway/internal/domain"
	"github.com/aras-services/native-gateway/internal/provider/actor"
)

// Activate builds a go-mail client against the descriptor's config
// (expects "host", "port", "username", "password") and spawns the actor.
// SMTP has no long-lived pool to hold open; the actor still serializes
// sends through its inbox so ordering (P5) holds per provider.
func Activate(ctx context.Context, desc *domain.ProviderDescriptor, inboxDepth int, logger *zap.Logger) (*actor.Actor, error) {
	port, _ := strconv.Atoi(desc.Config["port"])
	client, err := gomail.NewClient(desc.Config["host"],
		gomail.WithPort(port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(desc.Config["username"]),
		gomail.WithPassword(desc.Config["password"]),
	)
	if err != nil {
		return nil, &domain.ConnectionError{Message: err.Error()}
	}

	handle := func(ctx context.Context, op string, args []byte) ([]byte, error) {
		return dispatch(ctx, client, op, args)
	}
	test := func(ctx context.Context) (time.Duration, error) {
		start := time.Now()
		err := client.DialWithContext(ctx)
		if err == nil {
			client.Close()
		}
		return time.Since(start), err
	}
	info := func() domain.ConnectionInfo {
		return domain.ConnectionInfo{
			Kind:    domain.ProviderKindEmail,
			Subtype: desc.Subtype,
			Details: map[string]string{"host": desc.Config["host"]},
		}
	}

	return actor.Spawn(desc.Name, domain.ProviderKindEmail, inboxDepth, handle, test, info, func() {}, logger), nil
}

func dispatch(ctx context.Context, client *gomail.Client, op string, rawArgs []byte) ([]byte, error) {
	switch op {
	case "send":
		var args struct {
			From    string `json:"from"`
			To      string `json:"to"`
			Subject string `json:"subject"`
			Body    string `json:"body"`
			IsHTML  bool   `json:"is_html"`
		}
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return nil, err
		}
		msg := gomail.NewMsg()
		if err := msg.From(args.From); err != nil {
			return nil, err
		}
		if err := msg.To(args.To); err != nil {
			return nil, err
		}
		msg.Subject(args.Subject)
		if args.IsHTML {
			msg.SetBodyString(gomail.TypeTextHTML, args.Body)
		} else {
			msg.SetBodyString(gomail.TypeTextPlain, args.Body)
		}
		if err := client.DialAndSendWithContext(ctx, msg); err != nil {
			return nil, err
		}
		return json.Marshal(struct{}{})

	default:
		return nil, fmt.Errorf("email provider: unknown op %q", op)
	}
}
