package settlement

import (
	"context"
	"errors"
	"strings"

	"github.com/tutorlink/tutorlink-api/internal/pkg/email"
)

// ReceiptMailer queues receipt emails. *email.Service satisfies it.
type ReceiptMailer interface {
	SendCoinsCredited(to, toName string, data email.CoinsCreditedData) bool
}

// EmailNotifier sends a receipt email for every credited purchase.
type EmailNotifier struct {
	mailer    ReceiptMailer
	walletURL string
}

func NewEmailNotifier(mailer ReceiptMailer, frontendURL string) *EmailNotifier {
	return &EmailNotifier{
		mailer:    mailer,
		walletURL: strings.TrimRight(frontendURL, "/") + "/wallet",
	}
}

func (n *EmailNotifier) CoinsCredited(_ context.Context, r Receipt) error {
	if r.Email == "" {
		return errors.New("receipt without email")
	}
	queued := n.mailer.SendCoinsCredited(r.Email, r.Name, email.CoinsCreditedData{
		Name:      r.Name,
		Coins:     r.Coins,
		Balance:   r.Balance,
		WalletURL: n.walletURL,
	})
	if !queued {
		return errors.New("email queue full")
	}
	return nil
}
