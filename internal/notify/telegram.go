package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"storefront/internal/models"
)

// Telegram posts payment outcomes to the operators' chat.
type Telegram struct {
	Bot    *telego.Bot
	ChatID int64
	logger *slog.Logger
}

func NewTelegram(token string, chatID int64, logger *slog.Logger, opts ...telego.BotOption) (*Telegram, error) {
	bot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Telegram{
		Bot:    bot,
		ChatID: chatID,
		logger: logger,
	}, nil
}

func (t *Telegram) PaymentSucceeded(ctx context.Context, p *models.Payment) error {
	_, err := t.Bot.SendMessage(ctx, tu.Message(tu.ID(t.ChatID), SuccessMessage(p)))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	t.logger.InfoContext(ctx, "Sent purchase notification", "merchantTransactionId", p.MerchantTransactionID)
	return nil
}

func SuccessMessage(p *models.Payment) string {
	product := p.ProductID
	if product == "" {
		product = "-"
	}

	return fmt.Sprintf("✅ New %s payment\n\nAmount: %.2f₹\nProduct: %s\nCustomer: %s (%s)\nGateway: %s\nTransaction: %s",
		p.ProductType, p.Amount, product, p.CustomerName, p.CustomerEmail, p.Gateway, p.MerchantTransactionID)
}
