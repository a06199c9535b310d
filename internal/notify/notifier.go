package notify

import (
	"fmt"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"capital_tracker/internal/models"
	"capital_tracker/internal/modules/config"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// Telegram — пассивный нотифайер: шлёт дневные сводки в чат.
// Без токена превращается в no-op, анализ от него не зависит.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

func NewTelegram(cfg *config.Config) (*Telegram, error) {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		return &Telegram{}, nil
	}
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("notify.NewTelegram: %w", err)
	}
	return &Telegram{
		bot:    b,
		chatID: cfg.Telegram.ChatID,
	}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Summary — компактная сводка дневного результата для чата.
func Summary(r models.DayResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s %s\n", r.Symbol, r.Date)
	fmt.Fprintf(&b, "Cost: %.2f (MA5 %.2f / MA10 %.2f / MA20 %.2f)\n",
		r.WeightedCost, r.CostMA5, r.CostMA10, r.CostMA20)
	if r.NetFlowUnscaled {
		fmt.Fprintf(&b, "Net flow: %.0f (unscaled)\n", r.NetFlow)
	} else {
		fmt.Fprintf(&b, "Net flow: %.4f%%\n", r.NetFlow*100)
	}
	fmt.Fprintf(&b, "Buy: agg %.0f / def %.0f / algo %.0f\n",
		r.AggressiveBuyAmount, r.DefensiveBuyAmount, r.AlgoBuyAmount)
	fmt.Fprintf(&b, "Sell: agg %.0f / def %.0f / algo %.0f\n",
		r.AggressiveSellAmount, r.DefensiveSellAmount, r.AlgoSellAmount)
	fmt.Fprintf(&b, "Chips: peak %.2f, conc %.2f%%", r.ChipPeakPrice, r.ConcentrationRatio*100)
	if r.HasSupport {
		fmt.Fprintf(&b, ", sup %.2f", r.SupportPrice)
	}
	if r.HasResistance {
		fmt.Fprintf(&b, ", res %.2f", r.ResistancePrice)
	}
	fmt.Fprintf(&b, "\nValidation: %s", r.ValidationStatus)
	if r.ValidationStatus == models.ValidationInvalid {
		b.WriteString(" ⚠️")
	}
	return b.String()
}
