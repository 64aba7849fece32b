package handler

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"mealscan/model"
	"mealscan/scan"
)

// Scanning-station operator states.
const (
	stateIdle = iota
	stateAwaitConfirm
)

type operatorState struct {
	state          int
	pendingPayload string
}

// ScanBotHandler is the Telegram scanning station: the operator pastes
// the decoded QR payload, reviews the dry-run card, then confirms to
// commit the redemption.
type ScanBotHandler struct {
	scanner *scan.Engine

	mu        sync.Mutex
	operators map[int64]*operatorState
}

// NewScanBotHandler constructs the bot handler.
func NewScanBotHandler(scanner *scan.Engine) *ScanBotHandler {
	return &ScanBotHandler{
		scanner:   scanner,
		operators: make(map[int64]*operatorState),
	}
}

// Handler processes one Telegram update.
func (s *ScanBotHandler) Handler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	input := strings.TrimSpace(update.Message.Text)

	s.mu.Lock()
	op, ok := s.operators[userID]
	if !ok {
		op = &operatorState{state: stateIdle}
		s.operators[userID] = op
	}
	s.mu.Unlock()

	var text string

	switch op.state {
	case stateIdle:
		switch input {
		case "/start":
			text = "Hello! I'm the meal scanning station. Paste a scanned coupon payload (ticket id, optionally with |meal) and I'll check it. Use /help for details."
		case "/help":
			text = "Paste a coupon payload like INV-000123-4|lunch. I'll show the participant card; reply /confirm to mark the meal used, or /cancel to discard."
		default:
			text = s.handleDryRun(ctx, op, input)
		}
	case stateAwaitConfirm:
		switch input {
		case "/confirm":
			text = s.handleCommit(ctx, op)
		case "/cancel":
			op.state = stateIdle
			op.pendingPayload = ""
			text = "Discarded. Paste the next coupon payload."
		default:
			text = "Reply /confirm to redeem, /cancel to discard, or paste a new payload after cancelling."
		}
	default:
		op.state = stateIdle
		text = "An error occurred."
	}

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		log.Error().Err(err).Msg("error sending message")
	}
}

func (s *ScanBotHandler) handleDryRun(ctx context.Context, op *operatorState, payload string) string {
	result, err := s.scanner.Verify(ctx, payload, true)
	if err != nil {
		log.Warn().Err(err).Msg("dry-run scan failed")
	}
	text := formatCard(result)
	if result.Status == model.ScanEligible {
		op.state = stateAwaitConfirm
		op.pendingPayload = payload
		text += "\n\nReply /confirm to mark it used, /cancel to discard."
	}
	return text
}

func (s *ScanBotHandler) handleCommit(ctx context.Context, op *operatorState) string {
	payload := op.pendingPayload
	op.state = stateIdle
	op.pendingPayload = ""

	// The commit re-checks usage inside the store transaction, so a
	// stale approval resolves to "already redeemed" rather than a
	// double redemption.
	result, err := s.scanner.Verify(ctx, payload, false)
	if err != nil {
		log.Warn().Err(err).Msg("commit scan failed")
	}
	return formatCard(result)
}

func formatCard(result *model.ScanResult) string {
	var sb strings.Builder
	switch result.Status {
	case model.ScanVerified:
		sb.WriteString("✅ VERIFIED — ")
	case model.ScanEligible:
		sb.WriteString("🟡 ELIGIBLE — ")
	case model.ScanUsed:
		sb.WriteString("🚫 USED — ")
	default:
		sb.WriteString("❌ ")
	}
	sb.WriteString(result.Message)

	if p := result.Participant; p != nil {
		sb.WriteString(fmt.Sprintf("\n\nName: %s", p.Name))
		if p.RollNo != "" {
			sb.WriteString(fmt.Sprintf("\nRoll No: %s", p.RollNo))
		}
		if p.RoomNo != "" {
			sb.WriteString(fmt.Sprintf("\nRoom: %s", p.RoomNo))
		}
		if p.College != "" {
			sb.WriteString(fmt.Sprintf("\nCollege: %s", p.College))
		}
		if p.FoodPreference != "" {
			sb.WriteString(fmt.Sprintf("\nFood: %s", p.FoodPreference))
		}
		sb.WriteString(fmt.Sprintf("\nTicket: %s", p.TicketID))
		if p.PhotoURL != nil {
			sb.WriteString(fmt.Sprintf("\nPhoto: %s", *p.PhotoURL))
		}
	}
	if result.ScanDetails != nil {
		sb.WriteString(fmt.Sprintf("\nMeal: %s", result.ScanDetails.MealType))
	}
	return sb.String()
}
