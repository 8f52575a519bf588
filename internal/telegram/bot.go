package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"crypto-advisor/internal/alert"
	"crypto-advisor/internal/commands"
	"crypto-advisor/internal/market"
	"crypto-advisor/internal/poller"
	"crypto-advisor/internal/types"
	"crypto-advisor/lib/helpers"
	"crypto-advisor/lib/translation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const trackPrefix = "track|"

var alertArgsRe = regexp.MustCompile(`^(\S+)\s+\$?([0-9][0-9,]*(?:\.[0-9]+)?)$`)

// NewBot creates new telegram bot
func NewBot(c BotConfig, charts *commands.Charts) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	return &Bot{
		Bot:    bot,
		Config: c,
		charts: charts,
		chatID: c.ChatID,
	}, nil
}

// Attach connects the bot to the session it controls
func (b *Bot) Attach(s Session) {
	b.session = s
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() (tgbotapi.UpdatesChannel, error) {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig), nil
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	msg.ParseMode = "MarkdownV2"
	if _, err := b.Bot.Send(msg); err != nil {
		return errors.Wrapf(err, "could not send message: %v", m)
	}
	return nil
}

// ParseAlertArguments reads "<below|above> <price>"
func ParseAlertArguments(args string) (types.AlertCondition, float64, error) {
	matches := alertArgsRe.FindStringSubmatch(strings.TrimSpace(args))
	if matches == nil {
		return "", 0, errors.New("invalid alert arguments")
	}

	var condition types.AlertCondition
	switch strings.ToLower(matches[1]) {
	case "below", "<", "<=", "drops", "falls":
		condition = types.PriceDropsTo
	case "above", ">", ">=", "rises":
		condition = types.PriceRisesTo
	default:
		return "", 0, errors.Errorf("unknown alert condition %q", matches[1])
	}

	target, err := strconv.ParseFloat(strings.ReplaceAll(matches[2], ",", ""), 64)
	if err != nil {
		return "", 0, errors.Wrap(err, "invalid target price")
	}
	return condition, target, nil
}

func (b *Bot) rememberChat(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Config.ChatID == 0 {
		b.chatID = chatID
	}
}

func (b *Bot) sessionChat() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chatID
}

func trackedAsset(s poller.Snapshot) (types.Asset, bool) {
	if len(s.Tracked) == 0 {
		return types.Asset{}, false
	}
	return s.Tracked[0], true
}

// errorText turns a session error into a user message
func errorText(err error, s poller.Snapshot) string {
	switch {
	case market.IsRateLimited(err):
		return helpers.EscapeMarkdownV2(s.GlobalError)
	case s.SearchError != "":
		return helpers.EscapeMarkdownV2(s.SearchError)
	case s.GlobalError != "":
		return helpers.EscapeMarkdownV2(s.GlobalError)
	}
	return helpers.EscapeMarkdownV2(err.Error())
}

// HandleUpdate processes a command message and returns the MarkdownV2 reply.
// An empty reply means the answer was already sent.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) string {
	text := helpers.EscapeMarkdownV2(translation.Translate("Command help message"))
	log.Debugf("received command: %s", u.Message.Command())

	b.rememberChat(u.Message.Chat.ID)
	args := strings.TrimSpace(u.Message.CommandArguments())

	switch u.Message.Command() {
	case "search", "s":
		if args == "" {
			return helpers.EscapeMarkdownV2(translation.Translate("search_usage"))
		}
		return b.handleSearch(ctx, args)
	case "suggest":
		return b.handleSuggest(ctx, u.Message.Chat.ID, args)
	case "price", "p":
		s := b.session.Snapshot()
		asset, ok := trackedAsset(s)
		if !ok {
			return helpers.EscapeMarkdownV2(translation.Translate("nothing_tracked"))
		}
		return commands.CommandPrice(asset)
	case "advice", "a":
		return b.handleAdvice(ctx)
	case "chart", "c":
		return b.handleChart(u.Message)
	case "alert":
		return b.handleAlert(ctx, args)
	case "alerts":
		return commands.CommandAlertList(b.session.Alerts())
	case "delalert":
		if args == "" {
			return helpers.EscapeMarkdownV2(translation.Translate("delalert_usage"))
		}
		if err := b.session.RemoveAlert(ctx, args); err != nil {
			if errors.Is(err, alert.ErrNotFound) {
				return helpers.EscapeMarkdownV2(translation.Translate("alert_not_found"))
			}
			log.Error(err)
			return helpers.EscapeMarkdownV2(translation.Translate("alert_save_failed"))
		}
		return helpers.EscapeMarkdownV2(translation.Translate("alert_removed"))
	case "dismiss":
		if args == "" {
			return helpers.EscapeMarkdownV2(translation.Translate("dismiss_usage"))
		}
		b.session.DismissTriggered(args)
		return helpers.EscapeMarkdownV2(translation.Translate("alert_dismissed"))
	case "status":
		return commands.CommandStatus(b.session.Snapshot())
	}

	return text
}

func (b *Bot) handleSearch(ctx context.Context, query string) string {
	err := b.session.Search(ctx, query)
	s := b.session.Snapshot()
	if err != nil && !errors.Is(err, poller.ErrPartialData) {
		log.WithError(err).Debugf("search %q", query)
		return errorText(err, s)
	}

	asset, ok := trackedAsset(s)
	if !ok {
		return errorText(poller.ErrNoMatch, s)
	}
	reply := commands.CommandPrice(asset)
	if s.SearchError != "" {
		reply += "\n\n" + helpers.EscapeMarkdownV2(s.SearchError)
	}
	return reply
}

func (b *Bot) handleSuggest(ctx context.Context, chatID int64, query string) string {
	if len([]rune(query)) < 2 {
		return helpers.EscapeMarkdownV2(translation.Translate("suggest_usage"))
	}

	suggestions, err := b.session.Suggestions(ctx, query)
	if err != nil {
		return errorText(err, b.session.Snapshot())
	}

	msg := tgbotapi.NewMessage(chatID, commands.CommandSuggestions(query, suggestions))
	msg.ParseMode = "MarkdownV2"
	if len(suggestions) > 0 {
		msg.ReplyMarkup = suggestionKeyboard(suggestions)
	}
	if _, err := b.Bot.Send(msg); err != nil {
		log.Error("error sending suggestions: ", err)
	}
	return ""
}

func suggestionKeyboard(suggestions []types.Suggestion) tgbotapi.InlineKeyboardMarkup {
	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, s := range suggestions {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(commands.SuggestionLabel(s), trackPrefix+s.ID),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(buttons...)
}

func (b *Bot) handleAdvice(ctx context.Context) string {
	s := b.session.Snapshot()
	asset, ok := trackedAsset(s)
	if !ok {
		return helpers.EscapeMarkdownV2(translation.Translate("nothing_tracked"))
	}

	err := b.session.ManualAdvice(ctx, asset.ID)
	switch {
	case err == nil, errors.Is(err, poller.ErrPartialData):
		// pushed through RecommendationIssued
		return ""
	case errors.Is(err, poller.ErrInFlight):
		return helpers.EscapeMarkdownV2(translation.Translate("advice_pending"))
	}
	return errorText(err, b.session.Snapshot())
}

func (b *Bot) handleChart(m *tgbotapi.Message) string {
	asset, ok := trackedAsset(b.session.Snapshot())
	if !ok {
		return helpers.EscapeMarkdownV2(translation.Translate("nothing_tracked"))
	}

	chartData, caption, err := b.charts.CommandChart(asset)
	if err != nil {
		log.Error(err)
		return errorText(err, poller.Snapshot{})
	}
	if chartData == nil {
		return caption
	}

	photo := tgbotapi.NewPhoto(m.Chat.ID, tgbotapi.FileBytes{
		Name:  "chart.png",
		Bytes: chartData,
	})
	photo.Caption = caption
	photo.ParseMode = "MarkdownV2"
	photo.ReplyToMessageID = m.MessageID
	if _, err := b.Bot.Send(photo); err != nil {
		log.Error("error sending chart:", err)
	}
	return ""
}

func (b *Bot) handleAlert(ctx context.Context, args string) string {
	condition, target, err := ParseAlertArguments(args)
	if err != nil {
		return helpers.EscapeMarkdownV2(translation.Translate("alert_command_usage"))
	}

	asset, ok := trackedAsset(b.session.Snapshot())
	if !ok {
		return helpers.EscapeMarkdownV2(translation.Translate("nothing_tracked"))
	}

	a, err := b.session.AddAlert(ctx, asset.ID, target, condition)
	if err != nil {
		log.WithError(err).Warn("alert not created")
		return helpers.EscapeMarkdownV2(errors.Cause(err).Error())
	}
	return commands.CommandAlertSet(a)
}

// HandleCallbackQuery handles taps on suggestion buttons
func (b *Bot) HandleCallbackQuery(ctx context.Context, callbackQuery *tgbotapi.CallbackQuery) {
	data := callbackQuery.Data
	if !strings.HasPrefix(data, trackPrefix) || callbackQuery.Message == nil {
		b.answerCallback(callbackQuery.ID, translation.Translate("Unknown action. Please try again."))
		return
	}

	chatID := callbackQuery.Message.Chat.ID
	b.rememberChat(chatID)

	id := strings.TrimPrefix(data, trackPrefix)
	var picked *types.Suggestion
	for _, s := range b.session.Snapshot().Suggestions {
		if s.ID == id {
			picked = &s
			break
		}
	}
	if picked == nil {
		b.answerCallback(callbackQuery.ID, translation.Translate("Invalid selection."))
		return
	}
	b.answerCallback(callbackQuery.ID, translation.Translate("Tracking..."))

	deleteMsg := tgbotapi.NewDeleteMessage(chatID, callbackQuery.Message.MessageID)
	if _, err := b.Bot.Request(deleteMsg); err != nil {
		log.Error("Failed to delete suggestions message: ", err)
	}

	err := b.session.Select(ctx, picked.ID, picked.Name, picked.Symbol)
	s := b.session.Snapshot()
	text := ""
	if err != nil && !errors.Is(err, poller.ErrPartialData) {
		text = errorText(err, s)
	} else if asset, ok := trackedAsset(s); ok {
		text = commands.CommandPrice(asset)
	}
	if err := b.SendMessage(Message{ChatID: chatID, Text: text}); err != nil {
		log.Error(err)
	}
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.Bot.Request(tgbotapi.NewCallback(id, text)); err != nil {
		log.Debugf("callback answer failed: %v", err)
	}
}

// HandleInlineQuery feeds inline typing into the debounced suggestions search
func (b *Bot) HandleInlineQuery(q *tgbotapi.InlineQuery) {
	b.mu.Lock()
	b.inline = pendingInline{id: q.ID, query: q.Query}
	b.mu.Unlock()

	b.session.Type(q.Query)
}

// AlertTriggered pushes a fired alert to the session chat
func (b *Bot) AlertTriggered(a types.Alert) {
	var current float64
	for _, asset := range b.session.Snapshot().Tracked {
		if asset.ID == a.AssetID {
			current = asset.CurrentPrice
		}
	}
	b.push(commands.CommandAlertTriggered(a, current))
}

// RecommendationIssued pushes a new recommendation to the session chat
func (b *Bot) RecommendationIssued(r types.Recommendation) {
	b.push(commands.CommandAdvice(&r))
}

// SuggestionsReady answers the pending inline query the suggestions belong to
func (b *Bot) SuggestionsReady(query string, suggestions []types.Suggestion) {
	b.mu.Lock()
	pending := b.inline
	if pending.query == query {
		b.inline = pendingInline{}
	}
	b.mu.Unlock()

	if pending.id == "" || pending.query != query {
		return
	}

	inline := tgbotapi.InlineConfig{
		InlineQueryID: pending.id,
		Results:       InlineResults(suggestions),
		CacheTime:     0,
		IsPersonal:    true,
	}
	if _, err := b.Bot.Request(inline); err != nil {
		log.Errorf("failed to answer inline query %q: %v", query, err)
	}
}

// InlineResults turns suggestions into inline articles that send a /search command
func InlineResults(suggestions []types.Suggestion) []interface{} {
	results := make([]interface{}, 0, len(suggestions))
	for _, s := range suggestions {
		article := tgbotapi.NewInlineQueryResultArticle(s.ID, commands.SuggestionLabel(s), "/search "+s.Name)
		article.Description = s.ID
		results = append(results, article)
	}
	return results
}

func (b *Bot) CooldownStarted(message string, endsAt time.Time) {
	b.push(helpers.EscapeMarkdownV2(fmt.Sprintf("%s (%s)", message, endsAt.Format(time.TimeOnly))))
}

func (b *Bot) CooldownEnded() {
	b.push(helpers.EscapeMarkdownV2(translation.Translate("cooldown_ended")))
}

func (b *Bot) push(text string) {
	chatID := b.sessionChat()
	if chatID == 0 {
		log.Debug("no session chat yet, notification dropped")
		return
	}
	if err := b.SendMessage(Message{ChatID: chatID, Text: text}); err != nil {
		log.Error(err)
	}
}
