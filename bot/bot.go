package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"restaurant-order/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sender is the part of the Telegram client the handlers talk to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	client   *tgbotapi.BotAPI
	api      sender
	sessions *services.SessionStore[int64]
	throttle *services.SubmitThrottle

	forms   map[int64]*checkoutForm
	formsMu sync.RWMutex
}

func New(token string, sessions *services.SessionStore[int64]) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	b := newBot(api, sessions)
	b.client = api
	return b, nil
}

func newBot(api sender, sessions *services.SessionStore[int64]) *Bot {
	return &Bot{
		api:      api,
		sessions: sessions,
		throttle: services.NewSubmitThrottle(),
		forms:    make(map[int64]*checkoutForm),
	}
}

// cardMarkup converts OrderCardContent.Buttons to a Telegram inline keyboard.
func cardMarkup(c services.OrderCardContent) *tgbotapi.InlineKeyboardMarkup {
	if len(c.Buttons) == 0 {
		return nil
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range c.Buttons {
		var btns []tgbotapi.InlineKeyboardButton
		for _, btn := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.CallbackData))
		}
		rows = append(rows, btns)
	}
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &kb
}

func (b *Bot) setBotCommands() error {
	cfg := tgbotapi.SetMyCommandsConfig{
		Commands: []tgbotapi.BotCommand{
			{Command: "start", Description: "Show the menu"},
			{Command: "cart", Description: "Checkout"},
			{Command: "cancel", Description: "Back to the menu"},
		},
	}
	_, err := b.api.Request(cfg)
	return err
}

// Start runs the update loop. Updates are handled one at a time.
func (b *Bot) Start() {
	_ = b.setBotCommands()
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.client.GetUpdatesChan(u)

	for update := range updates {
		b.handleUpdate(update)
	}
}

// Stop ends the update loop.
func (b *Bot) Stop() {
	b.client.StopReceivingUpdates()
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(update.CallbackQuery)
		return
	}
	if update.Message == nil || update.Message.Chat == nil {
		return
	}
	msg := update.Message
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "/start" || text == "/menu":
		b.sendMenu(chatID)
	case text == "/cart":
		b.beginCheckout(chatID, 0)
	case text == "/cancel":
		b.back(chatID, 0)
	case msg.Contact != nil:
		b.handleFormInput(chatID, msg.Contact.PhoneNumber)
	default:
		b.handleFormInput(chatID, text)
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send error: %v", err)
	}
}

// showCard edits editMsgID in place when set, otherwise sends a new message.
func (b *Bot) showCard(chatID int64, editMsgID int, content services.OrderCardContent) {
	if editMsgID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, editMsgID, content.Text)
		if kb := cardMarkup(content); kb != nil {
			edit.ReplyMarkup = kb
		}
		_, err := b.api.Send(edit)
		if err == nil || strings.Contains(err.Error(), "not modified") {
			return
		}
		log.Printf("edit error: %v", err)
	}
	msg := tgbotapi.NewMessage(chatID, content.Text)
	if kb := cardMarkup(content); kb != nil {
		msg.ReplyMarkup = *kb
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send error: %v", err)
	}
}

func (b *Bot) session(chatID int64) *services.Session {
	return b.sessions.GetOrCreate(context.Background(), chatID)
}

func (b *Bot) getForm(chatID int64) *checkoutForm {
	b.formsMu.RLock()
	defer b.formsMu.RUnlock()
	return b.forms[chatID]
}

func (b *Bot) setForm(chatID int64, f *checkoutForm) {
	b.formsMu.Lock()
	defer b.formsMu.Unlock()
	if f == nil {
		delete(b.forms, chatID)
		return
	}
	b.forms[chatID] = f
}

func (b *Bot) sendMenu(chatID int64) {
	b.showMenu(chatID, 0)
}

func (b *Bot) showMenu(chatID int64, editMsgID int) {
	s := b.session(chatID)
	b.showCard(chatID, editMsgID, services.BuildMenuCard(s.Menu(), s.MenuError(), s.Cart()))
}

func (b *Bot) handleCallback(cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID
	data := cq.Data
	s := b.session(chatID)

	switch {
	case strings.HasPrefix(data, "qty:"):
		name, delta, ok := services.ParseQtyCallback(data, s.Menu())
		if !ok {
			b.answer(cq.ID, "")
			b.showMenu(chatID, msgID)
			return
		}
		changed, err := s.AdjustQuantity(name, delta)
		if err != nil {
			b.answer(cq.ID, services.StatusFor(err).Message)
			return
		}
		if !changed {
			b.answer(cq.ID, "")
			return
		}
		b.answer(cq.ID, "")
		b.showMenu(chatID, msgID)
	case data == services.CallbackCheckout:
		b.answer(cq.ID, "")
		b.beginCheckout(chatID, msgID)
	case data == services.CallbackBack || data == services.CallbackMenu:
		b.answer(cq.ID, "")
		b.back(chatID, msgID)
	case data == services.CallbackReload:
		if err := s.ReloadMenu(context.Background()); err != nil {
			b.answer(cq.ID, services.StatusFor(err).Message)
			return
		}
		b.answer(cq.ID, "")
		b.showMenu(chatID, msgID)
	case data == services.CallbackSubmit:
		b.submit(cq, s)
	default:
		b.answer(cq.ID, "")
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Printf("callback answer error: %v", err)
	}
}

func (b *Bot) beginCheckout(chatID int64, editMsgID int) {
	s := b.session(chatID)
	changes, err := s.BeginCheckout()
	if err != nil {
		b.send(chatID, services.StatusFor(err).Message)
		if errors.Is(err, services.ErrEmptyCart) {
			b.showMenu(chatID, editMsgID)
		}
		return
	}
	f := b.getForm(chatID)
	if f == nil {
		f = &checkoutForm{}
		b.setForm(chatID, f)
	}
	b.showCard(chatID, editMsgID, services.BuildCheckoutCard(s.Cart(), f.Customer, changes))
	b.askNext(chatID, f)
}

func (b *Bot) back(chatID int64, editMsgID int) {
	s := b.session(chatID)
	if err := s.Back(); err != nil {
		b.send(chatID, services.StatusFor(err).Message)
		return
	}
	b.setForm(chatID, nil)
	b.removeKeyboard(chatID, "Back to the menu.")
	b.showMenu(chatID, editMsgID)
}

// askNext asks the form's current question, offering a contact button for the phone.
func (b *Bot) askNext(chatID int64, f *checkoutForm) {
	q := f.prompt()
	if q == "" {
		return
	}
	msg := tgbotapi.NewMessage(chatID, q)
	if f.Step == stepPhone {
		kb := tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButtonContact("📞 Share phone"),
			),
		)
		kb.OneTimeKeyboard = true
		kb.ResizeKeyboard = true
		msg.ReplyMarkup = kb
	}
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send error: %v", err)
	}
}

func (b *Bot) handleFormInput(chatID int64, input string) {
	f := b.getForm(chatID)
	s := b.session(chatID)
	if f == nil || s.State() != services.StateCheckout {
		b.sendMenu(chatID)
		return
	}
	if !f.accept(input) {
		b.askNext(chatID, f)
		return
	}
	if f.Step != stepReview {
		if f.Step == stepAddress {
			b.removeKeyboard(chatID, "✅")
		}
		b.askNext(chatID, f)
		return
	}
	b.showCard(chatID, 0, services.BuildCheckoutCard(s.Cart(), f.Customer, nil))
}

func (b *Bot) submit(cq *tgbotapi.CallbackQuery, s *services.Session) {
	chatID := cq.Message.Chat.ID
	f := b.getForm(chatID)
	if f == nil {
		b.answer(cq.ID, services.MsgNotInCheckout)
		return
	}
	if wait := b.throttle.WaitSeconds(s.ID); wait > 0 {
		b.answer(cq.ID, fmt.Sprintf("%s (retry in %ds)", services.MsgSubmitFailed, wait))
		return
	}
	b.answer(cq.ID, services.MsgSubmitting)

	// Drop the keyboard so the order cannot be placed twice from this card.
	b.showCard(chatID, cq.Message.MessageID, services.OrderCardContent{Text: cq.Message.Text})

	_, err := s.Submit(context.Background(), f.Customer)
	st := services.StatusFor(err)
	b.send(chatID, st.Message)
	var se *services.SubmissionError
	if errors.As(err, &se) {
		b.throttle.RecordFailure(s.ID)
	}
	if err != nil {
		var ve *services.ValidationError
		if errors.As(err, &ve) {
			*f = checkoutForm{}
			b.askNext(chatID, f)
			return
		}
		if s.State() == services.StateCheckout {
			var changed *services.CartChangedError
			var changes []services.LineChange
			if errors.As(err, &changed) {
				changes = changed.Changes
			}
			b.showCard(chatID, 0, services.BuildCheckoutCard(s.Cart(), f.Customer, changes))
			return
		}
		b.setForm(chatID, nil)
		b.sendMenu(chatID)
		return
	}
	b.throttle.RecordSuccess(s.ID)
	b.setForm(chatID, nil)
	b.sendMenu(chatID)
}

func (b *Bot) removeKeyboard(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("send error: %v", err)
	}
}
