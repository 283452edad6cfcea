package bot

import (
	"context"
	"strings"
	"sync"
	"testing"

	"restaurant-order/models"
	"restaurant-order/services"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatID int64 = 42

// recordingAPI keeps everything the bot sends instead of calling Telegram.
type recordingAPI struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (r *recordingAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, c)
	return tgbotapi.Message{}, nil
}

func (r *recordingAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// texts returns the visible text of every message, edit and callback answer.
func (r *recordingAPI) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			out = append(out, m.Text)
		case tgbotapi.EditMessageTextConfig:
			out = append(out, m.Text)
		case tgbotapi.CallbackConfig:
			out = append(out, m.Text)
		}
	}
	return out
}

func (r *recordingAPI) edits() []tgbotapi.EditMessageTextConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tgbotapi.EditMessageTextConfig
	for _, c := range r.sent {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingAPI) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

func containsText(texts []string, sub string) bool {
	for _, t := range texts {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}

type orderSink struct {
	mu       sync.Mutex
	payloads []models.OrderPayload
}

func (o *orderSink) SubmitOrder(ctx context.Context, p models.OrderPayload) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.payloads = append(o.payloads, p)
	return nil
}

type switchableMenu struct {
	mu    sync.Mutex
	items []models.MenuItem
}

func (m *switchableMenu) LoadMenu(ctx context.Context) (*services.Menu, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return services.NewMenu(m.items), nil
}

func (m *switchableMenu) set(items []models.MenuItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
}

func newTestBot(t *testing.T, menu services.MenuSource) (*Bot, *recordingAPI, *orderSink) {
	t.Helper()
	api := &recordingAPI{}
	sink := &orderSink{}
	store := services.NewSessionStore[int64](services.Deps{
		Menu:      menu,
		Submitter: sink,
		Record:    func(context.Context, models.SubmittedOrder) error { return nil },
	}, services.StoreOptions{})
	return newBot(api, store), api, sink
}

func textUpdate(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
	}}
}

func callbackUpdate(msgID int, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: msgID,
			Chat:      &tgbotapi.Chat{ID: chatID},
			Text:      "card",
		},
	}}
}

func (b *Bot) testSession(t *testing.T) *services.Session {
	t.Helper()
	s, ok := b.sessions.Get(chatID)
	require.True(t, ok)
	return s
}

func TestCheckoutForm_Steps(t *testing.T) {
	f := &checkoutForm{}
	assert.NotEmpty(t, f.prompt())

	assert.False(t, f.accept("   "), "blank name is rejected")
	assert.Equal(t, stepName, f.Step)

	require.True(t, f.accept(" Ann "))
	require.True(t, f.accept("555-1234"))
	require.True(t, f.accept("1 Main St"))

	assert.Equal(t, stepReview, f.Step)
	assert.Empty(t, f.prompt())
	assert.Equal(t, "Ann", f.Customer.Name)
	assert.Equal(t, "555-1234", f.Customer.Phone)
	assert.Equal(t, "1 Main St", f.Customer.Address)
	assert.NoError(t, services.ValidateCustomer(f.Customer))

	assert.False(t, f.accept("extra"), "nothing left to fill")
}

func TestCardMarkup(t *testing.T) {
	if cardMarkup(services.OrderCardContent{Text: "x"}) != nil {
		t.Errorf("cardMarkup(no buttons) = non-nil, want nil")
	}

	c := services.OrderCardContent{
		Text: "x",
		Buttons: [][]services.OrderCardButton{
			{{Text: "−", CallbackData: "qty:0:a:-1"}, {Text: "+", CallbackData: "qty:0:a:+1"}},
			{{Text: "✅ Checkout", CallbackData: services.CallbackCheckout}},
		},
	}
	kb := cardMarkup(c)
	require.NotNil(t, kb)
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Len(t, kb.InlineKeyboard[0], 2)
	require.NotNil(t, kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, services.CallbackCheckout, *kb.InlineKeyboard[1][0].CallbackData)
}

func TestBot_QtyCallbackEditsMenu(t *testing.T) {
	b, api, _ := newTestBot(t, services.DefaultStaticMenu())

	b.handleUpdate(callbackUpdate(7, services.QtyCallback(0, "Margherita Pizza", 1)))
	b.handleUpdate(callbackUpdate(7, services.QtyCallback(0, "Margherita Pizza", 1)))

	lines := b.testSession(t).Cart().Lines
	require.Len(t, lines, 1)
	assert.Equal(t, models.CartLine{ItemName: "Margherita Pizza", Quantity: 2, UnitPrice: 12}, lines[0])

	edits := api.edits()
	require.Len(t, edits, 2)
	assert.Equal(t, 7, edits[1].MessageID)
	assert.Contains(t, edits[1].Text, "Margherita Pizza")
}

func TestBot_StaleKeyboardLeavesCart(t *testing.T) {
	b, api, _ := newTestBot(t, services.DefaultStaticMenu())

	// Index 0 is the pizza, not the burger the button was rendered for.
	b.handleUpdate(callbackUpdate(7, services.QtyCallback(0, "Chicken Burger", 1)))
	b.handleUpdate(callbackUpdate(7, "qty:garbage"))

	assert.Empty(t, b.testSession(t).Cart().Lines)
	assert.Len(t, api.edits(), 2, "the menu is redrawn from the current snapshot")
}

func TestBot_QtyCallbackDuringCheckout(t *testing.T) {
	b, api, _ := newTestBot(t, services.DefaultStaticMenu())
	b.handleUpdate(callbackUpdate(7, services.QtyCallback(0, "Margherita Pizza", 1)))
	b.handleUpdate(callbackUpdate(7, services.CallbackCheckout))
	api.reset()

	b.handleUpdate(callbackUpdate(7, services.QtyCallback(1, "Chicken Burger", 1)))

	assert.Len(t, b.testSession(t).Cart().Lines, 1)
	assert.Equal(t, []string{services.MsgCheckoutOpen}, api.texts())
}

func TestBot_CheckoutFormAndSubmit(t *testing.T) {
	b, api, sink := newTestBot(t, services.DefaultStaticMenu())

	b.handleUpdate(textUpdate("/start"))
	b.handleUpdate(callbackUpdate(7, services.QtyCallback(0, "Margherita Pizza", 2)))
	b.handleUpdate(callbackUpdate(7, services.CallbackCheckout))
	require.NotNil(t, b.getForm(chatID))
	assert.True(t, containsText(api.texts(), "What name"))

	b.handleUpdate(textUpdate("Ann"))
	b.handleUpdate(textUpdate("555-1234"))
	b.handleUpdate(textUpdate("1 Main St"))
	assert.Equal(t, stepReview, b.getForm(chatID).Step)

	api.reset()
	b.handleUpdate(callbackUpdate(8, services.CallbackSubmit))

	require.Len(t, sink.payloads, 1)
	assert.Equal(t, models.OrderPayload{
		Name:    "Ann",
		Phone:   "555-1234",
		Address: "1 Main St",
		Items:   "Margherita Pizza (x2)",
	}, sink.payloads[0])
	assert.Nil(t, b.getForm(chatID))
	assert.Equal(t, services.StateBrowsing, b.testSession(t).State())
	assert.True(t, containsText(api.texts(), services.MsgOrderSubmitted))
}

func TestBot_SubmitWithMissingFieldsRestartsForm(t *testing.T) {
	b, api, sink := newTestBot(t, services.DefaultStaticMenu())
	b.handleUpdate(callbackUpdate(7, services.QtyCallback(0, "Margherita Pizza", 1)))
	b.handleUpdate(callbackUpdate(7, services.CallbackCheckout))
	b.handleUpdate(textUpdate("Ann"))
	api.reset()

	b.handleUpdate(callbackUpdate(8, services.CallbackSubmit))

	assert.Empty(t, sink.payloads)
	f := b.getForm(chatID)
	require.NotNil(t, f)
	assert.Equal(t, stepName, f.Step)
	assert.Empty(t, f.Customer.Name)
	assert.Equal(t, services.StateCheckout, b.testSession(t).State())
	assert.True(t, containsText(api.texts(), services.MsgFillFields+"phone, address"))
	assert.True(t, containsText(api.texts(), "What name"))
}

func TestBot_SubmitAfterMenuChange(t *testing.T) {
	menu := &switchableMenu{items: []models.MenuItem{{Name: "Margherita Pizza", Price: 12, QuantityAvailable: 5}}}
	b, api, sink := newTestBot(t, menu)
	b.handleUpdate(callbackUpdate(7, services.QtyCallback(0, "Margherita Pizza", 2)))
	b.handleUpdate(callbackUpdate(7, services.CallbackCheckout))
	for _, in := range []string{"Ann", "555-1234", "1 Main St"} {
		b.handleUpdate(textUpdate(in))
	}

	menu.set([]models.MenuItem{{Name: "Margherita Pizza", Price: 50, QuantityAvailable: 5}})
	require.NoError(t, b.testSession(t).ReloadMenu(context.Background()))
	api.reset()

	b.handleUpdate(callbackUpdate(8, services.CallbackSubmit))
	assert.Empty(t, sink.payloads)
	assert.Equal(t, services.StateCheckout, b.testSession(t).State())
	assert.True(t, containsText(api.texts(), "$100.00"), "the updated checkout card is shown")

	b.handleUpdate(callbackUpdate(9, services.CallbackSubmit))
	require.Len(t, sink.payloads, 1)
	assert.Equal(t, "Margherita Pizza (x2)", sink.payloads[0].Items)
}
