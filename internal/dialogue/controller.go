package dialogue

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"botmesero-backend/internal/catalog"
	"botmesero-backend/internal/models"
)

const (
	ApologyMessage         = "Lo siento, algo salió mal al procesar tu solicitud."
	NoCategoriesMessage    = "No hay categorías disponibles."
	NoProductsMessage      = "No hay productos disponibles en esta categoría."
	NoMostOrderedMessage   = "No se encontró información sobre el producto más pedido."
	SelectCategoryMessage  = "Selecciona una categoría:"
	SelectProductMessage   = "Selecciona un producto:"
	mostOrderedMessageTmpl = "El producto más pedido es %s a un precio de $%s."
)

type MenuRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListProducts(ctx context.Context, categoryID int64) ([]models.Product, error)
	MostOrderedProduct(ctx context.Context) (*models.Product, error)
}

type HistoryStore interface {
	Append(ctx context.Context, chatID string, turn models.Turn) error
	History(ctx context.Context, chatID string) ([]models.Turn, error)
}

// Completer produces the assistant's next turn for a chat history. The
// system prompt is the implementation's concern.
type Completer interface {
	Complete(ctx context.Context, history []models.Turn) (string, error)
}

type Options struct {
	BotName  string
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

// Controller decides which screen or model reply answers an inbound event.
type Controller struct {
	catalog *catalog.Catalog
	menu    MenuRepository
	history HistoryStore
	llm     Completer
	locks   *chatLocks

	botName string
	loc     *time.Location
	now     func() time.Time
	log     *slog.Logger
}

func NewController(cat *catalog.Catalog, menu MenuRepository, history HistoryStore, llm Completer, opts Options) *Controller {
	c := &Controller{
		catalog: cat,
		menu:    menu,
		history: history,
		llm:     llm,
		locks:   newChatLocks(),
		botName: opts.BotName,
		loc:     opts.Location,
		now:     opts.Now,
		log:     opts.Logger,
	}
	if c.botName == "" {
		c.botName = "BotMesero"
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Handle dispatches an event by kind.
func (c *Controller) Handle(ctx context.Context, ev Event, r Renderer) error {
	switch ev.Kind {
	case EventStart:
		return c.OnStart(ctx, ev, r)
	case EventButton:
		return c.OnButton(ctx, ev, r)
	case EventText:
		return c.OnText(ctx, ev, r)
	default:
		c.eventLogger(ev).Warn("unsupported event kind")
		return nil
	}
}

func (c *Controller) eventLogger(ev Event) *slog.Logger {
	return c.log.With("event_id", ev.ID, "chat_id", ev.ChatID, "kind", string(ev.Kind))
}

// OnStart greets the user and shows the main menu.
func (c *Controller) OnStart(ctx context.Context, ev Event, r Renderer) error {
	log := c.eventLogger(ev)
	if ev.ChatID == "" {
		log.Warn("event has neither a message nor a callback origin")
		return nil
	}
	log.Info("handling start")

	greeting := c.catalog.Render("greeting_message", map[string]string{
		"user_first_name": escapeMarkdown(ev.UserName),
		"chat_id":         "`" + ev.ChatID + "`",
		"greeting":        Greeting(c.now().In(c.loc).Hour()),
		"bot_name":        escapeMarkdown(c.botName),
	})
	if err := r.RenderMarkdown(ctx, greeting); err != nil {
		return fmt.Errorf("render greeting: %w", err)
	}
	return r.RenderButtons(ctx, c.catalog.Text("menu_message"), mainMenuKeyboard())
}

// OnButton answers a button press identified by its callback token.
func (c *Controller) OnButton(ctx context.Context, ev Event, r Renderer) error {
	log := c.eventLogger(ev)
	if a, ok := r.(Acknowledger); ok {
		if err := a.Acknowledge(ctx); err != nil {
			log.Warn("failed to acknowledge callback", "error", err)
		}
	}
	token := ev.Data
	log.Info("callback data received", "token", token)

	switch {
	case token == TokenMenu || token == TokenReturnCategories:
		return c.showCategories(ctx, r)
	case strings.HasPrefix(token, TokenCategoryPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(token, TokenCategoryPrefix), 10, 64)
		if err != nil {
			log.Warn("malformed category token", "token", token)
			return nil
		}
		return c.showProducts(ctx, r, id)
	case strings.HasPrefix(token, TokenProductPrefix):
		log.Debug("product selected", "token", token)
		return nil
	case token == TokenOrderHelp:
		return r.RenderButtons(ctx, c.catalog.Text("pedido_response"), single(backToStart))
	case token == TokenFAQ || token == TokenReturnFAQ:
		return r.RenderButtons(ctx, c.catalog.Text("other_questions_message"), faqKeyboard())
	case faqLeaves[token]:
		return r.RenderButtons(ctx, c.catalog.Text(token+"_response"), single(backToFAQ))
	case token == TokenMostOrdered:
		return c.showMostOrdered(ctx, r)
	case token == TokenReturnStart:
		return c.OnStart(ctx, ev, r)
	default:
		log.Warn("unknown callback token", "token", token)
		return nil
	}
}

// OnText routes menu and most-ordered questions to their screens and sends
// everything else to the model with the chat's history.
func (c *Controller) OnText(ctx context.Context, ev Event, r Renderer) error {
	log := c.eventLogger(ev)
	log.Info("received message from user", "length", len(ev.Text))

	switch detectTextIntent(ev.Text) {
	case intentMenu:
		return c.showCategories(ctx, r)
	case intentMostOrdered:
		return c.showMostOrdered(ctx, r)
	}

	if ev.ChatID == "" {
		log.Warn("text event without chat id")
		return nil
	}
	unlock := c.locks.lock(ev.ChatID)
	defer unlock()

	if err := c.history.Append(ctx, ev.ChatID, models.Turn{Role: models.RoleUser, Content: ev.Text}); err != nil {
		return fmt.Errorf("append user turn: %w", err)
	}
	turns, err := c.history.History(ctx, ev.ChatID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	reply, err := c.llm.Complete(ctx, turns)
	if err != nil {
		log.Error("error generating response", "error", err)
		return r.RenderText(ctx, ApologyMessage)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		log.Error("error generating response", "error", "empty completion")
		return r.RenderText(ctx, ApologyMessage)
	}
	if err := c.history.Append(ctx, ev.ChatID, models.Turn{Role: models.RoleAssistant, Content: reply}); err != nil {
		return fmt.Errorf("append assistant turn: %w", err)
	}
	return r.RenderText(ctx, reply)
}

var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

// escapeMarkdown quotes user-supplied text for Telegram's legacy Markdown.
func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func (c *Controller) showCategories(ctx context.Context, r Renderer) error {
	categories, err := c.menu.ListCategories(ctx)
	if err != nil {
		return err
	}
	c.log.Debug("found categories", "count", len(categories))
	if len(categories) == 0 {
		return r.RenderText(ctx, NoCategoriesMessage)
	}
	return r.RenderButtons(ctx, SelectCategoryMessage, categoriesKeyboard(categories))
}

func (c *Controller) showProducts(ctx context.Context, r Renderer, categoryID int64) error {
	products, err := c.menu.ListProducts(ctx, categoryID)
	if err != nil {
		return err
	}
	c.log.Debug("found products", "category_id", categoryID, "count", len(products))
	if len(products) == 0 {
		return r.RenderText(ctx, NoProductsMessage)
	}
	return r.RenderButtons(ctx, SelectProductMessage, productsKeyboard(products))
}

func (c *Controller) showMostOrdered(ctx context.Context, r Renderer) error {
	p, err := c.menu.MostOrderedProduct(ctx)
	if err != nil {
		return err
	}
	text := NoMostOrderedMessage
	if p != nil {
		text = fmt.Sprintf(mostOrderedMessageTmpl, p.Name, p.DisplayPrice())
	}
	return r.RenderButtons(ctx, text, single(backToFAQ))
}
