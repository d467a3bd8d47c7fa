package httpapi

import (
	"crypto/subtle"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"whereis/internal/application/service"
)

const HeaderWebhookSecret = "X-Webhook-Secret"

// ChatUpdate is the subset of a bot update this service reads.
type ChatUpdate struct {
	UpdateID int64        `json:"update_id"`
	Message  *ChatMessage `json:"message"`
}

type ChatMessage struct {
	MessageID int64 `json:"message_id"`
	Chat      struct {
		ID int64 `json:"id"`
	} `json:"chat"`
	Text string `json:"text"`
}

// ChatReply is returned inline as the webhook response body so the bot
// platform delivers it without a second API call.
type ChatReply struct {
	Method    string `json:"method"`
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type ChatOptions struct {
	Secret    string
	ParseMode string
}

type ChatHandler struct {
	resolver PositionResolver
	linker   Linker
	opts     ChatOptions
	now      func() time.Time
}

func NewChatHandler(resolver PositionResolver, linker Linker, opts ChatOptions, now func() time.Time) *ChatHandler {
	if now == nil {
		now = time.Now
	}
	return &ChatHandler{resolver: resolver, linker: linker, opts: opts, now: now}
}

// HandleWebhook decodes one chat update, resolves the asset named in the
// message text and answers with a sendMessage body.
func (h *ChatHandler) HandleWebhook(c echo.Context) error {
	if h.opts.Secret != "" {
		got := c.Request().Header.Get(HeaderWebhookSecret)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.opts.Secret)) != 1 {
			return RespondWithError(c, NewUnauthorizedError())
		}
	}

	var update ChatUpdate
	if err := c.Bind(&update); err != nil {
		return RespondWithError(c, NewBadRequestError("invalid update body", err))
	}
	if update.Message == nil {
		return c.NoContent(http.StatusOK)
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" || strings.HasPrefix(text, "/") {
		return c.NoContent(http.StatusOK)
	}

	chatID := update.Message.Chat.ID
	assetID, err := NormalizeAssetID(text)
	if err != nil {
		return c.JSON(http.StatusOK, h.reply(chatID, "Send a tracker id: "+err.Error()+"."))
	}

	now := h.now()
	res := h.resolver.Resolve(c.Request().Context(), assetID, now)

	var links *service.MapLinks
	if res.Found && h.linker != nil {
		l := h.linker.Links(res.Position)
		links = &l
	}

	log.Info().
		Int64("chat", chatID).
		Str("asset", assetID).
		Str("source", res.Source.String()).
		Msg("chat lookup")

	return c.JSON(http.StatusOK, h.reply(chatID, service.FormatReply(res, links, now)))
}

func (h *ChatHandler) reply(chatID int64, text string) ChatReply {
	if h.opts.ParseMode == "HTML" {
		text = html.EscapeString(text)
	}
	return ChatReply{
		Method:    "sendMessage",
		ChatID:    chatID,
		Text:      text,
		ParseMode: h.opts.ParseMode,
	}
}
