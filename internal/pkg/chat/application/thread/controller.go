// Package thread keeps the live state of the conversation a websocket session
// is looking at.
package thread

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	pubsub "kala-setu/internal/infrastructure/pubsub/port"
	translation "kala-setu/internal/infrastructure/translation/port"
	chat "kala-setu/internal/pkg/chat/application/domain"
	"kala-setu/internal/pkg/chat/application/event"
	"kala-setu/internal/pkg/chat/application/usecase"
)

// State is the lifecycle of the active conversation's subscription.
type State int

const (
	StateClosed State = iota
	StateSubscribing
	StateActive
)

func (s State) String() string {
	switch s {
	case StateSubscribing:
		return "subscribing"
	case StateActive:
		return "active"
	}
	return "closed"
}

var (
	ErrNotOpen = errors.New("thread: no conversation open")
	// ErrSuperseded is returned by Open when another Open or Close won the race.
	ErrSuperseded = errors.New("thread: open superseded")
)

// Kind tags an Update.
type Kind string

const (
	KindOpened      Kind = "opened"
	KindMessage     Kind = "message"
	KindTranslation Kind = "translation"
	KindClosed      Kind = "closed"
)

// Update is emitted to the Sink every time the visible thread changes.
// Opened carries the merged history; Message and Translation carry one message.
type Update struct {
	Kind           Kind
	ConversationID string
	Conversation   *chat.Conversation
	Messages       []chat.Message
	Message        *chat.Message
}

// Sink receives updates in state order. It is called with the controller lock
// held, so it must not block and must not call back into the controller.
type Sink func(Update)

// Deps are the collaborators of a Controller.
type Deps struct {
	Join       *usecase.JoinConversationUseCase
	History    *usecase.FetchHistoryUseCase
	Send       *usecase.SendMessageUseCase
	Translator translation.Translator
	Feed       pubsub.Feed
	Log        *zap.Logger
}

// Controller holds one viewer's active conversation: an ordered list of
// messages without duplicate IDs, kept current by the realtime feed.
//
// Every Open, Close and language change bumps a generation counter. Pushes
// and translation results carry the generation they were started under and
// are dropped when it no longer matches.
type Controller struct {
	viewerID string
	deps     Deps
	log      *zap.Logger
	sink     Sink
	base     context.Context

	mu       sync.Mutex
	state    State
	lang     chat.Language
	gen      uint64
	conv     *chat.Conversation
	messages []chat.Message
	index    map[string]int
	sub      pubsub.Subscription
	openCtx  context.Context
	cancel   context.CancelFunc

	wg sync.WaitGroup
}

// New creates a closed controller. base bounds every background goroutine the
// controller starts; lang is the viewer's language read when the session began.
func New(base context.Context, viewerID string, lang chat.Language, deps Deps, sink Sink) *Controller {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	if sink == nil {
		sink = func(Update) {}
	}
	return &Controller{
		viewerID: viewerID,
		deps:     deps,
		log:      log.With(zap.String("viewer_id", viewerID)),
		sink:     sink,
		base:     base,
		lang:     lang,
	}
}

// Open makes conversationID the active conversation. The subscription is
// established before history is read, so inserts committed during the read
// arrive as pushes and are deduplicated against the history.
func (c *Controller) Open(ctx context.Context, conversationID string) error {
	c.mu.Lock()
	c.closeLocked()
	c.state = StateSubscribing
	gen := c.gen
	lang := c.lang
	c.mu.Unlock()

	conv, err := c.deps.Join.Execute(ctx, usecase.JoinConversationInput{
		ConversationID: conversationID,
		UserID:         c.viewerID,
		Language:       lang,
	})
	if err != nil {
		c.abandon(gen)
		return err
	}

	sub, err := c.deps.Feed.Subscribe(ctx, event.ConversationTopic(conversationID))
	if err != nil {
		c.abandon(gen)
		return err
	}

	history, err := c.deps.History.Execute(ctx, usecase.FetchHistoryInput{
		ConversationID: conversationID,
		UserID:         c.viewerID,
	})
	if err != nil {
		_ = sub.Close()
		c.abandon(gen)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		_ = sub.Close()
		return ErrSuperseded
	}

	openCtx, cancel := context.WithCancel(c.base)
	c.conv = conv
	c.sub = sub
	c.openCtx = openCtx
	c.cancel = cancel
	c.messages = make([]chat.Message, 0, len(history))
	c.index = make(map[string]int, len(history))
	for _, m := range history {
		c.insertLocked(m)
	}
	c.state = StateActive

	c.sink(Update{
		Kind:           KindOpened,
		ConversationID: conv.ID,
		Conversation:   conv,
		Messages:       c.snapshotLocked(),
	})
	for _, m := range c.messages {
		c.translateLocked(gen, m)
	}

	c.wg.Add(1)
	go c.pump(gen, conv.ID, sub)
	return nil
}

// Close releases the active conversation, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// Shutdown closes the controller and waits for its goroutines.
func (c *Controller) Shutdown() {
	c.Close()
	c.wg.Wait()
}

// Send posts content into the active conversation and merges the stored row.
// The realtime echo of the same row is discarded as a duplicate.
func (c *Controller) Send(ctx context.Context, content string) (*chat.Message, error) {
	c.mu.Lock()
	if c.state != StateActive || c.conv == nil {
		c.mu.Unlock()
		return nil, ErrNotOpen
	}
	gen := c.gen
	convID := c.conv.ID
	c.mu.Unlock()

	saved, err := c.deps.Send.Execute(ctx, usecase.SendMessageInput{
		ConversationID: convID,
		SenderID:       c.viewerID,
		Content:        content,
	})
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.addLocked(gen, *saved)
	}
	return saved, nil
}

// SetLanguage switches the viewer's language. An open conversation is
// re-opened so history is re-translated into the new language.
func (c *Controller) SetLanguage(ctx context.Context, lang chat.Language) error {
	c.mu.Lock()
	c.lang = lang
	convID := ""
	if c.conv != nil {
		convID = c.conv.ID
	}
	c.mu.Unlock()

	if convID == "" {
		return nil
	}
	return c.Open(ctx, convID)
}

func (c *Controller) Language() chat.Language {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lang
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ConversationID returns the active conversation, or "" when closed.
func (c *Controller) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conv == nil {
		return ""
	}
	return c.conv.ID
}

// Messages returns a copy of the active thread.
func (c *Controller) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) pump(gen uint64, convID string, sub pubsub.Subscription) {
	defer c.wg.Done()
	for payload := range sub.Events() {
		e, err := event.Decode(payload)
		if err != nil {
			c.log.Warn("dropping malformed push", zap.String("conversation_id", convID), zap.Error(err))
			continue
		}
		if e.Type != event.TypeInsert || e.Record.ConversationID != convID {
			continue
		}
		c.mu.Lock()
		if c.gen == gen {
			c.addLocked(gen, *e.Record)
		}
		c.mu.Unlock()
	}
}

// addLocked merges one live message and announces it.
func (c *Controller) addLocked(gen uint64, m chat.Message) {
	if !c.insertLocked(m) {
		return
	}
	stored := c.messages[c.index[m.ID]]
	c.sink(Update{Kind: KindMessage, ConversationID: c.conv.ID, Message: &stored})
	c.translateLocked(gen, stored)
}

// insertLocked appends m unless its ID is already present.
func (c *Controller) insertLocked(m chat.Message) bool {
	if _, dup := c.index[m.ID]; dup {
		return false
	}
	c.index[m.ID] = len(c.messages)
	c.messages = append(c.messages, m)
	return true
}

func (c *Controller) needsTranslation(m chat.Message) bool {
	return m.SenderID != c.viewerID && c.lang.IsSet() && c.lang != chat.DefaultLanguage
}

// translateLocked renders an inbound message in the viewer's language off the
// lock. The original stays visible until the result lands.
func (c *Controller) translateLocked(gen uint64, m chat.Message) {
	if c.deps.Translator == nil || !c.needsTranslation(m) {
		return
	}
	ctx := c.openCtx
	convID := c.conv.ID
	target := c.lang.String()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		out := c.deps.Translator.Translate(ctx, m.Content, chat.DefaultLanguage.String(), target)
		if ctx.Err() != nil {
			return
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen || c.conv == nil || c.conv.ID != convID {
			return
		}
		i, ok := c.index[m.ID]
		if !ok {
			return
		}
		c.messages[i] = c.messages[i].WithTranslation(out)
		updated := c.messages[i]
		c.sink(Update{Kind: KindTranslation, ConversationID: convID, Message: &updated})
	}()
}

func (c *Controller) abandon(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.state = StateClosed
	}
}

func (c *Controller) closeLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
		c.openCtx = nil
	}
	if c.sub != nil {
		if err := c.sub.Close(); err != nil {
			c.log.Warn("closing subscription", zap.Error(err))
		}
		c.sub = nil
	}
	wasOpen := c.conv != nil
	convID := ""
	if wasOpen {
		convID = c.conv.ID
	}
	c.conv = nil
	c.messages = nil
	c.index = nil
	c.state = StateClosed
	if wasOpen {
		c.sink(Update{Kind: KindClosed, ConversationID: convID})
	}
}

func (c *Controller) snapshotLocked() []chat.Message {
	out := make([]chat.Message, len(c.messages))
	copy(out, c.messages)
	return out
}
