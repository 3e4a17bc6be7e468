package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"

	"chat-api/domain/chat"
	"chat-api/errors"
	"chat-api/events"
	"chat-api/moderation"
	"chat-api/repositories"
)

type IChatService interface {
	PostMessage(ctx context.Context, cmd chat.PostMessageCommand) (chat.Message, error)
	ListMessages(ctx context.Context) ([]chat.Message, error)
	SearchMessages(ctx context.Context, terms string) ([]chat.Message, error)
}

type ChatService struct {
	messages  repositories.IMessageRepository
	search    repositories.ISearchRepository
	bus       *events.Bus
	moderator moderation.Moderator
	log       *slog.Logger
}

func NewChatService(
	messages repositories.IMessageRepository,
	search repositories.ISearchRepository,
	bus *events.Bus,
	moderator moderation.Moderator,
	log *slog.Logger,
) *ChatService {
	return &ChatService{
		messages:  messages,
		search:    search,
		bus:       bus,
		moderator: moderator,
		log:       log,
	}
}

// PostMessage censors, stores, indexes, and finally publishes the message.
// The publish happens strictly after the store write, so a subscriber that
// observes the event can trust the message is already stored.
func (s *ChatService) PostMessage(_ context.Context, cmd chat.PostMessageCommand) (chat.Message, error) {
	if strings.TrimSpace(cmd.Text) == "" {
		return chat.Message{}, errors.ErrEmptyMessage
	}

	text := s.moderator.Censor(cmd.Text)
	message := chat.Message{
		ID:        uuid.New(),
		From:      cmd.UserID,
		Text:      text,
		Lang:      detectLang(text),
		CreatedAt: cmd.CreatedAt.UTC(),
	}

	if err := s.messages.StoreMessage(message); err != nil {
		return chat.Message{}, err
	}
	if err := s.search.IndexMessage(message); err != nil {
		// The message is already stored; a failed index write should not
		// hide it from subscribers.
		s.log.Warn("message indexing failed", "message_id", message.ID, "error", err)
	}

	s.bus.Publish(events.TopicMessageAdded, message)
	return message, nil
}

func (s *ChatService) ListMessages(_ context.Context) ([]chat.Message, error) {
	return s.messages.GetMessages()
}

func (s *ChatService) SearchMessages(ctx context.Context, terms string) ([]chat.Message, error) {
	return s.search.SearchMessages(ctx, terms)
}

// detectLang reports the ISO 639-3 code of the message text, "und" when
// detection has nothing to work with.
func detectLang(text string) string {
	info := whatlanggo.Detect(text)
	if lang := whatlanggo.LangToString(info.Lang); lang != "" {
		return lang
	}
	return "und"
}
