package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-api/domain/chat"
	"chat-api/errors"
	"chat-api/events"
	"chat-api/moderation"
	"chat-api/repositories"
)

func newTestChatService(t *testing.T, censoredWords []string) (*ChatService, *events.Bus) {
	t.Helper()
	req := require.New(t)

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)
	t.Cleanup(func() { _ = writer.Close() })

	log := slog.Default()
	moderator, err := moderation.NewModerator(censoredWords, '*', log)
	req.NoError(err)

	bus := events.NewBus(log, 4, nil)
	service := NewChatService(
		repositories.NewMessageRepository(db, log, nil),
		repositories.NewSearchRepository(writer, log, nil),
		bus,
		moderator,
		log,
	)
	return service, bus
}

func Test_Post_Then_List_Message(t *testing.T) {
	req := require.New(t)
	service, _ := newTestChatService(t, nil)

	posted, err := service.PostMessage(context.Background(), chat.PostMessageCommand{
		UserID: "u1", Text: "hi", CreatedAt: time.Now(),
	})
	req.NoError(err)
	req.Equal("u1", posted.From)
	req.Equal("hi", posted.Text)
	req.NotZero(posted.ID)

	listed, err := service.ListMessages(context.Background())
	req.NoError(err)
	req.Len(listed, 1)
	req.Equal(posted, listed[0])
}

func Test_Post_Publishes_After_Store(t *testing.T) {
	req := require.New(t)
	service, bus := newTestChatService(t, nil)

	deliver := bus.Subscribe(context.Background(), events.TopicMessageAdded)

	posted, err := service.PostMessage(context.Background(), chat.PostMessageCommand{
		UserID: "alice", Text: "hello", CreatedAt: time.Now(),
	})
	req.NoError(err)

	received := <-deliver
	req.Equal(posted, received)

	// The published message is already retrievable from the store.
	listed, err := service.ListMessages(context.Background())
	req.NoError(err)
	req.Contains(listed, received)
}

func Test_Post_Censors_Before_Store_And_Publish(t *testing.T) {
	req := require.New(t)
	service, bus := newTestChatService(t, []string{"badger"})

	deliver := bus.Subscribe(context.Background(), events.TopicMessageAdded)

	posted, err := service.PostMessage(context.Background(), chat.PostMessageCommand{
		UserID: "alice", Text: "release the badger", CreatedAt: time.Now(),
	})
	req.NoError(err)
	req.Equal("release the ******", posted.Text)
	req.Equal("release the ******", (<-deliver).Text)

	listed, err := service.ListMessages(context.Background())
	req.NoError(err)
	req.Equal("release the ******", listed[0].Text)
}

func Test_Post_Empty_Text_Rejected(t *testing.T) {
	req := require.New(t)
	service, _ := newTestChatService(t, nil)

	_, err := service.PostMessage(context.Background(), chat.PostMessageCommand{
		UserID: "alice", Text: "   ", CreatedAt: time.Now(),
	})
	req.ErrorIs(err, errors.ErrEmptyMessage)
}

func Test_Post_Detects_Language(t *testing.T) {
	req := require.New(t)
	service, _ := newTestChatService(t, nil)

	posted, err := service.PostMessage(context.Background(), chat.PostMessageCommand{
		UserID: "alice", Text: "the quick brown fox jumps over the lazy dog", CreatedAt: time.Now(),
	})
	req.NoError(err)
	req.Equal("eng", posted.Lang)
}

func Test_Search_Finds_Posted_Message(t *testing.T) {
	req := require.New(t)
	service, _ := newTestChatService(t, nil)

	posted, err := service.PostMessage(context.Background(), chat.PostMessageCommand{
		UserID: "alice", Text: "quarterly invoice attached", CreatedAt: time.Now(),
	})
	req.NoError(err)

	hits, err := service.SearchMessages(context.Background(), "invoice")
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(posted.ID, hits[0].ID)
}
