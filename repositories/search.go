package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"chat-api/domain/chat"
)

const defaultSearchLimit = 25

type ISearchRepository interface {
	IndexMessage(message chat.Message) error
	SearchMessages(ctx context.Context, terms string) ([]chat.Message, error)
}

// SearchRepository maintains a Bluge full-text index over message text.
// Every field is stored so hits can be rebuilt without a second store read.
type SearchRepository struct {
	writer *bluge.Writer
	log    *slog.Logger
	limit  *int
}

func NewSearchRepository(writer *bluge.Writer, log *slog.Logger, limit *int) *SearchRepository {
	return &SearchRepository{writer: writer, log: log, limit: limit}
}

func (s *SearchRepository) IndexMessage(message chat.Message) error {
	doc := bluge.NewDocument(message.ID.String()).
		AddField(bluge.NewTextField("text", message.Text).StoreValue()).
		AddField(bluge.NewKeywordField("from", message.From).StoreValue()).
		AddField(bluge.NewKeywordField("lang", message.Lang).StoreValue()).
		AddField(bluge.NewKeywordField("created_at", message.CreatedAt.UTC().Format(time.RFC3339Nano)).StoreValue())
	return s.writer.Update(doc.ID(), doc)
}

// SearchMessages runs a match query against the message text and rebuilds
// each hit from its stored fields.
func (s *SearchRepository) SearchMessages(ctx context.Context, terms string) ([]chat.Message, error) {
	reader, err := s.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	limit := defaultSearchLimit
	if s.limit != nil {
		limit = *s.limit
	}

	query := bluge.NewMatchQuery(terms).SetField("text")
	request := bluge.NewTopNSearch(limit, query)

	iterator, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}

	var messages []chat.Message
	match, err := iterator.Next()
	for err == nil && match != nil {
		var message chat.Message
		visitErr := match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				if id, parseErr := uuid.Parse(string(value)); parseErr == nil {
					message.ID = id
				}
			case "text":
				message.Text = string(value)
			case "from":
				message.From = string(value)
			case "lang":
				message.Lang = string(value)
			case "created_at":
				if at, parseErr := time.Parse(time.RFC3339Nano, string(value)); parseErr == nil {
					message.CreatedAt = at
				}
			}
			return true
		})
		if visitErr != nil {
			return nil, visitErr
		}
		messages = append(messages, message)
		match, err = iterator.Next()
	}
	if err != nil {
		return nil, err
	}
	return messages, nil
}
