// Package graph defines the GraphQL schema and resolvers. The schema is
// built code-first; resolvers enforce the single authorization rule of
// this system: any non-empty authenticated user id is sufficient.
package graph

import (
	"log/slog"
	"time"

	"github.com/graphql-go/graphql"

	"chat-api/auth"
	"chat-api/domain/chat"
	"chat-api/errors"
	"chat-api/events"
	"chat-api/services"
)

type Resolver struct {
	chat services.IChatService
	bus  *events.Bus
	log  *slog.Logger
}

func NewResolver(chatService services.IChatService, bus *events.Bus, log *slog.Logger) *Resolver {
	return &Resolver{chat: chatService, bus: bus, log: log}
}

// NewSchema assembles the executable schema around the resolver.
func NewSchema(r *Resolver) (graphql.Schema, error) {
	messageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Message",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(chat.Message).ID.String(), nil
				},
			},
			"from": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"text": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"lang": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"createdAt": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(chat.Message).CreatedAt.UTC().Format(time.RFC3339Nano), nil
				},
			},
		},
	})

	messageInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "MessageInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"text": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"messages": &graphql.Field{
				Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(messageType))),
				Resolve: r.resolveMessages,
			},
			"searchMessages": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(messageType))),
				Args: graphql.FieldConfigArgument{
					"text": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.resolveSearchMessages,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"addMessage": &graphql.Field{
				Type: graphql.NewNonNull(messageType),
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(messageInput)},
				},
				Resolve: r.resolveAddMessage,
			},
		},
	})

	subscription := graphql.NewObject(graphql.ObjectConfig{
		Name: "Subscription",
		Fields: graphql.Fields{
			"messageAdded": &graphql.Field{
				Type: graphql.NewNonNull(messageType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source, nil
				},
				Subscribe: r.subscribeMessageAdded,
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:        query,
		Mutation:     mutation,
		Subscription: subscription,
	})
}

func (r *Resolver) resolveMessages(p graphql.ResolveParams) (any, error) {
	if auth.IdentityFrom(p.Context).Anonymous() {
		return nil, errors.ErrUnauthorized
	}
	return r.chat.ListMessages(p.Context)
}

func (r *Resolver) resolveSearchMessages(p graphql.ResolveParams) (any, error) {
	if auth.IdentityFrom(p.Context).Anonymous() {
		return nil, errors.ErrUnauthorized
	}
	return r.chat.SearchMessages(p.Context, p.Args["text"].(string))
}

func (r *Resolver) resolveAddMessage(p graphql.ResolveParams) (any, error) {
	identity := auth.IdentityFrom(p.Context)
	if identity.Anonymous() {
		return nil, errors.ErrUnauthorized
	}

	input := p.Args["input"].(map[string]any)
	text, _ := input["text"].(string)

	return r.chat.PostMessage(p.Context, chat.PostMessageCommand{
		UserID:    identity.UserID,
		Text:      text,
		CreatedAt: time.Now(),
	})
}

// subscribeMessageAdded registers against the MESSAGE_ADDED topic and
// bridges the bus channel into the execution engine. The registration is
// bound to the operation context: when the transport cancels it, the bus
// drops the subscriber and the stream ends.
func (r *Resolver) subscribeMessageAdded(p graphql.ResolveParams) (any, error) {
	identity := auth.IdentityFrom(p.Context)
	if identity.Anonymous() {
		return nil, errors.ErrUnauthorized
	}
	r.log.Debug("subscription registered", "user_id", identity.UserID)

	deliver := r.bus.Subscribe(p.Context, events.TopicMessageAdded)
	out := make(chan any)
	go func() {
		defer close(out)
		for message := range deliver {
			select {
			case out <- message:
			case <-p.Context.Done():
				return
			}
		}
	}()
	return out, nil
}
