// Package store keeps conversation messages per chat.
package store

import (
	"context"

	"github.com/effective-security/toolchat/pkg/llms"
)

// MessageStore is the message log of chats.
// Messages are returned in the order they were added.
type MessageStore interface {
	// Messages returns a copy of the chat messages.
	Messages(ctx context.Context, chatID string) ([]llms.Message, error)
	// Add appends messages to the chat.
	Add(ctx context.Context, chatID string, msgs ...llms.Message) error
	// Reset removes the chat.
	Reset(ctx context.Context, chatID string) error
	// ListChats returns IDs of the chats in the store.
	ListChats(ctx context.Context) ([]string, error)
}
