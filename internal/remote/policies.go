package remote

import (
	"time"

	"github.com/UkralStul/optimistic-updates/internal/simulate"
)

// Имена операций. Используются как ключи политик, в уведомлениях и метриках.
const (
	OpCreatePost    = "createPost"
	OpLikePost      = "likePost"
	OpDeletePost    = "deletePost"
	OpListPosts     = "listPosts"
	OpCreateComment = "createComment"
	OpLikeComment   = "likeComment"
	OpDeleteComment = "deleteComment"
	OpLoadComments  = "loadComments"
	OpCreateTodo    = "createTodo"
	OpToggleTodo    = "toggleTodo"
	OpDeleteTodo    = "deleteTodo"
	OpCreateItem    = "createItem"
	OpLikeItem      = "likeItem"
	OpUpdateItem    = "updateItem"
	OpDeleteItem    = "deleteItem"
	OpLoadItems     = "loadItems"
	OpSendMessage   = "sendMessage"
)

// DefaultPolicies - задержки и вероятности отказа демонстрационных экранов.
func DefaultPolicies() map[string]simulate.Policy {
	return map[string]simulate.Policy{
		OpCreatePost:    simulate.Fixed(2*time.Second, 0.1, "Failed to create post!"),
		OpLikePost:      simulate.Fixed(time.Second, 0.1, "Failed to add like!"),
		OpDeletePost:    simulate.Fixed(1500*time.Millisecond, 0.1, "Failed to delete post!"),
		OpListPosts:     simulate.Never,
		OpCreateComment: simulate.Fixed(time.Second, 0.05, "Failed to add comment!"),
		OpLikeComment:   simulate.Fixed(200*time.Millisecond, 0.02, "Like action failed!"),
		OpDeleteComment: simulate.Fixed(600*time.Millisecond, 0.03, "Delete action failed!"),
		OpLoadComments:  simulate.Fixed(800*time.Millisecond, 0, "Failed to load comments!"),
		OpCreateTodo:    simulate.Fixed(1500*time.Millisecond, 0.1, "Failed to add todo!"),
		OpToggleTodo:    simulate.Fixed(time.Second, 0.1, "Failed to update todo!"),
		OpDeleteTodo:    simulate.Fixed(800*time.Millisecond, 0.1, "Failed to delete todo!"),
		OpCreateItem:    simulate.Fixed(1200*time.Millisecond, 0.05, "Failed to add item!"),
		OpLikeItem:      simulate.Fixed(300*time.Millisecond, 0.02, "Like action failed!"),
		OpUpdateItem:    simulate.Fixed(800*time.Millisecond, 0.05, "Failed to update item!"),
		OpDeleteItem:    simulate.Fixed(800*time.Millisecond, 0.03, "Delete action failed!"),
		OpLoadItems:     simulate.Never,
		OpSendMessage: {
			FailureRate: 0.15,
			MinDelay:    2 * time.Second,
			MaxDelay:    4 * time.Second,
			Message:     "Message failed to send!",
		},
	}
}

// BotReplies - ответы бота в чате.
var BotReplies = []string{
	"Hello! How can I help you?",
	"That is a very interesting question!",
	"I understand, please continue...",
	"Great! Do you have another question?",
	"I can provide more details on this.",
	"Optimistic updates are really useful!",
}
