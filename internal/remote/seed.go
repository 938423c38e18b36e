package remote

import (
	"context"
	"fmt"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/storage"
	"github.com/pkg/errors"
)

// Seeded - идентификаторы, созданные при заполнении.
type Seeded struct {
	WallPostID     string
	DisabledPostID string
}

// Seed заполняет хранилище данными для демонстрации: пост-стена
// с комментариями, пост без комментариев, задачи, элементы списка и приветствие бота.
func Seed(ctx context.Context, s storage.Storage, items int) (Seeded, error) {
	var out Seeded

	wall, err := s.CreatePost(ctx, &domain.Post{
		Title:           "Оптимистичные обновления",
		Content:         "Интерфейс сразу показывает результат действия, а сервер подтверждает его позже.",
		AuthorID:        "user-1",
		CommentsEnabled: true,
		Published:       true,
	})
	if err != nil {
		return out, errors.Wrap(err, "seed wall post")
	}
	out.WallPostID = wall.ID

	c1, err := s.CreateComment(ctx, &domain.Comment{
		PostID:   wall.ID,
		AuthorID: "user-2",
		Content:  "Отличный пост! Очень информативно.",
	})
	if err != nil {
		return out, errors.Wrap(err, "seed comment 1")
	}

	// Ответ на первый комментарий
	if _, err = s.CreateComment(ctx, &domain.Comment{
		PostID:   wall.ID,
		ParentID: &c1.ID,
		AuthorID: "user-1",
		Content:  "Спасибо! Рад, что вам понравилось.",
	}); err != nil {
		return out, errors.Wrap(err, "seed nested comment")
	}

	if _, err = s.CreateComment(ctx, &domain.Comment{
		PostID:   wall.ID,
		AuthorID: "user-3",
		Content:  "А что происходит, если запрос упадёт?",
	}); err != nil {
		return out, errors.Wrap(err, "seed comment 2")
	}

	disabled, err := s.CreatePost(ctx, &domain.Post{
		Title:           "Пост с выключенными комментариями",
		Content:         "К этому посту нельзя оставлять комментарии.",
		AuthorID:        "user-admin",
		CommentsEnabled: false,
		Published:       true,
	})
	if err != nil {
		return out, errors.Wrap(err, "seed disabled post")
	}
	out.DisabledPostID = disabled.ID

	for _, text := range []string{"Изучить оптимистичные обновления", "Написать демо", "Покрыть тестами"} {
		if _, err = s.CreateTodo(ctx, &domain.Todo{Text: text}); err != nil {
			return out, errors.Wrap(err, "seed todo")
		}
	}

	for i := 0; i < items; i++ {
		_, err = s.CreateItem(ctx, &domain.Item{
			Title:    fmt.Sprintf("Item %d", i+1),
			Content:  fmt.Sprintf("Content of item %d", i+1),
			Category: domain.Categories[i%len(domain.Categories)],
			Likes:    (i * 7) % 50,
		})
		if err != nil {
			return out, errors.Wrapf(err, "seed item %d", i+1)
		}
	}

	if _, err = s.AppendMessage(ctx, &domain.Message{
		Text:   BotReplies[0],
		Sender: domain.SenderBot,
		Status: domain.StatusSent,
	}); err != nil {
		return out, errors.Wrap(err, "seed greeting")
	}
	return out, nil
}
