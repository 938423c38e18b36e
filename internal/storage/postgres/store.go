package postgres

import (
	"context"
	"fmt"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/UkralStul/optimistic-updates/internal/storage"
	"github.com/pkg/errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var _ storage.Storage = (*Store)(nil)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string, debug bool) (*Store, error) {
	level := logger.Warn
	if debug {
		level = logger.Info // Включаем логирование SQL для отладки
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(&domain.Post{}, &domain.Comment{}, &domain.Todo{}, &domain.Item{}, &domain.Message{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// notFound переводит gorm.ErrRecordNotFound в доменную ошибку.
func notFound(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound(resource, id)
	}
	return errors.Wrapf(err, "query %s %s", resource, id)
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	p := *post
	p.ID = ""
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, errors.Wrap(err, "create post")
	}
	// GORM автоматически заполнит ID и CreatedAt после создания
	return &p, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "post", id)
	}
	return &post, nil
}

func (s *Store) GetPosts(ctx context.Context, limit, offset int) ([]*domain.Post, error) {
	var posts []*domain.Post
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset).Find(&posts).Error
	return posts, errors.Wrap(err, "list posts")
}

func (s *Store) SetPostLiked(ctx context.Context, id string, liked bool) (*domain.Post, error) {
	var post domain.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, "id = ?", id).Error; err != nil {
			return notFound(err, "post", id)
		}
		post.Liked, post.Likes = applyLike(post.Liked, post.Likes, liked)
		return tx.Model(&post).Select("liked", "likes").Updates(&post).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return errors.Wrap(err, "delete post comments")
		}
		return deleted(tx.Delete(&domain.Post{}, "id = ?", id), "post", id)
	})
}

func (s *Store) ToggleComments(ctx context.Context, postID string, enable bool) (*domain.Post, error) {
	var post domain.Post
	// Используем транзакцию для атомарности операции чтения-записи
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&post, "id = ?", postID).Error; err != nil {
			return notFound(err, "post", postID)
		}
		post.CommentsEnabled = enable
		return tx.Model(&post).Update("comments_enabled", enable).Error
	})

	if err != nil {
		return nil, err
	}
	return &post, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	// Валидация
	if err := domain.CheckCommentContent(comment.Content); err != nil {
		return nil, err
	}

	c := *comment
	c.ID = ""
	c.Replies = nil

	// Проверяем существование поста и разрешение на комментирование в одной транзакции
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post domain.Post
		if err := tx.Select("comments_enabled").First(&post, "id = ?", c.PostID).Error; err != nil {
			return notFound(err, "post", c.PostID)
		}
		if !post.CommentsEnabled {
			return domain.ErrCommentsDisabled
		}

		// Если есть родитель, проверяем его существование
		if c.ParentID != nil {
			var parentCommentCount int64
			if err := tx.Model(&domain.Comment{}).Where("id = ?", *c.ParentID).Count(&parentCommentCount).Error; err != nil {
				return err
			}
			if parentCommentCount == 0 {
				return domain.NotFound("parent comment", *c.ParentID)
			}
		}

		return tx.Create(&c).Error
	})

	if err != nil {
		return nil, err
	}

	return &c, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	var comment domain.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "comment", id)
	}
	return &comment, nil
}

func (s *Store) SetCommentLiked(ctx context.Context, id string, liked bool) (*domain.Comment, error) {
	var comment domain.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&comment, "id = ?", id).Error; err != nil {
			return notFound(err, "comment", id)
		}
		comment.Liked, comment.Likes = applyLike(comment.Liked, comment.Likes, liked)
		return tx.Model(&comment).Select("liked", "likes").Updates(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	// Ответы удаляются рекурсивным CTE, затем сам комментарий
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Exec(`
			WITH RECURSIVE branch AS (
				SELECT id FROM comments WHERE parent_id = ?
				UNION ALL
				SELECT c.id FROM comments c JOIN branch b ON c.parent_id = b.id
			)
			DELETE FROM comments WHERE id IN (SELECT id FROM branch)`, id).Error
		if err != nil {
			return errors.Wrap(err, "delete replies")
		}
		return deleted(tx.Delete(&domain.Comment{}, "id = ?", id), "comment", id)
	})
}

// === Pagination Methods ===

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string, args storage.PaginationArgs) ([]*domain.Comment, error) {
	// Выбираем только комментарии верхнего уровня для поста (parent_id IS NULL)
	query := s.db.WithContext(ctx).
		Where("post_id = ? AND parent_id IS NULL", postID)
	return s.paginate(ctx, query, args)
}

func (s *Store) GetCommentsByParentID(ctx context.Context, parentID string, args storage.PaginationArgs) ([]*domain.Comment, error) {
	query := s.db.WithContext(ctx).
		Where("parent_id = ?", parentID)
	return s.paginate(ctx, query, args)
}

// paginate - курсорная пагинация по (created_at, id).
func (s *Store) paginate(ctx context.Context, query *gorm.DB, args storage.PaginationArgs) ([]*domain.Comment, error) {
	query = query.Order("created_at ASC, id ASC")
	if args.Limit > 0 {
		query = query.Limit(args.Limit)
	}

	if args.Cursor != nil {
		var cursorComment domain.Comment
		// Находим время создания комментария-курсора
		if err := s.db.WithContext(ctx).First(&cursorComment, "id = ?", *args.Cursor).Error; err != nil {
			return nil, notFound(err, "comment", *args.Cursor)
		}
		// И выбираем все записи, созданные ПОСЛЕ него
		query = query.Where("(created_at, id) > (?, ?)", cursorComment.CreatedAt, cursorComment.ID)
	}

	var comments []*domain.Comment
	err := query.Find(&comments).Error
	return comments, errors.Wrap(err, "paginate comments")
}

// === Dataloader Method ===

func (s *Store) GetCommentsByParentIDs(ctx context.Context, parentIDs []string) (map[string][]*domain.Comment, error) {
	var comments []*domain.Comment
	// Загружаем все дочерние комментарии для всех переданных parentID одним запросом
	err := s.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Order("parent_id, created_at ASC").
		Find(&comments).Error

	if err != nil {
		return nil, errors.Wrap(err, "load replies")
	}

	// Группируем результаты в карту map[parentID][]*Comment
	result := make(map[string][]*domain.Comment, len(parentIDs))
	for _, c := range comments {
		if c.ParentID != nil {
			result[*c.ParentID] = append(result[*c.ParentID], c)
		}
	}

	return result, nil
}

// === Todo Methods ===

func (s *Store) ListTodos(ctx context.Context) ([]*domain.Todo, error) {
	var todos []*domain.Todo
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&todos).Error
	return todos, errors.Wrap(err, "list todos")
}

func (s *Store) CreateTodo(ctx context.Context, todo *domain.Todo) (*domain.Todo, error) {
	t := *todo
	t.ID = ""
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, errors.Wrap(err, "create todo")
	}
	return &t, nil
}

func (s *Store) SetTodoCompleted(ctx context.Context, id string, completed bool) (*domain.Todo, error) {
	res := s.db.WithContext(ctx).Model(&domain.Todo{}).Where("id = ?", id).Update("completed", completed)
	if err := updated(res, "todo", id); err != nil {
		return nil, err
	}
	var todo domain.Todo
	if err := s.db.WithContext(ctx).First(&todo, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "todo", id)
	}
	return &todo, nil
}

func (s *Store) DeleteTodo(ctx context.Context, id string) error {
	return deleted(s.db.WithContext(ctx).Delete(&domain.Todo{}, "id = ?", id), "todo", id)
}

// === Item Methods ===

func (s *Store) ListItems(ctx context.Context, limit, offset int) ([]*domain.Item, error) {
	var items []*domain.Item
	query := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&items).Error
	return items, errors.Wrap(err, "list items")
}

func (s *Store) CreateItem(ctx context.Context, item *domain.Item) (*domain.Item, error) {
	it := *item
	it.ID = ""
	if err := s.db.WithContext(ctx).Create(&it).Error; err != nil {
		return nil, errors.Wrap(err, "create item")
	}
	return &it, nil
}

func (s *Store) UpdateItem(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error) {
	if !patch.Empty() {
		res := s.db.WithContext(ctx).Model(&domain.Item{}).Where("id = ?", id).Updates(patch.Fields())
		if err := updated(res, "item", id); err != nil {
			return nil, err
		}
	}
	var item domain.Item
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "item", id)
	}
	return &item, nil
}

func (s *Store) SetItemLiked(ctx context.Context, id string, liked bool) (*domain.Item, error) {
	var item domain.Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, "id = ?", id).Error; err != nil {
			return notFound(err, "item", id)
		}
		item.Liked, item.Likes = applyLike(item.Liked, item.Likes, liked)
		return tx.Model(&item).Select("liked", "likes").Updates(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	return deleted(s.db.WithContext(ctx).Delete(&domain.Item{}, "id = ?", id), "item", id)
}

// === Message Methods ===

func (s *Store) ListMessages(ctx context.Context) ([]*domain.Message, error) {
	var msgs []*domain.Message
	err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&msgs).Error
	return msgs, errors.Wrap(err, "list messages")
}

func (s *Store) AppendMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	m := *msg
	m.ID = ""
	if m.Status == "" {
		m.Status = domain.StatusSent
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, errors.Wrap(err, "append message")
	}
	return &m, nil
}

// === helpers ===

func applyLike(current bool, likes int, liked bool) (bool, int) {
	switch {
	case liked && !current:
		return true, likes + 1
	case !liked && current:
		return false, max(0, likes-1)
	default:
		return current, likes
	}
}

func updated(res *gorm.DB, resource, id string) error {
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update %s %s", resource, id)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound(resource, id)
	}
	return nil
}

func deleted(res *gorm.DB, resource, id string) error {
	if res.Error != nil {
		return errors.Wrapf(res.Error, "delete %s %s", resource, id)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound(resource, id)
	}
	return nil
}
