package domain

import (
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// MaxCommentLength - максимальная длина комментария.
const MaxCommentLength = 2000

// Categories - допустимые категории элементов списка.
var Categories = []string{"Technology", "Science", "Art", "Sports", "Music", "Movie", "Book", "Game"}

// NewPost - данные для создания поста.
type NewPost struct {
	Title    string `json:"title" validate:"required,notblank,max=200"`
	Content  string `json:"content" validate:"required,notblank"`
	AuthorID string `json:"authorId" validate:"required,max=255"`
}

// NewComment - данные для создания комментария.
type NewComment struct {
	PostID   string  `json:"postId" validate:"required"`
	ParentID *string `json:"parentId,omitempty"`
	AuthorID string  `json:"authorId" validate:"required,max=255"`
	Content  string  `json:"content" validate:"required,notblank,max=2000"`
}

// NewTodo - данные для создания задачи.
type NewTodo struct {
	Text string `json:"text" validate:"required,notblank,max=500"`
}

// NewItem - данные для создания элемента списка.
type NewItem struct {
	Title    string `json:"title" validate:"required,notblank,max=200"`
	Content  string `json:"content" validate:"required,notblank"`
	Category string `json:"category" validate:"required,category"`
}

// ItemPatch - частичное обновление элемента списка. Nil означает "не менять".
type ItemPatch struct {
	Title    *string `json:"title,omitempty" mapstructure:"title,omitempty" validate:"omitempty,notblank,max=200"`
	Content  *string `json:"content,omitempty" mapstructure:"content,omitempty" validate:"omitempty,notblank"`
	Category *string `json:"category,omitempty" mapstructure:"category,omitempty" validate:"omitempty,category"`
}

// Fields переводит патч в набор полей для intent'а Update и для хранилища.
func (p ItemPatch) Fields() map[string]any {
	fields := make(map[string]any, 3)
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Content != nil {
		fields["content"] = *p.Content
	}
	if p.Category != nil {
		fields["category"] = *p.Category
	}
	return fields
}

// Empty сообщает, что в патче нет ни одного поля.
func (p ItemPatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Category == nil
}

// NewMessage - сообщение пользователя в чат.
type NewMessage struct {
	Text string `json:"text" validate:"required,notblank,max=2000"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// customRules - правила, которых нет в validator из коробки.
var customRules = map[string]validator.Func{
	"notblank": func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	},
	"category": func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		for _, c := range Categories {
			if c == value {
				return true
			}
		}
		return false
	},
}

// validatorInstance паникует, если правило не зарегистрировалось:
// без него теги validate молча перестали бы проверять ввод.
func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v, err := newValidator(customRules)
		if err != nil {
			panic(err)
		}
		validate = v
	})
	return validate
}

func newValidator(rules map[string]validator.Func) (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, errors.Wrapf(err, "register validation %q", tag)
		}
	}
	return v, nil
}

// Validate проверяет входные данные по тегам validate.
// Ошибка оборачивает ErrValidation.
func Validate(input any) error {
	err := validatorInstance().Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &ValidationError{Field: verrs[0].Field(), Rule: verrs[0].Tag()}
	}
	return errors.Wrap(ErrValidation, err.Error())
}
