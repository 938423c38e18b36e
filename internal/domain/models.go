package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TempIDPrefix - префикс идентификаторов, выданных клиентом до ответа сервера.
const TempIDPrefix = "temp-"

// NewTempID генерирует временный идентификатор для оптимистичной записи.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTentative сообщает, выдан ли идентификатор клиентом (а не сервером).
func IsTentative(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// Post представляет пост в блоге.
type Post struct {
	ID              string     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title           string     `json:"title" gorm:"type:varchar(255);not null"`
	Content         string     `json:"content" gorm:"type:text;not null"`
	AuthorID        string     `json:"authorId" gorm:"type:varchar(255);not null"`
	CommentsEnabled bool       `json:"commentsEnabled" gorm:"not null;default:true"`
	Likes           int        `json:"likes" gorm:"not null;default:0"`
	Liked           bool       `json:"liked" gorm:"not null;default:false"`
	Published       bool       `json:"published" gorm:"not null;default:true"`
	CreatedAt       time.Time  `json:"createdAt" gorm:"not null;default:now()"`
	Comments        []*Comment `json:"-" gorm:"foreignKey:PostID"` // gorm only
}

func (p Post) RecordID() string { return p.ID }
func (p Post) Tentative() bool  { return IsTentative(p.ID) }

func (p Post) LikeState() (bool, int) { return p.Liked, p.Likes }

func (p Post) WithLikeState(liked bool, likes int) Post {
	p.Liked, p.Likes = liked, likes
	return p
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PostID    string    `json:"postId" gorm:"type:uuid;not null;index"`
	ParentID  *string   `json:"parentId,omitempty" gorm:"type:uuid;index"`
	AuthorID  string    `json:"authorId" gorm:"type:varchar(255);not null"`
	Content   string    `json:"content" gorm:"type:varchar(2000);not null"`
	Likes     int       `json:"likes" gorm:"not null;default:0"`
	Liked     bool      `json:"liked" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;default:now()"`
	Replies   []Comment `json:"replies,omitempty" gorm:"-"`
}

func (c Comment) RecordID() string { return c.ID }
func (c Comment) Tentative() bool  { return IsTentative(c.ID) }

func (c Comment) LikeState() (bool, int) { return c.Liked, c.Likes }

func (c Comment) WithLikeState(liked bool, likes int) Comment {
	c.Liked, c.Likes = liked, likes
	return c
}

// WithChild возвращает копию комментария с добавленным ответом.
// Срез ответов копируется, исходный комментарий не меняется.
func (c Comment) WithChild(reply Comment) Comment {
	replies := make([]Comment, 0, len(c.Replies)+1)
	replies = append(replies, c.Replies...)
	c.Replies = append(replies, reply)
	return c
}

// Todo - задача в списке дел.
type Todo struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Text      string    `json:"text" gorm:"type:varchar(500);not null"`
	Completed bool      `json:"completed" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;default:now()"`
}

func (t Todo) RecordID() string { return t.ID }
func (t Todo) Tentative() bool  { return IsTentative(t.ID) }

func (t Todo) Toggled() Todo {
	t.Completed = !t.Completed
	return t
}

// Sender - автор сообщения в чате.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// MessageStatus - статус доставки сообщения.
type MessageStatus string

const (
	StatusSending MessageStatus = "sending"
	StatusSent    MessageStatus = "sent"
	StatusFailed  MessageStatus = "failed"
)

// Message - сообщение чата.
type Message struct {
	ID        string        `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Text      string        `json:"text" gorm:"type:text;not null"`
	Sender    Sender        `json:"sender" gorm:"type:varchar(16);not null"`
	Status    MessageStatus `json:"status" gorm:"type:varchar(16);not null;default:'sent'"`
	CreatedAt time.Time     `json:"createdAt" gorm:"not null;default:now()"`
}

func (m Message) RecordID() string { return m.ID }
func (m Message) Tentative() bool  { return IsTentative(m.ID) }

// Exchange - подтверждённое сообщение пользователя и ответ бота на него.
type Exchange struct {
	Message Message `json:"message"`
	Reply   Message `json:"reply"`
}

// Item - элемент большого (виртуализированного) списка.
type Item struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Category  string    `json:"category" gorm:"type:varchar(64);not null;index"`
	Likes     int       `json:"likes" gorm:"not null;default:0"`
	Liked     bool      `json:"liked" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;default:now()"`
}

func (i Item) RecordID() string { return i.ID }
func (i Item) Tentative() bool  { return IsTentative(i.ID) }

func (i Item) LikeState() (bool, int) { return i.Liked, i.Likes }

func (i Item) WithLikeState(liked bool, likes int) Item {
	i.Liked, i.Likes = liked, likes
	return i
}
