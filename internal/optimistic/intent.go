// Package optimistic реализует модель оптимистичных обновлений:
// базовая коллекция подтверждённых записей, набор ожидающих intent'ов
// и чистая проекция одного на другое.
package optimistic

import (
	"github.com/mitchellh/mapstructure"
)

// Record - любая запись, которую может вести контроллер.
type Record interface {
	RecordID() string
}

// Likeable - записи с флагом "нравится" и счётчиком.
type Likeable[T any] interface {
	LikeState() (liked bool, likes int)
	WithLikeState(liked bool, likes int) T
}

// Toggler - записи с одним переключаемым флагом (например, todo).
type Toggler[T any] interface {
	Toggled() T
}

// Parent - записи, к которым можно добавить дочернюю запись (ответы на комментарий).
type Parent[T any] interface {
	WithChild(child T) T
}

// Kind - вариант intent'а.
type Kind int

const (
	KindAdd Kind = iota + 1
	KindLike
	KindUnlike
	KindToggle
	KindDelete
	KindUpdate
	KindAppendPage
	KindAddChild
)

func (k Kind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindLike:
		return "like"
	case KindUnlike:
		return "unlike"
	case KindToggle:
		return "toggle"
	case KindDelete:
		return "delete"
	case KindUpdate:
		return "update"
	case KindAppendPage:
		return "appendPage"
	case KindAddChild:
		return "addChild"
	default:
		return "unknown"
	}
}

// Position - куда Add вставляет запись.
type Position int

const (
	Prepend Position = iota
	Append
)

// Intent описывает ещё не подтверждённую мутацию.
type Intent[T Record] struct {
	Kind     Kind
	ID       string
	Record   T
	Records  []T
	Fields   map[string]any
	Position Position
}

func Add[T Record](rec T, pos Position) Intent[T] {
	return Intent[T]{Kind: KindAdd, ID: rec.RecordID(), Record: rec, Position: pos}
}

func Like[T Record](id string) Intent[T]   { return Intent[T]{Kind: KindLike, ID: id} }
func Unlike[T Record](id string) Intent[T] { return Intent[T]{Kind: KindUnlike, ID: id} }
func Toggle[T Record](id string) Intent[T] { return Intent[T]{Kind: KindToggle, ID: id} }
func Delete[T Record](id string) Intent[T] { return Intent[T]{Kind: KindDelete, ID: id} }

// Update сливает частичные поля в запись с указанным id.
// Ключи сопоставляются с полями структуры без учёта регистра.
func Update[T Record](id string, fields map[string]any) Intent[T] {
	return Intent[T]{Kind: KindUpdate, ID: id, Fields: fields}
}

func AppendPage[T Record](records []T) Intent[T] {
	return Intent[T]{Kind: KindAppendPage, Records: records}
}

func AddChild[T Record](parentID string, child T) Intent[T] {
	return Intent[T]{Kind: KindAddChild, ID: parentID, Record: child}
}

// Reduce применяет intent к коллекции и возвращает новую коллекцию.
// Входной срез не изменяется. Intent, ссылающийся на отсутствующий id, ничего не делает.
func Reduce[T Record](base []T, in Intent[T]) []T {
	switch in.Kind {
	case KindAdd:
		// Запись с тем же id (например, уже пришедшая со страницей) уступает место новой.
		rest := without(base, in.Record.RecordID())
		out := make([]T, 0, len(rest)+1)
		if in.Position == Append {
			out = append(out, rest...)
			return append(out, in.Record)
		}
		out = append(out, in.Record)
		return append(out, rest...)
	case KindAppendPage:
		out := make([]T, 0, len(base)+len(in.Records))
		out = append(out, base...)
		seen := make(map[string]struct{}, len(out)+len(in.Records))
		for _, rec := range out {
			seen[rec.RecordID()] = struct{}{}
		}
		for _, rec := range in.Records {
			if _, ok := seen[rec.RecordID()]; ok {
				continue
			}
			seen[rec.RecordID()] = struct{}{}
			out = append(out, rec)
		}
		return out
	case KindDelete:
		return without(base, in.ID)
	case KindLike, KindUnlike:
		return replace(base, in.ID, func(rec T) T {
			l, ok := any(rec).(Likeable[T])
			if !ok {
				return rec
			}
			liked, likes := l.LikeState()
			want := in.Kind == KindLike
			if liked == want {
				return rec
			}
			if want {
				return l.WithLikeState(true, likes+1)
			}
			return l.WithLikeState(false, max(0, likes-1))
		})
	case KindToggle:
		return replace(base, in.ID, func(rec T) T {
			if t, ok := any(rec).(Toggler[T]); ok {
				return t.Toggled()
			}
			return rec
		})
	case KindUpdate:
		return replace(base, in.ID, func(rec T) T {
			return merge(rec, in.Fields)
		})
	case KindAddChild:
		return replace(base, in.ID, func(rec T) T {
			if p, ok := any(rec).(Parent[T]); ok {
				return p.WithChild(in.Record)
			}
			return rec
		})
	default:
		return clone(base)
	}
}

// Project - проекция базовой коллекции и ожидающих intent'ов (tentative overlay).
// Всегда вычисляется заново; одинаковые входы дают одинаковый результат.
func Project[T Record](base []T, intents ...Intent[T]) []T {
	out := clone(base)
	for _, in := range intents {
		out = Reduce(out, in)
	}
	return out
}

func replace[T Record](base []T, id string, fn func(T) T) []T {
	out := clone(base)
	for i, rec := range out {
		if rec.RecordID() == id {
			out[i] = fn(rec)
		}
	}
	return out
}

// merge декодирует поля поверх копии записи. Неизвестные ключи игнорируются,
// при ошибке декодирования запись остаётся прежней.
func merge[T Record](rec T, fields map[string]any) T {
	if len(fields) == 0 {
		return rec
	}
	patched := rec
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &patched,
		WeaklyTypedInput: true,
		TagName:          "json",
	})
	if err != nil {
		return rec
	}
	if err := dec.Decode(fields); err != nil {
		return rec
	}
	return patched
}

func without[T Record](base []T, id string) []T {
	out := make([]T, 0, len(base))
	for _, rec := range base {
		if rec.RecordID() != id {
			out = append(out, rec)
		}
	}
	return out
}

func clone[T any](in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	return out
}
