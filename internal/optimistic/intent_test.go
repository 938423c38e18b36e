package optimistic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Liked    bool   `json:"liked"`
	Likes    int    `json:"likes"`
	Done     bool   `json:"done"`
	Children []note `json:"children"`
}

func (n note) RecordID() string       { return n.ID }
func (n note) LikeState() (bool, int) { return n.Liked, n.Likes }
func (n note) Toggled() note          { n.Done = !n.Done; return n }
func (n note) WithLikeState(l bool, c int) note {
	n.Liked, n.Likes = l, c
	return n
}
func (n note) WithChild(child note) note {
	children := make([]note, 0, len(n.Children)+1)
	n.Children = append(append(children, n.Children...), child)
	return n
}

// plain не реализует ни одного дополнительного интерфейса.
type plain struct{ ID string }

func (p plain) RecordID() string { return p.ID }

func ids(in []note) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		out = append(out, n.ID)
	}
	return out
}

func notes() []note {
	return []note{
		{ID: "1", Text: "first", Likes: 5},
		{ID: "2", Text: "second", Liked: true, Likes: 1},
	}
}

func TestReduce_AddPosition(t *testing.T) {
	base := notes()

	prepended := Reduce(base, Add(note{ID: "temp-1"}, Prepend))
	require.Len(t, prepended, 3)
	assert.Equal(t, "temp-1", prepended[0].ID)

	appended := Reduce(base, Add(note{ID: "temp-1"}, Append))
	require.Len(t, appended, 3)
	assert.Equal(t, "temp-1", appended[2].ID)

	// Вход не изменился
	assert.Equal(t, notes(), base)
}

func TestReduce_LikeUnlike(t *testing.T) {
	base := notes()

	liked := Reduce(base, Like[note]("1"))
	assert.True(t, liked[0].Liked)
	assert.Equal(t, 6, liked[0].Likes)
	assert.Equal(t, 5, base[0].Likes)

	unliked := Reduce(base, Unlike[note]("2"))
	assert.False(t, unliked[1].Liked)
	assert.Equal(t, 0, unliked[1].Likes)
}

func TestReduce_LikeRoundTrip(t *testing.T) {
	base := notes()

	assert.Equal(t, base, Project(base, Like[note]("1"), Unlike[note]("1")))
	assert.Equal(t, base, Project(base, Unlike[note]("2"), Like[note]("2")))
}

func TestReduce_CounterFloor(t *testing.T) {
	base := []note{{ID: "1", Liked: true, Likes: 0}}
	out := Reduce(base, Unlike[note]("1"))
	assert.False(t, out[0].Liked)
	assert.Equal(t, 0, out[0].Likes)
}

func TestReduce_LikeMatchingStateIsNoop(t *testing.T) {
	base := notes()

	// "2" уже лайкнута, "1" - нет
	assert.Equal(t, base, Reduce(base, Like[note]("2")))
	assert.Equal(t, base, Reduce(base, Unlike[note]("1")))

	intents := make([]Intent[note], 0, 10)
	for i := 0; i < 10; i++ {
		intents = append(intents, Like[note]("1"))
	}
	out := Project(base, intents...)
	assert.True(t, out[0].Liked)
	assert.Equal(t, 6, out[0].Likes)
}

func TestReduce_MissingIDIsNoop(t *testing.T) {
	base := notes()
	for _, in := range []Intent[note]{
		Like[note]("x"),
		Unlike[note]("x"),
		Toggle[note]("x"),
		Delete[note]("x"),
		Update[note]("x", map[string]any{"text": "changed"}),
		AddChild("x", note{ID: "c"}),
	} {
		assert.Equal(t, base, Reduce(base, in), in.Kind.String())
	}
}

func TestReduce_DeleteThenAnythingIsNoop(t *testing.T) {
	base := notes()
	afterDelete := Reduce(base, Delete[note]("1"))
	require.Len(t, afterDelete, 1)

	out := Project(afterDelete,
		Like[note]("1"),
		Toggle[note]("1"),
		Update[note]("1", map[string]any{"text": "ghost"}),
		Delete[note]("1"),
	)
	assert.Equal(t, afterDelete, out)
}

func TestReduce_Update(t *testing.T) {
	base := notes()
	out := Reduce(base, Update[note]("1", map[string]any{"text": "edited", "unknown": 1}))
	assert.Equal(t, "edited", out[0].Text)
	assert.Equal(t, 5, out[0].Likes)
	assert.Equal(t, "first", base[0].Text)
}

func TestReduce_ToggleAndChild(t *testing.T) {
	base := notes()

	toggled := Reduce(base, Toggle[note]("2"))
	assert.True(t, toggled[1].Done)
	assert.False(t, base[1].Done)

	withChild := Reduce(base, AddChild("1", note{ID: "reply"}))
	require.Len(t, withChild[0].Children, 1)
	assert.Empty(t, base[0].Children)
}

func TestReduce_UnsupportedCapabilityIsNoop(t *testing.T) {
	base := []plain{{ID: "1"}}
	assert.Equal(t, base, Reduce(base, Like[plain]("1")))
	assert.Equal(t, base, Reduce(base, Toggle[plain]("1")))
}

func TestReduce_AppendPageKeepsOrder(t *testing.T) {
	base := notes()
	out := Reduce(base, AppendPage([]note{{ID: "3"}, {ID: "4"}}))
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(out))
}

func TestReduce_AppendPageSkipsKnownIDs(t *testing.T) {
	base := notes()
	out := Reduce(base, AppendPage([]note{{ID: "2", Text: "stale"}, {ID: "3"}, {ID: "3"}}))
	assert.Equal(t, []string{"1", "2", "3"}, ids(out))
	assert.Equal(t, "second", out[1].Text)
}

func TestReduce_AddReplacesSameID(t *testing.T) {
	base := notes()
	out := Reduce(base, Add(note{ID: "2", Text: "fresh"}, Prepend))
	assert.Equal(t, []string{"2", "1"}, ids(out))
	assert.Equal(t, "fresh", out[0].Text)
}

func TestProject_Deterministic(t *testing.T) {
	base := notes()
	intents := []Intent[note]{
		Add(note{ID: "temp-1", Text: "new"}, Prepend),
		Like[note]("1"),
		Update[note]("temp-1", map[string]any{"text": "newer"}),
		Delete[note]("2"),
		AppendPage([]note{{ID: "9"}}),
		Unlike[note]("1"),
	}
	first := Project(base, intents...)
	second := Project(base, intents...)
	assert.Equal(t, first, second)
	assert.Equal(t, notes(), base)
}
