package optimistic

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/UkralStul/optimistic-updates/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitHandle(t *testing.T, h *Handle) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	select {
	case <-h.Done():
		return h.Err()
	case <-ctx.Done():
		t.Fatal("operation did not settle in time")
		return nil
	}
}

func createNote(text string, serverID string, fail bool) Mutation[note, note] {
	temp := note{ID: "temp-1", Text: text}
	return Mutation[note, note]{
		Name:   "createNote",
		Intent: Add(temp, Prepend),
		Do: func(ctx context.Context) (note, error) {
			if fail {
				return note{}, errors.New("Failed to create note!")
			}
			return note{ID: serverID, Text: text}, nil
		},
		Commit: func(base []note, created note) []note {
			return Reduce(base, Add(created, Prepend))
		},
		Retryable: true,
	}
}

func TestRun_EndToEndTempToServerID(t *testing.T) {
	release := make(chan struct{})
	ctrl := New[note](nil)

	m := createNote("hi", "42", false)
	do := m.Do
	m.Do = func(ctx context.Context) (note, error) {
		<-release
		return do(ctx)
	}
	h := Run(context.Background(), ctrl, m)

	// overlay показывает временную запись, база пуста
	snap := ctrl.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "temp-1", snap[0].ID)
	assert.Empty(t, ctrl.Base())
	assert.True(t, ctrl.Pending())

	close(release)
	require.NoError(t, waitHandle(t, h))

	assert.Equal(t, []note{{ID: "42", Text: "hi"}}, ctrl.Base())
	assert.Equal(t, ctrl.Base(), ctrl.Snapshot())
	assert.False(t, ctrl.Pending())
	assert.Equal(t, 0, ctrl.PendingIntents())
}

func TestRun_AlwaysFailRevertsAndNotifiesOnce(t *testing.T) {
	inbox := &Inbox{}
	ctrl := New[note](nil, WithNotifier(inbox))

	var reverted atomic.Int32
	m := createNote("hi", "42", true)
	m.OnRevert = func(*domain.OperationFailed) { reverted.Add(1) }

	err := waitHandle(t, Run(context.Background(), ctrl, m))
	require.Error(t, err)

	var of *domain.OperationFailed
	require.True(t, errors.As(err, &of))
	assert.Equal(t, "createNote", of.Op)
	assert.Equal(t, "Failed to create note!", of.Message)

	assert.Empty(t, ctrl.Base())
	assert.Empty(t, ctrl.Snapshot())
	assert.Equal(t, 1, inbox.Len())
	assert.Equal(t, int32(1), reverted.Load())

	failures := ctrl.Failures()
	require.Len(t, failures, 1)
	assert.True(t, failures[0].Retryable)
	assert.Equal(t, failures[0].ID, inbox.Notifications()[0].FailureID)
}

func TestRun_AlwaysSucceedKeepsOnlyServerRecord(t *testing.T) {
	ctrl := New[note](nil)
	require.NoError(t, waitHandle(t, Run(context.Background(), ctrl, createNote("hi", "srv-1", false))))

	base := ctrl.Base()
	require.Len(t, base, 1)
	assert.Equal(t, "srv-1", base[0].ID)
	assert.False(t, domain.IsTentative(base[0].ID))
}

func TestRun_RetryReusesPayload(t *testing.T) {
	inbox := &Inbox{}
	ctrl := New[note](nil, WithNotifier(inbox))

	var calls atomic.Int32
	m := createNote("again", "7", false)
	m.Do = func(ctx context.Context) (note, error) {
		if calls.Add(1) == 1 {
			return note{}, errors.New("boom")
		}
		return note{ID: "7", Text: "again"}, nil
	}

	require.Error(t, waitHandle(t, Run(context.Background(), ctrl, m)))
	failures := ctrl.Failures()
	require.Len(t, failures, 1)

	h, err := ctrl.Retry(context.Background(), failures[0].ID)
	require.NoError(t, err)
	require.NoError(t, waitHandle(t, h))

	assert.Equal(t, []note{{ID: "7", Text: "again"}}, ctrl.Base())
	assert.Empty(t, ctrl.Failures())
	assert.Equal(t, 1, inbox.Len())

	_, err = ctrl.Retry(context.Background(), failures[0].ID)
	assert.ErrorIs(t, err, ErrUnknownFailure)
}

func TestRun_TerminalErrorIsNotRetryable(t *testing.T) {
	ctrl := New[note](nil, WithNotifier(&Inbox{}))
	m := createNote("x", "1", false)
	m.Do = func(ctx context.Context) (note, error) {
		return note{}, domain.NotFound("note", "1")
	}
	require.Error(t, waitHandle(t, Run(context.Background(), ctrl, m)))

	failures := ctrl.Failures()
	require.Len(t, failures, 1)
	assert.False(t, failures[0].Retryable)

	_, err := ctrl.Retry(context.Background(), failures[0].ID)
	assert.ErrorIs(t, err, ErrNotRetryable)
	require.NoError(t, ctrl.Dismiss(failures[0].ID))
	assert.Empty(t, ctrl.Failures())
}

func TestRun_LikeFailureRederivesOverlay(t *testing.T) {
	ctrl := New(notes(), WithNotifier(&Inbox{}))
	h := Run(context.Background(), ctrl, Mutation[note, struct{}]{
		Name:   "like",
		Intent: Like[note]("1"),
		Do: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, errors.New("Failed to add like!")
		},
		Commit: func(base []note, _ struct{}) []note { return Reduce(base, Like[note]("1")) },
	})
	require.Error(t, waitHandle(t, h))
	assert.Equal(t, notes(), ctrl.Snapshot())
}

func TestRun_FallbackPersistsFailedState(t *testing.T) {
	ctrl := New[note](nil, WithNotifier(&Inbox{}))
	msg := note{ID: "temp-1", Text: "hello"}
	h := Run(context.Background(), ctrl, Mutation[note, string]{
		Name:   "send",
		Intent: Add(msg, Append),
		Do: func(ctx context.Context) (string, error) {
			return "", errors.New("Message failed to send!")
		},
		Fallback: func(base []note, _ *domain.OperationFailed) []note {
			failed := msg
			failed.Done = true
			return Reduce(base, Add(failed, Append))
		},
	})
	require.Error(t, waitHandle(t, h))

	base := ctrl.Base()
	require.Len(t, base, 1)
	assert.True(t, base[0].Done)
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	inbox := &Inbox{}
	ctrl := New(notes(), WithNotifier(inbox))
	h := Run(context.Background(), ctrl, Mutation[note, int]{
		Name:   "explode",
		Intent: Delete[note]("1"),
		Do: func(ctx context.Context) (int, error) {
			panic("unexpected")
		},
	})
	require.Error(t, waitHandle(t, h))
	assert.Equal(t, notes(), ctrl.Snapshot())
	assert.Equal(t, 1, inbox.Len())
}

func TestRun_OutOfOrderCompletion(t *testing.T) {
	ctrl := New(notes())
	slow := make(chan struct{})

	h1 := Run(context.Background(), ctrl, Mutation[note, struct{}]{
		Name:   "like-1",
		Intent: Like[note]("1"),
		Do: func(ctx context.Context) (struct{}, error) {
			<-slow
			return struct{}{}, nil
		},
		Commit: func(base []note, _ struct{}) []note { return Reduce(base, Like[note]("1")) },
	})
	h2 := Run(context.Background(), ctrl, Mutation[note, struct{}]{
		Name:   "delete-2",
		Intent: Delete[note]("2"),
		Do:     func(ctx context.Context) (struct{}, error) { return struct{}{}, nil },
		Commit: func(base []note, _ struct{}) []note { return Reduce(base, Delete[note]("2")) },
	})

	require.NoError(t, waitHandle(t, h2))
	// like всё ещё в полёте и виден только в overlay
	assert.Equal(t, 5, ctrl.Base()[0].Likes)
	assert.Equal(t, 6, ctrl.Snapshot()[0].Likes)

	close(slow)
	require.NoError(t, waitHandle(t, h1))
	ctrl.Wait()

	base := ctrl.Base()
	require.Len(t, base, 1)
	assert.Equal(t, 6, base[0].Likes)
	assert.Equal(t, base, ctrl.Snapshot())
}

type countingObserver struct {
	started, committed, reverted atomic.Int32
}

func (o *countingObserver) OperationStarted(string) { o.started.Add(1) }
func (o *countingObserver) OperationSettled(_ string, outcome Outcome, _ time.Duration) {
	if outcome == OutcomeCommitted {
		o.committed.Add(1)
	} else {
		o.reverted.Add(1)
	}
}

func TestRun_ObserverSeesOutcomes(t *testing.T) {
	obs := &countingObserver{}
	ctrl := New[note](nil, WithObserver(obs), WithNotifier(&Inbox{}))

	Run(context.Background(), ctrl, createNote("a", "1", false))
	Run(context.Background(), ctrl, createNote("b", "2", true))
	ctrl.Wait()

	assert.Equal(t, int32(2), obs.started.Load())
	assert.Equal(t, int32(1), obs.committed.Load())
	assert.Equal(t, int32(1), obs.reverted.Load())
}
