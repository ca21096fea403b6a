package task

import (
	"context"
	"testing"
	"time"

	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/errs"
	"github.com/GriffinCanCode/FileDeck/backend/internal/shared/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilHandleIsInert(t *testing.T) {
	var h *Handle

	assert.NotNil(t, h.Context())
	assert.False(t, h.Cancelled())
	assert.NoError(t, h.Checkpoint("copy"))
	assert.NoError(t, h.Yield("copy"))
	h.Report(1, 2, "a.txt")
	h.Cancel()
}

func TestCheckpointAfterCancel(t *testing.T) {
	h := New(context.Background(), "copy", nil)
	require.NoError(t, h.Checkpoint("copy"))

	h.Cancel()

	err := h.Checkpoint("copy")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.Cancelled))
}

func TestReportContainsPanickingSink(t *testing.T) {
	calls := 0
	h := New(context.Background(), "zip", func(current, total int, label string) {
		calls++
		panic("sink exploded")
	})

	assert.NotPanics(t, func() { h.Report(1, 1, "x") })
	assert.Equal(t, 1, calls)
}

func TestYieldWakesOnCancel(t *testing.T) {
	h := New(context.Background(), "copy", nil).WithPause(time.Hour)

	go func() {
		time.Sleep(10 * time.Millisecond)
		h.Cancel()
	}()

	start := time.Now()
	err := h.Yield("copy")
	assert.True(t, errs.IsKind(err, errs.Cancelled))
	assert.Less(t, time.Since(start), time.Minute)
}

func TestRegistryCancelByID(t *testing.T) {
	r := NewRegistry(0)
	first := r.Start(context.Background(), "copy", nil)
	second := r.Start(context.Background(), "zip", nil)

	assert.Len(t, r.Running(), 2)
	assert.True(t, r.Cancel(first.ID))

	assert.True(t, first.Cancelled())
	assert.False(t, second.Cancelled(), "cancelling one task must not touch another")

	r.Finish(first)
	r.Finish(second)
	assert.Empty(t, r.Running())
	assert.False(t, r.Cancel(first.ID))
}

func TestRegistryForwardsToListener(t *testing.T) {
	var got []string
	ctx := WithListener(context.Background(), func(taskID id.TaskID, current, total int, label string) {
		got = append(got, label)
		assert.Equal(t, 2, total)
		assert.NotEmpty(t, taskID)
	})

	r := NewRegistry(0)
	h := r.Start(ctx, "copy", nil)
	defer r.Finish(h)

	h.Report(1, 2, "a.txt")
	h.Report(2, 2, "b.txt")
	assert.Equal(t, []string{"a.txt", "b.txt"}, got)
}
