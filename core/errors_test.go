package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "plain error", err: errors.New("boom"), want: KindInternal},
		{name: "not found", err: NotFound("course %d not found", 12), want: KindNotFound},
		{name: "wrapped conflict", err: errors.Wrap(Conflict("already enrolled"), "enrolling"), want: KindConflict},
		{name: "transient wrapping cause", err: Transient(errors.New("deadlock"), "storage"), want: KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
	assert.False(t, IsKind(nil, KindInternal))
}

func TestError_Message(t *testing.T) {
	err := InvalidArgument("students with IDs %s are not enrolled in course %d", FormatIDs([]int{4, 7}), 12).WithIDs(4, 7)
	assert.Equal(t, "students with IDs [4, 7] are not enrolled in course 12", err.Error())
	assert.Equal(t, []int{4, 7}, err.IDs)

	wrapped := Transient(errors.New("deadlock detected"), "storage failure")
	assert.Equal(t, "storage failure: deadlock detected", wrapped.Error())
	assert.Equal(t, "conflict", KindConflict.String())
}

func TestIsShutdown(t *testing.T) {
	assert.True(t, IsShutdown(errors.Wrap(NewShutdownError("integrity issue"), "handling request")))
	assert.False(t, IsShutdown(errors.New("boom")))
}
