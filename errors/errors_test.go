package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPreservesCause(t *testing.T) {
	original := New("original")
	wrapped := Wrapf(original, "scan page %d", 3)

	assert.Contains(t, wrapped.Error(), "scan page 3")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestNilHandling(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))
	assert.Nil(t, Wrapf(nil, "context %d", 1))
	assert.Nil(t, WithHint(nil, "hint"))
	assert.Nil(t, WithDetail(nil, "detail"))
}

func TestDetailsSurviveWrapping(t *testing.T) {
	err := WithDetail(ErrAtCapacity, "slots in use: 3")
	err = WithHint(err, "raise scheduler.max_concurrent_jobs")
	err = Wrap(err, "skip tick")

	assert.True(t, Is(err, ErrAtCapacity))
	assert.Contains(t, GetAllDetails(err), "slots in use: 3")
	assert.Contains(t, GetAllHints(err), "raise scheduler.max_concurrent_jobs")
}

func TestStackTrace(t *testing.T) {
	err := New("with stack")
	assert.Contains(t, fmt.Sprintf("%+v", err), "errors_test.go")
}

func TestSentinelConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		msg   string
	}{
		{"not found", NewNotFoundError("report %s", "r1"), IsNotFoundError, "report r1"},
		{"invalid", NewInvalidRequestError("bad action %q", "Ban"), IsInvalidRequestError, `bad action "Ban"`},
		{"not implemented", NewNotImplementedError("action %s", "SuspendUser"), IsNotImplementedError, "SuspendUser"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.err)
			assert.True(t, tt.check(tt.err))
			assert.Contains(t, tt.err.Error(), tt.msg)
		})
	}

	unsupported := NewUnsupportedError("hide %s", "Tag")
	assert.True(t, Is(unsupported, ErrUnsupported))
	assert.False(t, IsNotImplementedError(unsupported))
	assert.False(t, IsNotFoundError(nil))
}

func ExampleWrap() {
	baseErr := New("connection failed")
	err := Wrap(baseErr, "failed to open database")
	fmt.Println(err)
	// Output: failed to open database: connection failed
}
