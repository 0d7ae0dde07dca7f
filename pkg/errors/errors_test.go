package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFormatsCodeAndMessage(t *testing.T) {
	err := errors.New(errors.ErrLockHeld, "another sync is in progress")

	assert.Equal(t, errors.ErrLockHeld, err.Code)
	assert.NotNil(t, err.Details)
	assert.Equal(t, "[LOCK_HELD] another sync is in progress", err.Error())

	err = errors.Newf(errors.ErrTargetNotFound, "unknown target %q", "vscode")
	assert.Equal(t, `unknown target "vscode"`, err.Message)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("permission denied")
	err := errors.Wrap(cause, errors.ErrBackupRoot, "cannot create backup root")

	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "[BACKUP_ROOT] cannot create backup root: permission denied", err.Error())

	err = errors.Wrapf(cause, errors.ErrStateSave, "cannot replace %s", "state.json")
	assert.Equal(t, "[STATE_SAVE] cannot replace state.json: permission denied", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.ErrInternal, "internal error"))
	assert.Nil(t, errors.Wrapf(nil, errors.ErrInternal, "internal %s", "error"))
}

func TestDetails(t *testing.T) {
	err := errors.New(errors.ErrStateSave, "cannot persist state").
		WithDetail("path", "/state/state.json").
		WithDetails(map[string]interface{}{"targets": 3})

	details := errors.GetErrorDetails(fmt.Errorf("sync: %w", err))
	assert.Equal(t, "/state/state.json", details["path"])
	assert.Equal(t, 3, details["targets"])

	bare := &errors.HarnessError{Code: errors.ErrInternal}
	bare.WithDetail("k", "v")
	assert.Equal(t, "v", bare.Details["k"])

	assert.Nil(t, errors.GetErrorDetails(stderrors.New("plain")))
}

func TestIsMatchesOnCode(t *testing.T) {
	held := errors.New(errors.ErrLockHeld, "held by pid 42")

	assert.ErrorIs(t, held, errors.New(errors.ErrLockHeld, "held by pid 43"))
	assert.NotErrorIs(t, held, errors.New(errors.ErrLockAcquire, "bad lock dir"))
}

func TestIsErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
		want bool
	}{
		{"matching", errors.New(errors.ErrSecretsDetected, "blocked"), errors.ErrSecretsDetected, true},
		{"different", errors.New(errors.ErrSecretsDetected, "blocked"), errors.ErrLockHeld, false},
		{"wrapped by fmt", fmt.Errorf("sync: %w", errors.New(errors.ErrRollbackPartial, "1 of 3 failed")), errors.ErrRollbackPartial, true},
		{"outermost wins", errors.Wrap(errors.New(errors.ErrStateLoad, "bad"), errors.ErrAdapterFailed, "codex"), errors.ErrStateLoad, false},
		{"plain", stderrors.New("standard error"), errors.ErrNotFound, false},
		{"nil", nil, errors.ErrNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.IsErrorCode(tt.err, tt.code))
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, errors.ErrStateLoad, errors.GetErrorCode(errors.New(errors.ErrStateLoad, "x")))
	assert.Equal(t, errors.ErrUnknown, errors.GetErrorCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrUnknown, errors.GetErrorCode(nil))
}
