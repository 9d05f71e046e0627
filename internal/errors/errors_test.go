package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	e := New(CategoryGit, SeverityFatal, "git exited with non-zero code")
	assert.Equal(t, "git (fatal): git exited with non-zero code", e.Error())

	wrapped := Wrap(stderrors.New("exit status 128"), CategoryGit, SeverityFatal, "fetch failed")
	assert.Contains(t, wrapped.Error(), "exit status 128")
}

func TestUnwrapChain(t *testing.T) {
	cause := stderrors.New("root cause")
	e := Wrap(cause, CategoryFileSystem, SeverityFatal, "delete failed")
	require.True(t, stderrors.Is(e, cause))

	var ae *AgentError
	outer := fmt.Errorf("outer: %w", e)
	require.True(t, stderrors.As(outer, &ae))
	assert.Equal(t, CategoryFileSystem, ae.Category)
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryCanceled, CategoryOf(Canceled(nil)))
	assert.Equal(t, CategoryRuntime, CategoryOf(stderrors.New("plain")))
	assert.Equal(t, CategoryRequirement, CategoryOf(RequirementNotMet("git >= 2.9", "2.8.0")))
}

func TestCanceledWrapsContextCanceled(t *testing.T) {
	e := Canceled(nil)
	assert.True(t, stderrors.Is(e, context.Canceled))
	assert.True(t, IsCanceled(e))
	assert.False(t, IsCanceled(stderrors.New("x")))
}

func TestRetryableMarker(t *testing.T) {
	assert.True(t, IsRetryable(DispatchTransient("getMessage", stderrors.New("timeout"))))
	assert.False(t, IsRetryable(SessionError(stderrors.New("denied"))))
}

func TestContextFields(t *testing.T) {
	e := GitExitError("fetch", 128)
	require.NotNil(t, e.Context)
	assert.Equal(t, 128, e.Context["exit_code"])
	assert.Equal(t, "fetch", e.Context["operation"])
}
