package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sserrors "github.com/xkfz007/shardsearch/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_SearchErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"nothing to search", sserrors.Newf(sserrors.ErrCodeNothingToSearch, nil, ""), ErrCodeNothingToSearch},
		{"folder missing", sserrors.Newf(sserrors.ErrCodeFolderMissing, nil, "/gone"), ErrCodeFolderMissing},
		{"io fault", sserrors.Newf(sserrors.ErrCodeIOFault, errors.New("disk"), ""), ErrCodeIndexFault},
		{"corrupt shard", sserrors.Newf(sserrors.ErrCodeCorruptShard, nil, ""), ErrCodeIndexFault},
		{"invalid query", sserrors.Newf(sserrors.ErrCodeInvalidQuery, nil, "unbalanced"), ErrCodeInvalidParams},
		{"invalid input", sserrors.Newf(sserrors.ErrCodeInvalidInput, nil, ""), ErrCodeInvalidParams},
		{"resource exhausted", sserrors.Newf(sserrors.ErrCodeResourceExhausted, nil, ""), ErrCodeResourceExhausted},
		{"shut down", sserrors.Newf(sserrors.ErrCodeShutDown, nil, ""), ErrCodeUnavailable},
		{"search failed", sserrors.Newf(sserrors.ErrCodeSearchFailed, nil, ""), ErrCodeInternalError},
		{"wrapped", fmt.Errorf("outer: %w", sserrors.Newf(sserrors.ErrCodeNothingToSearch, nil, "")), ErrCodeNothingToSearch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)

			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.Code)
			assert.NotEmpty(t, got.Message)
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	// Given: an error whose code carries a suggestion
	err := sserrors.Newf(sserrors.ErrCodeInvalidQuery, nil, "unexpected ')'")

	// When: mapping
	got := MapError(err)

	// Then: the message and the suggestion are both present
	assert.Contains(t, got.Message, "unexpected ')'")
	assert.Contains(t, got.Message, "parentheses")
}

func TestMapError_ContextErrors(t *testing.T) {
	assert.Equal(t, ErrCodeTimeout, MapError(context.DeadlineExceeded).Code)
	assert.Equal(t, ErrCodeTimeout, MapError(context.Canceled).Code)
	assert.Contains(t, MapError(context.Canceled).Message, "canceled")
}

func TestMapError_PassesMCPErrorThrough(t *testing.T) {
	in := NewInvalidParamsError("bad")

	assert.Same(t, in, MapError(fmt.Errorf("wrap: %w", in)))
}

func TestMapError_UnknownIsInternal(t *testing.T) {
	got := MapError(errors.New("boom"))

	assert.Equal(t, ErrCodeInternalError, got.Code)
	assert.NotContains(t, got.Message, "boom")
}

func TestMCPError_Error(t *testing.T) {
	err := NewMethodNotFoundError("nope")

	assert.Equal(t, "MCP error -32601: Tool 'nope' not found.", err.Error())
}
