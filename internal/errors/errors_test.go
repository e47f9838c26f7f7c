package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/victornm/quizplay/internal/errors"
)

func TestConvert(t *testing.T) {
	tests := map[string]struct {
		err      error
		wantCode errors.Code
		wantHTTP int
	}{
		"plain error becomes internal": {
			err:      stderrors.New("boom"),
			wantCode: errors.CodeInternal,
			wantHTTP: http.StatusInternalServerError,
		},
		"wrapped invalid input keeps its code": {
			err:      fmt.Errorf("select: %w", errors.InvalidInput("index %d out of range", 7)),
			wantCode: errors.CodeInvalidArgument,
			wantHTTP: http.StatusBadRequest,
		},
		"invalid content is a failed precondition": {
			err:      errors.InvalidContent("quiz %q has no questions", "q1"),
			wantCode: errors.CodeFailedPrecondition,
			wantHTTP: http.StatusUnprocessableEntity,
		},
		"not found": {
			err:      errors.NotFound("quiz not found: id=%s", "q1"),
			wantCode: errors.CodeNotFound,
			wantHTTP: http.StatusNotFound,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			e := errors.Convert(tt.err)
			assert.Equal(t, tt.wantCode, e.Code)
			assert.Equal(t, tt.wantHTTP, e.HTTPStatusCode())
			assert.True(t, errors.HasCode(e, tt.wantCode))
		})
	}
}

func TestHasCode(t *testing.T) {
	tests := map[string]struct {
		err  error
		code errors.Code
		want bool
	}{
		"plain error has no code": {
			err:  stderrors.New("boom"),
			code: errors.CodeInternal,
		},
		"wrapped error keeps its code": {
			err:  fmt.Errorf("start: %w", errors.NotFound("quiz not found: id=%s", "q1")),
			code: errors.CodeNotFound,
			want: true,
		},
		"other code": {
			err:  errors.InvalidInput("bad index"),
			code: errors.CodeNotFound,
		},
		"converted plain error is internal": {
			err:  errors.Convert(stderrors.New("boom")),
			code: errors.CodeInternal,
			want: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.HasCode(tt.err, tt.code))
		})
	}
}

func TestError_GRPCStatus(t *testing.T) {
	cause := stderrors.New("duplicate key")
	e := errors.New(errors.CodeAlreadyExists,
		errors.WithMessagef("result already stored: id=%s", "r1"),
		errors.WithCause(cause),
	)

	require.ErrorIs(t, e, cause)
	assert.Equal(t, codes.AlreadyExists, e.GRPCStatus().Code())
	assert.Equal(t, "result already stored: id=r1", e.GRPCStatus().Message())
	assert.Contains(t, e.Error(), "duplicate key")
}
