package fetch

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status    int
		wantKind  Kind
		retryable bool
	}{
		{http.StatusOK, KindUnknown, false},
		{http.StatusNoContent, KindUnknown, false},
		{http.StatusNotFound, KindHTTPClient, false},
		{http.StatusForbidden, KindHTTPClient, false},
		{http.StatusTooManyRequests, KindHTTPClient, false},
		{http.StatusInternalServerError, KindHTTPServer, true},
		{http.StatusServiceUnavailable, KindHTTPServer, true},
		{http.StatusNotModified, KindHTTPServer, true},
		{http.StatusContinue, KindHTTPServer, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := Classify(&http.Response{StatusCode: tt.status}, nil)
			if tt.wantKind == KindUnknown {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.Equal(t, tt.retryable, IsRetryable(err))

			var fe *Error
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.status, fe.StatusCode)
			assert.Contains(t, err.Error(), "HTTP request failed with status:")
		})
	}
}

func TestClassifyTransportFailure(t *testing.T) {
	cause := errors.New("connection refused")
	err := Classify(nil, cause)

	assert.Equal(t, KindTransport, KindOf(err))
	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, KindTransport, KindOf(Classify(nil, nil)))
}

func TestErrorHelpers(t *testing.T) {
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.True(t, IsTerminal(errors.New("plain")))
	assert.False(t, IsTerminal(nil))

	err := &Error{Kind: KindStorage, Msg: "failed to write chunk to storage", Err: errors.New("disk full")}
	assert.Equal(t, "failed to write chunk to storage: disk full", err.Error())
	assert.Equal(t, "storage", err.Kind.String())
	assert.False(t, err.Retryable())
}
