package errs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestKindStrings(t *testing.T) {
	for kind, want := range map[Kind]string{
		BodyDecode:        "Body Decode Error",
		BodyTransfer:      "Body Transfer Error",
		Build:             "Build Error",
		Connect:           "Connect Error",
		ConnectionUpgrade: "Connection Upgrade Error",
		Other:             "Other Error",
		Redirect:          "Redirect Error",
		Request:           "Request Error",
		Timeout:           "Timeout Error",
		UserAborted:       "User Aborted Error",
	} {
		require.Equal(t, want, kind.String())
	}
}

func TestErrorKindFixedAtConstruction(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := New(Connect, cause)

	require.Equal(t, Connect, err.Kind())
	require.Equal(t, "Connect Error: connection reset by peer", err.Error())
	require.ErrorIs(t, err, cause)
	require.True(t, Is(err, Connect))
	require.False(t, Is(err, Timeout))
}

func TestErrorWithoutCause(t *testing.T) {
	err := New(UserAborted, nil)
	require.Equal(t, "User Aborted Error", err.Error())
	require.Nil(t, err.Unwrap())
}

func TestIsUnwrapsNestedErrors(t *testing.T) {
	inner := Msg(Redirect, "stopped after 2 redirect hops")
	wrapped := errors.Join(errors.New("outer"), inner)
	require.True(t, Is(wrapped, Redirect))
}

func TestFromContext(t *testing.T) {
	require.Nil(t, FromContext(context.Background()))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	err := FromContext(cancelled)
	require.NotNil(t, err)
	require.Equal(t, UserAborted, err.Kind())

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	err = FromContext(expired)
	require.NotNil(t, err)
	require.Equal(t, Timeout, err.Kind())
}
