package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMessageIncludesInternalCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := ErrTransport.WithInternal(cause)

	require.Contains(t, err.Error(), "upstream request failed")
	require.Contains(t, err.Error(), "connection refused")
}

func TestSentinelMatchingSurvivesWithInternal(t *testing.T) {
	cause := stderrors.New("boom")
	err := ErrSchema.WithInternal(cause)

	require.ErrorIs(t, err, ErrSchema)
	require.NotErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, cause)
}

func TestSentinelMatchingSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("row 3: %w", ErrBadValue.WithInternal(stderrors.New("bad float")))

	require.ErrorIs(t, err, ErrBadValue)

	var coded *Error
	require.ErrorAs(t, err, &coded)
	require.Equal(t, "VALUE_UNPARSEABLE", coded.Code)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(cause, "cache write failed")

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "cache write failed")
}

func TestNewBuildsCodedError(t *testing.T) {
	err := New("SOMETHING", "something happened")
	require.Equal(t, "SOMETHING", err.Code)
	require.Equal(t, "something happened", err.Error())
}
