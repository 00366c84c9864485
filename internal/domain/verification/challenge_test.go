package verification

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnterDigitAdvancesFocus(t *testing.T) {
	ch := NewChallenge("9876543210", "")

	for i, d := range []string{"1", "2", "3"} {
		require.NoError(t, ch.EnterDigit(i, d))
	}
	v := ch.Snapshot()
	assert.Equal(t, []string{"1", "2", "3", "", "", ""}, v.Digits)
	assert.Equal(t, 3, v.Focus)

	require.NoError(t, ch.EnterDigit(5, "9"))
	assert.Equal(t, 5, ch.Snapshot().Focus)
}

func TestEnterDigitRejectsNonDigits(t *testing.T) {
	ch := NewChallenge("9876543210", "")
	require.NoError(t, ch.EnterDigit(0, "4"))
	require.NoError(t, ch.EnterDigit(1, "2"))
	before := ch.Snapshot()

	for _, bad := range []string{"a", "12", "-", " ", "٣"} {
		err := ch.EnterDigit(2, bad)
		assert.True(t, errors.Is(err, ErrNotDigit), "input %q", bad)
	}
	assert.Equal(t, before, ch.Snapshot())

	assert.True(t, errors.Is(ch.EnterDigit(6, "1"), ErrSlotOutOfRange))
	assert.True(t, errors.Is(ch.EnterDigit(-1, "1"), ErrSlotOutOfRange))
}

func TestPasteFillsAllSlots(t *testing.T) {
	ch := NewChallenge("9876543210", "")
	require.NoError(t, ch.Paste(" 482913\n"))

	v := ch.Snapshot()
	assert.Equal(t, []string{"4", "8", "2", "9", "1", "3"}, v.Digits)
	assert.Equal(t, 5, v.Focus)
}

func TestPasteRejectsMalformedCodes(t *testing.T) {
	ch := NewChallenge("9876543210", "")
	require.NoError(t, ch.EnterDigit(0, "7"))

	for _, bad := range []string{"12345", "1234567", "12a456", ""} {
		assert.True(t, errors.Is(ch.Paste(bad), ErrInvalidPaste), "paste %q", bad)
	}
	assert.Equal(t, []string{"7", "", "", "", "", ""}, ch.Snapshot().Digits)
}

func TestBackspace(t *testing.T) {
	ch := NewChallenge("9876543210", "")
	require.NoError(t, ch.EnterDigit(0, "1"))
	require.NoError(t, ch.EnterDigit(1, "2"))

	// empty slot: focus moves back, nothing deleted
	require.NoError(t, ch.Backspace(2))
	v := ch.Snapshot()
	assert.Equal(t, 1, v.Focus)
	assert.Equal(t, []string{"1", "2", "", "", "", ""}, v.Digits)

	// filled slot: cleared, focus stays
	require.NoError(t, ch.Backspace(1))
	v = ch.Snapshot()
	assert.Equal(t, 1, v.Focus)
	assert.Equal(t, []string{"1", "", "", "", "", ""}, v.Digits)

	// first slot empty: focus stays at 0
	require.NoError(t, ch.Backspace(1))
	require.NoError(t, ch.Backspace(0))
	require.NoError(t, ch.Backspace(0))
	assert.Equal(t, 0, ch.Snapshot().Focus)
}

func TestBeginRequiresAllSlots(t *testing.T) {
	ch := NewChallenge("9876543210", "")
	require.NoError(t, ch.EnterDigit(0, "1"))

	_, err := ch.begin()
	assert.True(t, errors.Is(err, ErrIncomplete))
	assert.Equal(t, StateEntering, ch.State())
}

func TestEditingAfterRejectionReturnsToEntering(t *testing.T) {
	ch := NewChallenge("9876543210", "")
	require.NoError(t, ch.Paste("111111"))
	_, err := ch.begin()
	require.NoError(t, err)
	assert.True(t, errors.Is(ch.EnterDigit(0, "2"), ErrVerifyInProgress))

	ch.reject(ErrInvalidCode, "Invalid OTP. Please try again.")
	assert.Equal(t, "invalid_code", ch.Snapshot().Error)

	require.NoError(t, ch.EnterDigit(0, "2"))
	v := ch.Snapshot()
	assert.Equal(t, StateEntering, v.State)
	assert.Empty(t, v.Error)
}
