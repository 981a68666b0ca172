package components

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{"continuous", "48656C6C6F", []byte("Hello"), false},
		{"spaced", "48 65 6c 6c 6f", []byte("Hello"), false},
		{"prefixed", "0x02 0X06", []byte{0x02, 0x06}, false},
		{"tabs and newlines", "01\t02\n03", []byte{1, 2, 3}, false},
		{"odd length", "123", nil, true},
		{"invalid character", "4G", nil, true},
		{"empty", "   ", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHex(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInputSubmitASCII(t *testing.T) {
	in := NewInput()
	in.SetValue("hello")

	sub, err := in.Submit()
	require.NoError(t, err)
	assert.Equal(t, SendingModeASCII, sub.Mode)
	assert.Equal(t, "hello", sub.Text)
	assert.Nil(t, sub.Raw)
	assert.Equal(t, []byte("hello"), sub.Display())
	assert.Empty(t, in.Value(), "line is cleared after a submit")
}

func TestInputSubmitHex(t *testing.T) {
	in := NewInput()
	in.ToggleSendingMode()
	require.Equal(t, SendingModeHex, in.GetSendingMode())

	in.SetValue("48 69")
	sub, err := in.Submit()
	require.NoError(t, err)
	assert.Equal(t, SendingModeHex, sub.Mode)
	assert.Equal(t, []byte("Hi"), sub.Raw)
	assert.Empty(t, sub.Text)
	assert.Equal(t, []byte("Hi"), sub.Display())

	in.SetValue("zz")
	_, err = in.Submit()
	assert.Error(t, err)
	assert.Equal(t, "zz", in.Value(), "invalid input is left for correction")
	assert.Len(t, in.history, 1)
}

func TestInputSubmitEmpty(t *testing.T) {
	in := NewInput()
	_, err := in.Submit()
	assert.ErrorIs(t, err, ErrEmptyInput)
	assert.Empty(t, in.history)
}

func TestInputHistory(t *testing.T) {
	in := NewInput()
	for _, line := range []string{"first", "second", "second"} {
		in.SetValue(line)
		_, err := in.Submit()
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"first", "second"}, in.history, "repeated lines are stored once")

	in.SetValue("draft")
	in.NavigateHistoryUp()
	assert.Equal(t, "second", in.Value())
	in.NavigateHistoryUp()
	assert.Equal(t, "first", in.Value())
	in.NavigateHistoryUp()
	assert.Equal(t, "first", in.Value(), "stops at the oldest entry")

	in.NavigateHistoryDown()
	assert.Equal(t, "second", in.Value())
	in.NavigateHistoryDown()
	assert.Equal(t, "draft", in.Value(), "the unsent line comes back")
}

func TestInputHistoryLimit(t *testing.T) {
	in := NewInput()
	for i := 0; i < historyLimit+10; i++ {
		in.AddToHistory(fmt.Sprintf("cmd%d", i))
	}
	assert.Len(t, in.history, historyLimit)
	assert.Equal(t, "cmd10", in.history[0], "oldest entries are dropped first")
}

func TestSendingModeString(t *testing.T) {
	assert.Equal(t, "ASCII", SendingModeASCII.String())
	assert.Equal(t, "HEX", SendingModeHex.String())
}
