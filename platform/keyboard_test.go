package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/datepaste/paste"
)

func TestRobotKeyName(t *testing.T) {
	for key, want := range map[paste.Key]string{
		paste.KeyShift:   "shift",
		paste.KeyControl: "ctrl",
		paste.KeyV:       "v",
	} {
		got, err := robotKeyName(key)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := robotKeyName(paste.Key(99))
	assert.Error(t, err)
}

func TestEventTypeString(t *testing.T) {
	assert.Equal(t, "pressed", Pressed.String())
	assert.Equal(t, "released", Released.String())
}
