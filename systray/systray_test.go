package systray

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"markestedt/datepaste/stamp"
)

func TestItemTitle(t *testing.T) {
	assert.Equal(t, "Paste date (Ctrl+Shift+D)", itemTitle(stamp.KindDate, "ctrl+shift+d"))
	assert.Equal(t, "Paste time (Alt+F5)", itemTitle(stamp.KindTime, "alt+f5"))
	assert.Equal(t, "Paste date & time", itemTitle(stamp.KindDateTime, ""))
}

func TestNewManagerDisablesSettingsWithoutPort(t *testing.T) {
	m := NewManager(nil, nil, 0)
	assert.False(t, m.webUI)
	assert.NotEmpty(t, m.iconData)

	m = NewManager(nil, nil, 17345)
	assert.True(t, m.webUI)
}
