package systray

import _ "embed"

// systray wants ICO data on Windows.
//
//go:embed icon/icon.ico
var iconData []byte
