//go:build !windows

package systray

import _ "embed"

//go:embed icon/icon.png
var iconData []byte
