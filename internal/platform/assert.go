package platform

import (
	"github.com/nerrad567/qrauto/internal/acquisition"
	"github.com/nerrad567/qrauto/internal/audit"
	"github.com/nerrad567/qrauto/internal/automation"
)

var (
	_ automation.Injector     = (*Desktop)(nil)
	_ automation.ScreenSizer  = (*Desktop)(nil)
	_ audit.ScreenCapturer    = (*Desktop)(nil)
	_ acquisition.FrameSource = (*Camera)(nil)
)
