package tui

import "time"

const (
	// Timeouts and Intervals
	TickInterval    = 500 * time.Millisecond
	NoticeDuration  = 4 * time.Second
	CommandTimeout  = 10 * time.Second
	SpeedHistoryLen = 120

	// Layout Offsets and Padding
	HeaderWidthOffset      = 2
	ProgressBarWidthOffset = 4
	DefaultPaddingX        = 1
	DefaultPaddingY        = 0
	GraphHeight            = 6
	MinProgressBarWidth    = 20
	DetailPaneWidth        = 44
	MinWidthForDetails     = 100
)
