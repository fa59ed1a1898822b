package types

import "github.com/surge-downloader/gamedash/internal/config"

// ConvertRuntimeConfig converts the app-level RuntimeConfig to reconciler Params.
func ConvertRuntimeConfig(rc *config.RuntimeConfig) Params {
	if rc == nil {
		return DefaultParams()
	}
	return Params{
		ProgressTolerance:   rc.ProgressTolerance,
		MinProgressInterval: rc.MinProgressInterval,
		PercentWindow:       rc.PercentWindow,
		SpeedWindow:         rc.SpeedWindow,
	}.Normalize()
}
