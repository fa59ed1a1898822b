package types

import (
	"testing"
	"time"

	"github.com/surge-downloader/gamedash/internal/config"
)

// TestConvertRuntimeConfig_AllFieldsCopied verifies that every field in
// config.RuntimeConfig is correctly mapped to Params.
func TestConvertRuntimeConfig_AllFieldsCopied(t *testing.T) {
	input := &config.RuntimeConfig{
		ProgressTolerance:   2.5,
		MinProgressInterval: 250 * time.Millisecond,
		PercentWindow:       4,
		SpeedWindow:         8,
	}

	result := ConvertRuntimeConfig(input)

	if result.ProgressTolerance != input.ProgressTolerance {
		t.Errorf("ProgressTolerance: got %v, want %v", result.ProgressTolerance, input.ProgressTolerance)
	}
	if result.MinProgressInterval != input.MinProgressInterval {
		t.Errorf("MinProgressInterval: got %v, want %v", result.MinProgressInterval, input.MinProgressInterval)
	}
	if result.PercentWindow != input.PercentWindow {
		t.Errorf("PercentWindow: got %d, want %d", result.PercentWindow, input.PercentWindow)
	}
	if result.SpeedWindow != input.SpeedWindow {
		t.Errorf("SpeedWindow: got %d, want %d", result.SpeedWindow, input.SpeedWindow)
	}
}

func TestConvertRuntimeConfig_Nil(t *testing.T) {
	got := ConvertRuntimeConfig(nil)
	if got != DefaultParams() {
		t.Errorf("nil config should yield defaults, got %+v", got)
	}
}

func TestParamsNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Params
		want Params
	}{
		{
			"zero value keeps zero tolerance",
			Params{},
			Params{ProgressTolerance: 0, MinProgressInterval: DefaultMinProgressInterval, PercentWindow: DefaultPercentWindow, SpeedWindow: DefaultSpeedWindow},
		},
		{"defaults unchanged", DefaultParams(), DefaultParams()},
		{
			"negative interval kept as disabled",
			Params{ProgressTolerance: 5, MinProgressInterval: -1, PercentWindow: 3, SpeedWindow: 5},
			Params{ProgressTolerance: 5, MinProgressInterval: -1, PercentWindow: 3, SpeedWindow: 5},
		},
		{
			"zero tolerance is kept",
			Params{ProgressTolerance: 0, MinProgressInterval: time.Second, PercentWindow: 1, SpeedWindow: 1},
			Params{ProgressTolerance: 0, MinProgressInterval: time.Second, PercentWindow: 1, SpeedWindow: 1},
		},
		{
			"negative tolerance resets",
			Params{ProgressTolerance: -3, MinProgressInterval: time.Second, PercentWindow: -1, SpeedWindow: 0},
			Params{ProgressTolerance: DefaultProgressTolerance, MinProgressInterval: time.Second, PercentWindow: DefaultPercentWindow, SpeedWindow: DefaultSpeedWindow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
			if again := got.Normalize(); again != got {
				t.Errorf("Normalize() is not idempotent: %+v then %+v", got, again)
			}
		})
	}
}
