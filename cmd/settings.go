package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/surge-downloader/gamedash/internal/config"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the effective settings",
	Long:  "Show the effective settings after environment overrides. Tokens are masked.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printSettings(cmd.OutOrStdout(), loadSettings())
	},
}

// printSettings lists every documented setting with its current value.
func printSettings(w io.Writer, s *config.Settings) error {
	sections, err := settingsSections(s)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Settings file: %s\n", config.GetSettingsPath())
	meta := config.GetSettingsMetadata()
	for _, category := range config.CategoryOrder() {
		values := sections[config.CategorySection(category)]
		fmt.Fprintf(w, "\n[%s]\n", category)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, m := range meta[category] {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", m.Label, formatSettingValue(m, values[m.Key]), m.Description)
		}
		_ = tw.Flush()
	}
	return nil
}

// settingsSections maps each JSON section of s to its key/value pairs. Keys
// repeat across sections (backend.token and updates.token), so lookups go
// through the section.
func settingsSections(s *config.Settings) (map[string]map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var sections map[string]map[string]any
	if err := json.Unmarshal(data, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func formatSettingValue(m config.SettingMeta, v any) string {
	if v == nil {
		return "-"
	}
	if strings.Contains(m.Key, "token") {
		if s, _ := v.(string); s != "" {
			return "********"
		}
		return "(not set)"
	}
	switch m.Type {
	case "duration":
		if n, ok := v.(float64); ok {
			return time.Duration(n).String()
		}
	case "string":
		if s, _ := v.(string); s == "" {
			return "(not set)"
		}
	}
	return fmt.Sprint(v)
}

func init() {
	rootCmd.AddCommand(settingsCmd)
}
