package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"warden/internal/checks"
	"warden/internal/config"
	"warden/internal/diag"
)

var rulesCmd = &cobra.Command{
	Use:   "rules [flags] [dir]",
	Short: "List the rule catalog with effective severities",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRules,
}

func init() {
	rulesCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}

// ruleEntry is one catalog row after configuration is applied.
type ruleEntry struct {
	checks.Meta
	Enabled bool `json:"enabled"`
}

func runRules(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	entries, err := ruleEntries(activeConfig)
	if err != nil {
		return err
	}

	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	case "pretty":
		colored, err := useColor(cmd, os.Stdout)
		if err != nil {
			return err
		}
		renderRulesPretty(cmd.OutOrStdout(), entries, colored)
		return nil
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

// ruleEntries lists every builtin check sorted by key with the configured
// severity and whether the rule/disable lists keep it.
func ruleEntries(cfg *config.Config) ([]ruleEntry, error) {
	all := checks.Builtin(cfg.Checks)
	selected, err := checks.Select(all, cfg.Rules.Enable, cfg.Rules.Disable)
	if err != nil {
		return nil, err
	}
	enabled := make(map[string]bool, len(selected))
	for _, c := range selected {
		enabled[c.ID()] = true
	}
	metas := checks.Metas(all)
	out := make([]ruleEntry, 0, len(metas))
	for _, m := range metas {
		if over, ok := cfg.Rules.Severity[m.Key]; ok {
			m.Severity = over
		}
		out = append(out, ruleEntry{Meta: m, Enabled: enabled[m.Key]})
	}
	return out, nil
}

func renderRulesPretty(w io.Writer, entries []ruleEntry, colored bool) {
	sevColor := map[diag.Severity]*color.Color{
		diag.SevInfo:     color.New(color.FgCyan),
		diag.SevMinor:    color.New(color.FgBlue),
		diag.SevMajor:    color.New(color.FgYellow),
		diag.SevCritical: color.New(color.FgRed, color.Bold),
	}
	dim := color.New(color.Faint)
	for _, c := range sevColor {
		setColor(c, colored)
	}
	setColor(dim, colored)

	keyWidth := 0
	for _, e := range entries {
		keyWidth = max(keyWidth, runewidth.StringWidth(e.Key))
	}
	for _, e := range entries {
		sev := strings.ToLower(e.Severity.String())
		sevText := runewidth.FillRight(sev, len("critical"))
		if c := sevColor[e.Severity]; c != nil {
			sevText = c.Sprint(sevText)
		}
		line := fmt.Sprintf("%s  %s  %s", runewidth.FillRight(e.Key, keyWidth), sevText, e.Description)
		if !e.Enabled {
			line = dim.Sprint(line + " (disabled)")
		}
		fmt.Fprintln(w, line)
	}
}

func setColor(c *color.Color, on bool) {
	if on {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
}
