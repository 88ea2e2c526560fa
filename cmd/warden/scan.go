package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"warden/internal/checks"
	"warden/internal/config"
	"warden/internal/diag"
	"warden/internal/diagfmt"
	"warden/internal/dispatch"
	"warden/internal/driver"
	"warden/internal/version"
)

var scanCmd = &cobra.Command{
	Use:   "scan [flags] <unit|directory>",
	Short: "Run the rules over one unit document or every unit under a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().String("format", "pretty", "output format (pretty|short|json|sarif)")
	scanCmd.Flags().Int("jobs", 0, "max units analysed in parallel (0=auto)")
	scanCmd.Flags().StringSlice("rules", nil, "run only these rules (comma-separated keys or names)")
	scanCmd.Flags().StringSlice("disable", nil, "rules to skip (comma-separated keys or names)")
	scanCmd.Flags().String("min-severity", "", "hide findings below this severity (info|minor|major|critical)")
	scanCmd.Flags().String("fail-on", "", "exit with status 1 when a finding reaches this severity")
	scanCmd.Flags().String("cache", "", "finding cache directory (\"off\" disables the configured cache)")
	scanCmd.Flags().Int("parallel-rules", 0, "run up to N rules on the same node concurrently")
	scanCmd.Flags().String("progress", "auto", "show a progress view for directory scans (auto|on|off)")
	scanCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	scanCmd.Flags().Bool("with-notes", false, "include finding notes in output")
}

// scanFlags are the scan flags after validation.
type scanFlags struct {
	format    string
	progress  progressMode
	fullPath  bool
	withNotes bool
	quiet     bool
	timings   bool
}

// runScan executes "scan": it merges flags into the configuration, builds the
// rule set, scans the units, renders the findings and picks the exit status.
func runScan(cmd *cobra.Command, args []string) error {
	defer dumpTraceOnPanic()

	cfg := activeConfig
	sf, err := readScanFlags(cmd, cfg)
	if err != nil {
		return err
	}

	selected, err := selectChecks(cfg)
	if err != nil {
		return err
	}
	d := dispatch.New(
		dispatch.WithTracer(activeTracer),
		dispatch.WithParallelRules(cfg.Analysis.ParallelRules),
		dispatch.WithSeverity(cfg.Rules.Severity),
	)
	if err := checks.Register(d, selected); err != nil {
		return err
	}

	opts := driver.Options{
		Jobs:        cfg.Analysis.Jobs,
		MaxFindings: cfg.Analysis.MaxFindings,
		MinSeverity: cfg.Analysis.MinSeverity,
		Progress:    scanCounter,
	}
	if cfg.Analysis.Cache != "" {
		cache, err := driver.OpenFindingCache(cfg.Analysis.Cache)
		if err != nil {
			return err
		}
		fp, err := driver.Fingerprint(version.Current().Version, effectiveSeverities(selected, cfg), cfg.Checks)
		if err != nil {
			return fmt.Errorf("failed to fingerprint rules: %w", err)
		}
		opts.Cache, opts.Fingerprint = cache, fp
	}

	units, err := driver.ListUnits(args[0])
	if err != nil {
		return err
	}
	if len(units) == 0 {
		if !sf.quiet {
			fmt.Fprintf(os.Stderr, "warden: no unit documents under %s\n", args[0])
		}
		return nil
	}

	var res *driver.Result
	if shouldShowProgress(sf.progress) && len(units) > 1 && !sf.quiet {
		res, err = runScanWithUI(cmd.Context(), "scanning", units, d, opts)
	} else {
		res, err = driver.ScanUnits(cmd.Context(), units, d, opts)
	}
	if err != nil {
		return err
	}

	for _, uerr := range res.Errors() {
		fmt.Fprintf(os.Stderr, "warden: %v\n", uerr)
	}
	if err := renderFindings(cmd, os.Stdout, res, selected, sf); err != nil {
		return err
	}
	if sf.timings {
		fmt.Fprint(os.Stderr, res.Timing.Summary())
	}

	if reachedFailOn(res, cfg.Analysis.FailOn) {
		return errFindings
	}
	if n := len(res.Errors()); n > 0 {
		return fmt.Errorf("%d of %d units could not be analysed", n, len(units))
	}
	return nil
}

// readScanFlags applies explicitly set flags on top of cfg.
func readScanFlags(cmd *cobra.Command, cfg *config.Config) (scanFlags, error) {
	var sf scanFlags
	flags := cmd.Flags()
	var err error

	if sf.format, err = flags.GetString("format"); err != nil {
		return sf, fmt.Errorf("failed to get format flag: %w", err)
	}
	switch sf.format {
	case "pretty", "short", "json", "sarif":
	default:
		return sf, fmt.Errorf("unknown format %q (expected pretty|short|json|sarif)", sf.format)
	}

	progressStr, err := flags.GetString("progress")
	if err != nil {
		return sf, fmt.Errorf("failed to get progress flag: %w", err)
	}
	if sf.progress, err = readProgressMode(progressStr); err != nil {
		return sf, err
	}
	if sf.fullPath, err = flags.GetBool("fullpath"); err != nil {
		return sf, fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	if sf.withNotes, err = flags.GetBool("with-notes"); err != nil {
		return sf, fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	if sf.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return sf, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if sf.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return sf, fmt.Errorf("failed to get timings flag: %w", err)
	}

	if flags.Changed("jobs") {
		if cfg.Analysis.Jobs, err = flags.GetInt("jobs"); err != nil {
			return sf, fmt.Errorf("failed to get jobs flag: %w", err)
		}
	}
	if flags.Changed("parallel-rules") {
		if cfg.Analysis.ParallelRules, err = flags.GetInt("parallel-rules"); err != nil {
			return sf, fmt.Errorf("failed to get parallel-rules flag: %w", err)
		}
	}
	if cmd.Root().PersistentFlags().Changed("max-findings") {
		if cfg.Analysis.MaxFindings, err = cmd.Root().PersistentFlags().GetInt("max-findings"); err != nil {
			return sf, fmt.Errorf("failed to get max-findings flag: %w", err)
		}
	}
	if cfg.Analysis.Jobs < 0 || cfg.Analysis.ParallelRules < 0 || cfg.Analysis.MaxFindings < 0 {
		return sf, fmt.Errorf("--jobs, --parallel-rules and --max-findings must not be negative")
	}
	if flags.Changed("rules") {
		if cfg.Rules.Enable, err = flags.GetStringSlice("rules"); err != nil {
			return sf, fmt.Errorf("failed to get rules flag: %w", err)
		}
	}
	if flags.Changed("disable") {
		extra, err := flags.GetStringSlice("disable")
		if err != nil {
			return sf, fmt.Errorf("failed to get disable flag: %w", err)
		}
		cfg.Rules.Disable = append(cfg.Rules.Disable, extra...)
	}
	for name, dst := range map[string]*diag.Severity{"min-severity": &cfg.Analysis.MinSeverity, "fail-on": &cfg.Analysis.FailOn} {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return sf, fmt.Errorf("failed to get %s flag: %w", name, err)
		}
		if *dst, err = diag.ParseSeverity(value); err != nil {
			return sf, fmt.Errorf("invalid --%s: %w", name, err)
		}
	}
	if flags.Changed("cache") {
		dir, err := flags.GetString("cache")
		if err != nil {
			return sf, fmt.Errorf("failed to get cache flag: %w", err)
		}
		if dir == "off" {
			dir = ""
		}
		cfg.Analysis.Cache = dir
	}
	return sf, nil
}

// selectChecks builds the configured rule set and validates severity
// overrides against it.
func selectChecks(cfg *config.Config) ([]checks.Check, error) {
	all := checks.Builtin(cfg.Checks)
	known := make(map[string]bool, len(all))
	for _, c := range all {
		known[c.ID()] = true
	}
	for key := range cfg.Rules.Severity {
		if !known[key] {
			return nil, fmt.Errorf("severity override for unknown rule %q", checks.ShortName(key))
		}
	}
	selected, err := checks.Select(all, cfg.Rules.Enable, cfg.Rules.Disable)
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, fmt.Errorf("no rules left to run after --rules/--disable")
	}
	return selected, nil
}

func effectiveSeverities(list []checks.Check, cfg *config.Config) map[string]diag.Severity {
	out := make(map[string]diag.Severity, len(list))
	for _, c := range list {
		sev := c.Severity()
		if over, ok := cfg.Rules.Severity[c.ID()]; ok {
			sev = over
		}
		out[c.ID()] = sev
	}
	return out
}

// reachedFailOn looks at every finding, including those hidden by
// --min-severity or cut by --max-findings.
func reachedFailOn(res *driver.Result, threshold diag.Severity) bool {
	for i := range res.Units {
		for _, f := range res.Units[i].Findings {
			if f.Severity >= threshold {
				return true
			}
		}
	}
	return false
}

func renderFindings(cmd *cobra.Command, w io.Writer, res *driver.Result, selected []checks.Check, sf scanFlags) error {
	pathMode := diagfmt.PathModeAuto
	if sf.fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	switch sf.format {
	case "pretty":
		color, err := useColor(cmd, os.Stdout)
		if err != nil {
			return err
		}
		return diagfmt.Pretty(w, res.Bag, res.FileSet, diagfmt.PrettyOpts{
			Color:     color,
			Context:   1,
			PathMode:  pathMode,
			ShowNotes: sf.withNotes,
		})
	case "short":
		return diagfmt.Short(w, res.Bag, res.FileSet, sf.withNotes)
	case "json":
		return diagfmt.JSON(w, res.Bag, res.FileSet, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         pathMode,
			IncludeNotes:     sf.withNotes,
		})
	case "sarif":
		meta := diagfmt.SarifRunMeta{
			ToolName:       "warden",
			ToolVersion:    version.Current().Version,
			InvocationArgs: os.Args[1:],
		}
		for _, m := range checks.Metas(selected) {
			meta.Rules = append(meta.Rules, diagfmt.SarifRule{
				ID:          m.Key,
				Name:        m.Name,
				Description: m.Description,
				Severity:    strings.ToLower(m.Severity.String()),
				Tags:        m.Tags,
			})
		}
		return diagfmt.Sarif(w, res.Bag, res.FileSet, meta)
	}
	return fmt.Errorf("unknown format: %s", sf.format)
}
