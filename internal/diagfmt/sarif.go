package diagfmt

import (
	"encoding/json"
	"io"
	"sort"

	"warden/internal/diag"
	"warden/internal/source"
)

const sarifSchema = "https://json.schemastore.org/sarif-2.1.0.json"

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool        sarifTool         `json:"tool"`
	Invocations []sarifInvocation `json:"invocations,omitempty"`
	Results     []sarifResult     `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string           `json:"name"`
	Version        string           `json:"version,omitempty"`
	InformationURI string           `json:"informationUri,omitempty"`
	Rules          []sarifRuleEntry `json:"rules,omitempty"`
}

type sarifRuleEntry struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name,omitempty"`
	ShortDescription     *sarifMessage    `json:"shortDescription,omitempty"`
	DefaultConfiguration *sarifRuleConfig `json:"defaultConfiguration,omitempty"`
	Properties           map[string]any   `json:"properties,omitempty"`
}

type sarifRuleConfig struct {
	Level string `json:"level"`
}

type sarifInvocation struct {
	Arguments           []string `json:"arguments,omitempty"`
	ExecutionSuccessful bool     `json:"executionSuccessful"`
}

type sarifResult struct {
	RuleID           string          `json:"ruleId"`
	RuleIndex        *int            `json:"ruleIndex,omitempty"`
	Level            string          `json:"level"`
	Message          sarifMessage    `json:"message"`
	Locations        []sarifLocation `json:"locations"`
	RelatedLocations []sarifLocation `json:"relatedLocations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	ID       int           `json:"id,omitempty"`
	Physical sarifPhysical `json:"physicalLocation"`
	Message  *sarifMessage `json:"message,omitempty"`
}

type sarifPhysical struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           sarifRegion   `json:"region"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   uint32 `json:"startLine"`
	StartColumn uint32 `json:"startColumn,omitempty"`
	EndLine     uint32 `json:"endLine,omitempty"`
	EndColumn   uint32 `json:"endColumn,omitempty"`
	CharOffset  uint32 `json:"charOffset"`
	CharLength  uint32 `json:"charLength"`
}

// sarifLevel maps severities onto the three SARIF result levels.
func sarifLevel(sev diag.Severity) string {
	switch sev {
	case diag.SevCritical, diag.SevMajor:
		return "error"
	case diag.SevMinor:
		return "warning"
	default:
		return "note"
	}
}

// Sarif форматирует находки в SARIF формат (v2.1.0).
func Sarif(w io.Writer, bag *diag.Bag, fs *source.FileSet, meta SarifRunMeta) error {
	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           meta.ToolName,
			Version:        meta.ToolVersion,
			InformationURI: meta.InformationURI,
		}},
		Results: make([]sarifResult, 0, bag.Len()),
	}
	if len(meta.InvocationArgs) > 0 {
		run.Invocations = []sarifInvocation{{Arguments: meta.InvocationArgs, ExecutionSuccessful: true}}
	}

	rules := append([]SarifRule(nil), meta.Rules...)
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	index := make(map[string]int, len(rules))
	for i, r := range rules {
		index[r.ID] = i
		entry := sarifRuleEntry{ID: r.ID, Name: r.Name}
		if r.Description != "" {
			entry.ShortDescription = &sarifMessage{Text: r.Description}
		}
		if sev, err := diag.ParseSeverity(r.Severity); err == nil {
			entry.DefaultConfiguration = &sarifRuleConfig{Level: sarifLevel(sev)}
			entry.Properties = map[string]any{"severity": r.Severity}
		}
		if len(r.Tags) > 0 {
			if entry.Properties == nil {
				entry.Properties = map[string]any{}
			}
			entry.Properties["tags"] = r.Tags
		}
		run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, entry)
	}

	for _, f := range bag.Items() {
		res := sarifResult{
			RuleID:    f.Rule,
			Level:     sarifLevel(f.Severity),
			Message:   sarifMessage{Text: f.Message},
			Locations: []sarifLocation{sarifLoc(fs, f.Primary)},
		}
		if i, ok := index[f.Rule]; ok {
			res.RuleIndex = &i
		}
		for j, n := range f.Notes {
			loc := sarifLoc(fs, n.Span)
			loc.ID = j + 1
			loc.Message = &sarifMessage{Text: n.Msg}
			res.RelatedLocations = append(res.RelatedLocations, loc)
		}
		run.Results = append(run.Results, res)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sarifLog{Schema: sarifSchema, Version: "2.1.0", Runs: []sarifRun{run}})
}

func sarifLoc(fs *source.FileSet, span source.Span) sarifLocation {
	start, end := fs.Resolve(span)
	return sarifLocation{Physical: sarifPhysical{
		ArtifactLocation: sarifArtifact{URI: displayPath(fs, span.File, PathModeRelative)},
		Region: sarifRegion{
			StartLine:   max(start.Line, 1),
			StartColumn: start.Col,
			EndLine:     end.Line,
			EndColumn:   end.Col,
			CharOffset:  span.Start,
			CharLength:  span.Len(),
		},
	}}
}
