// Package report renders a detect run's groups to text, CSV or JSON
// (§6). Rendering is treated as an external collaborator by the spec,
// so this package depends only on the plain omnidupe.Group values the
// detector returns, never on the catalog.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/kerr23/omnidupe/pkg/omnidupe"
)

// Format selects a renderer.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// Extension returns the file extension for the report artifact name
// described in §6 (duplicate_report_<timestamp>.{txt|csv|json}).
func (f Format) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// jsonGroup is the per-group shape named in §6: group_id,
// detection_method, similarity_score, keeper, duplicates.
type jsonGroup struct {
	GroupID          int      `json:"group_id"`
	DetectionMethod  string   `json:"detection_method"`
	SimilarityScore  *float64 `json:"similarity_score"`
	Keeper           string   `json:"keeper"`
	Duplicates       []string `json:"duplicates"`
}

// jsonReport is the top-level document written for --report-format json.
type jsonReport struct {
	GeneratedAt string      `json:"generated_at"`
	GroupCount  int         `json:"group_count"`
	Groups      []jsonGroup `json:"groups"`
}

// Render writes groups to w in the requested format.
func Render(w io.Writer, format Format, groups []*omnidupe.Group, generatedAt string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, groups, generatedAt)
	case FormatCSV:
		return renderCSV(w, groups)
	default:
		return renderText(w, groups, generatedAt)
	}
}

func renderJSON(w io.Writer, groups []*omnidupe.Group, generatedAt string) error {
	doc := jsonReport{GeneratedAt: generatedAt, GroupCount: len(groups)}
	for i, g := range groups {
		jg := jsonGroup{
			GroupID:         i + 1,
			DetectionMethod: string(g.Kind),
			SimilarityScore: g.SimilarityScore,
		}
		if keeper := g.Keeper(); keeper != nil {
			jg.Keeper = keeper.FilePath
		}
		for idx, m := range g.Members {
			if idx == g.KeeperIndex {
				continue
			}
			jg.Duplicates = append(jg.Duplicates, m.FilePath)
		}
		doc.Groups = append(doc.Groups, jg)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// renderCSV writes one row per non-keeper member, per §6.
func renderCSV(w io.Writer, groups []*omnidupe.Group) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"group_id", "kind", "keeper_path", "duplicate_path", "file_size", "removal_reason"}); err != nil {
		return err
	}
	for i, g := range groups {
		keeper := g.Keeper()
		keeperPath := ""
		if keeper != nil {
			keeperPath = keeper.FilePath
		}
		reason := omnidupe.ReasonForKind(g.Kind)
		for idx, m := range g.Members {
			if idx == g.KeeperIndex {
				continue
			}
			row := []string{
				fmt.Sprintf("%d", i+1),
				string(g.Kind),
				keeperPath,
				m.FilePath,
				fmt.Sprintf("%d", m.FileSize),
				reason,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	return cw.Error()
}

const textTemplate = `OmniDupe duplicate report
generated: {{.GeneratedAt}}
groups found: {{.GroupCount}}
estimated reclaimable: {{.Reclaimable}}

{{range $i, $g := .Groups}}Group {{inc $i}} [{{$g.Kind}}]{{if $g.Score}} score={{$g.Score}}{{end}}
  keeper: {{$g.Keeper}}
{{range $g.Duplicates}}  duplicate: {{.}}
{{end}}
{{end}}`

var textFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

type textGroup struct {
	Kind       string
	Score      string
	Keeper     string
	Duplicates []string
}

// renderText produces the human-readable summary described in §6: the
// total group count and estimated reclaimable size up front, then one
// section per group.
func renderText(w io.Writer, groups []*omnidupe.Group, generatedAt string) error {
	var reclaimable int64
	tgs := make([]textGroup, 0, len(groups))
	for _, g := range groups {
		tg := textGroup{Kind: string(g.Kind)}
		if keeper := g.Keeper(); keeper != nil {
			tg.Keeper = keeper.FilePath
		}
		if g.SimilarityScore != nil {
			tg.Score = fmt.Sprintf("%.1f", *g.SimilarityScore)
		}
		for idx, m := range g.Members {
			if idx == g.KeeperIndex {
				continue
			}
			tg.Duplicates = append(tg.Duplicates, m.FilePath)
			reclaimable += m.FileSize
		}
		tgs = append(tgs, tg)
	}

	tmpl, err := template.New("report").Funcs(textFuncs).Parse(textTemplate)
	if err != nil {
		return err
	}
	return tmpl.Execute(w, struct {
		GeneratedAt string
		GroupCount  int
		Reclaimable string
		Groups      []textGroup
	}{generatedAt, len(groups), humanize.Bytes(uint64(reclaimable)), tgs})
}

// RemovalScript writes a POSIX shell script deleting every record in
// candidates, one `rm` per file, single-quote-escaped (§6, §9.1). The
// caller passes the already-filtered removal set (candidates never
// include a group's keeper), so no grouping information is needed here.
func RemovalScript(w io.Writer, candidates []*omnidupe.ImageRecord) error {
	if _, err := fmt.Fprintln(w, "#!/bin/sh"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "set -e"); err != nil {
		return err
	}
	for _, c := range candidates {
		if _, err := fmt.Fprintf(w, "rm -f -- '%s'\n", shellEscape(c.FilePath)); err != nil {
			return err
		}
	}
	return nil
}

func shellEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, []byte(`'"'"'`)...)
		} else {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// FileName returns the timestamped artifact name described in §6.
func FileName(outputDir string, format Format, generatedAt string) string {
	return filepath.Join(outputDir, fmt.Sprintf("duplicate_report_%s.%s", generatedAt, format.Extension()))
}

// ScriptFileName returns the §6 removal-script artifact path:
// <output-dir>/removal_script_<timestamp>.sh.
func ScriptFileName(outputDir string, generatedAt string) string {
	return filepath.Join(outputDir, fmt.Sprintf("removal_script_%s.sh", generatedAt))
}
