package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ingest"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/kpi"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ranking"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score and rank assets",
	Long: `Score assets from a workbook or from the store and print the ranked table.

Nothing is written to the store; use import or recalc to persist scores.

Examples:
  # Rank every stored asset by overall score
  score --sort overall --desc

  # Score a workbook without importing it
  score --file pipeline.xlsx --sheet Projects

  # Redevelopment projects in PJM as CSV
  score --project-type Redev --iso PJM --format csv --output pjm.csv

  # Try alternate weights
  score --weights weights.yaml --format yaml`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("file", "", "score a workbook (.xlsx/.csv or ftp:// URL) instead of the store")
	f.String("sheet", "", "sheet name for xlsx files (overrides config)")
	f.String("project-type", "", "filter by project type (All, Redev, M&A, Owned)")
	f.String("rating", "", "filter by rating (Strong, Moderate, Weak, N/A)")
	f.String("iso", "", "filter by ISO/market")
	f.String("process", "", "filter by process type (P or B)")
	f.String("owner", "", "filter by plant owner")
	f.String("tech", "", "filter by technology")
	f.String("search", "", "free-text search")
	f.String("sort", "", "sort column key (e.g. overall, thermal, redev, mw)")
	f.Bool("desc", false, "sort descending")
	f.String("format", "table", "output format: table, csv, json or yaml")
	f.String("output", "", "output file path (default: stdout)")
	addScoringFlags(scoreCmd)

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "table", "csv", "json", "yaml":
	default:
		return eris.Errorf("score: --format must be table, csv, json or yaml (got %q)", format)
	}

	view, err := viewFromFlags(cmd)
	if err != nil {
		return err
	}

	calc, err := initCalculator(cmd)
	if err != nil {
		return err
	}

	var assets []model.AssetRecord
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		res, err := ingest.LoadFile(ctx, file, importOptions(cmd))
		if err != nil {
			return eris.Wrap(err, "score: load file")
		}
		if res.Skipped > 0 {
			zap.L().Warn("skipped rows without a project name", zap.Int("skipped", res.Skipped))
		}
		assets = res.Assets
	} else {
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if assets, err = st.ListAssets(ctx, store.AssetFilter{}); err != nil {
			return eris.Wrap(err, "score: list assets")
		}
	}

	year := currentYear(cmd)
	rows := ranking.Apply(ranking.NewRows(assets, calc, year), view)

	outputPath, _ := cmd.Flags().GetString("output")
	w, closeFn, err := openOutput(cmd, outputPath)
	if err != nil {
		return err
	}
	if err := writeScores(w, format, rows); err != nil {
		closeFn() //nolint:errcheck
		return err
	}
	if err := closeFn(); err != nil {
		return eris.Wrap(err, "score: close output")
	}

	printScoreSummary(cmd.ErrOrStderr(), kpi.Summarize(rows, year))
	return nil
}

func viewFromFlags(cmd *cobra.Command) (ranking.View, error) {
	get := func(name string) string {
		v, _ := cmd.Flags().GetString(name)
		return v
	}
	v := ranking.View{
		ProjectType: get("project-type"),
		Rating:      get("rating"),
		ISO:         get("iso"),
		Process:     get("process"),
		Owner:       get("owner"),
		Tech:        get("tech"),
		Search:      get("search"),
	}

	if col := get("sort"); col != "" {
		if _, ok := ranking.LookupColumn(col); !ok {
			return v, eris.Errorf("score: unknown sort column %q", col)
		}
		dir := ranking.DirAsc
		if desc, _ := cmd.Flags().GetBool("desc"); desc {
			dir = ranking.DirDesc
		}
		v.Sort = ranking.SortState{Column: col, Direction: dir}
	}
	return v, nil
}

// scoreRecord is the flat shape written by the csv, json and yaml formats.
type scoreRecord struct {
	ID             string   `json:"id,omitempty" yaml:"id,omitempty"`
	Project        string   `json:"project" yaml:"project"`
	Owner          string   `json:"owner" yaml:"owner"`
	ISO            string   `json:"iso" yaml:"iso"`
	Status         string   `json:"status" yaml:"status"`
	Thermal        *float64 `json:"thermal" yaml:"thermal"`
	Redevelopment  *float64 `json:"redevelopment" yaml:"redevelopment"`
	Overall        *float64 `json:"overall" yaml:"overall"`
	Infrastructure *float64 `json:"infrastructure" yaml:"infrastructure"`
	Rating         string   `json:"rating" yaml:"rating"`
	Confidence     int      `json:"confidence" yaml:"confidence"`
}

func scorePtr(s scoring.Score) *float64 {
	if !s.Valid {
		return nil
	}
	v := s.Round().Value
	return &v
}

func toRecord(r ranking.Row) scoreRecord {
	res := r.Result
	return scoreRecord{
		ID:             r.Asset.ID,
		Project:        r.Asset.DisplayName(),
		Owner:          r.Asset.PlantOwner,
		ISO:            r.Asset.ISO,
		Status:         string(r.Status),
		Thermal:        scorePtr(res.ThermalScore),
		Redevelopment:  scorePtr(res.RedevelopmentScore),
		Overall:        scorePtr(res.OverallScore),
		Infrastructure: scorePtr(res.InfrastructureScore),
		Rating:         string(res.Rating),
		Confidence:     res.Confidence,
	}
}

func writeScores(w io.Writer, format string, rows []ranking.Row) error {
	records := make([]scoreRecord, len(rows))
	for i, r := range rows {
		records[i] = toRecord(r)
	}

	switch format {
	case "csv":
		return writeScoreCSV(w, rows)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(records), "score: write json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return eris.Wrap(err, "score: write yaml")
		}
		return eris.Wrap(enc.Close(), "score: write yaml")
	case "table":
		return writeScoreTable(w, rows)
	default:
		return eris.Errorf("score: unsupported format %q", format)
	}
}

func writeScoreCSV(w io.Writer, rows []ranking.Row) error {
	cw := csv.NewWriter(w)

	header := []string{"id", "project", "owner", "iso", "status", "thermal", "redevelopment", "overall", "infrastructure", "rating", "confidence"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "score: write CSV header")
	}

	for _, r := range rows {
		res := r.Result
		row := []string{
			r.Asset.ID,
			r.Asset.DisplayName(),
			r.Asset.PlantOwner,
			r.Asset.ISO,
			string(r.Status),
			res.ThermalScore.String(),
			res.RedevelopmentScore.String(),
			res.OverallScore.String(),
			res.InfrastructureScore.String(),
			string(res.Rating),
			strconv.Itoa(res.Confidence),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "score: write CSV row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "score: flush CSV")
}

func writeScoreTable(w io.Writer, rows []ranking.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPROJECT\tOWNER\tMKT\tSTATUS\tTHERMAL\tREDEV\tOVERALL\tRATING") //nolint:errcheck
	for i, r := range rows {
		name := r.Asset.DisplayName()
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		res := r.Result
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", //nolint:errcheck
			i+1, name, r.Asset.PlantOwner, r.Asset.ISO, r.Status,
			res.ThermalScore, res.RedevelopmentScore, res.OverallScore, res.Rating)
	}
	return eris.Wrap(tw.Flush(), "score: write table")
}

func printScoreSummary(w io.Writer, s kpi.Summary) {
	if s.ProjectCount == 0 {
		fmt.Fprintln(w, "No results.") //nolint:errcheck
		return
	}
	fmt.Fprintf(w, "\n--- Summary ---\n")                                                                               //nolint:errcheck
	fmt.Fprintf(w, "Projects:       %d (%d process, %d bilateral)\n", s.ProjectCount, s.ProcessCount, s.BilateralCount) //nolint:errcheck
	fmt.Fprintf(w, "Capacity:       %.1f GW\n", s.TotalCapacityGW)                                                      //nolint:errcheck
	fmt.Fprintf(w, "Avg overall:    %s\n", s.AvgOverall)                                                                //nolint:errcheck
	fmt.Fprintf(w, "Ratings:        %s\n", formatRatings(s.Ratings))                                                    //nolint:errcheck
}

func formatRatings(counts map[scoring.Rating]int) string {
	order := []scoring.Rating{scoring.RatingStrong, scoring.RatingModerate, scoring.RatingWeak, scoring.RatingNA}
	parts := make([]string, 0, len(order))
	for _, r := range order {
		if n := counts[r]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", r, n))
		}
	}
	return strings.Join(parts, ", ")
}
