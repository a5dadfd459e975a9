package yfreq

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jgbaldwinbrown/csvh"
	"github.com/montanaflynn/stats"
	log "github.com/sirupsen/logrus"
)

func RecordHeader(lineage string) []string {
	return []string{
		"Sample_ID",
		"Terminal_SNP",
		"Representative_SNP",
		"YCC_Haplogroup",
		"Major_Haplogroup",
		lineage + "_Level1",
		lineage + "_Level2",
		lineage + "_Level3",
	}
}

func WriteRecords(w io.Writer, lineage string, hs ...HaplogroupRecord) error {
	cw := csv.NewWriter(w)
	if e := cw.Write(RecordHeader(lineage)); e != nil {
		return e
	}
	for _, h := range hs {
		e := cw.Write([]string{
			h.SampleID,
			h.TerminalSNP,
			h.RepresentativeSNP,
			h.Haplogroup,
			h.Major,
			h.Level1.String,
			h.Level2.String,
			h.Level3.String,
		})
		if e != nil {
			return e
		}
	}
	cw.Flush()
	return cw.Error()
}

func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func WriteTable(w io.Writer, t FrequencyTable) error {
	cw := csv.NewWriter(w)
	if e := cw.Write([]string{t.KeyName, "Count", "Frequency", "Percentage"}); e != nil {
		return e
	}
	for _, r := range t.Rows {
		e := cw.Write([]string{r.Key, strconv.Itoa(r.Count), FormatFloat(r.Frequency), FormatFloat(r.Percentage)})
		if e != nil {
			return e
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTable reads a table written by WriteTable. Total and Missing are not
// stored in the file; Total is set to the sum of the counts.
func ReadTable(r io.Reader) (FrequencyTable, error) {
	h := csvh.Handle0("ReadTable: %w")
	cr := csvh.CsvIn(r)
	cr.Comma = ','
	cr.FieldsPerRecord = 4

	var t FrequencyTable
	header, e := cr.Read()
	if e != nil {
		return t, h(e)
	}
	t.KeyName = header[0]

	for l, e := cr.Read(); e != io.EOF; l, e = cr.Read() {
		if e != nil {
			return t, h(e)
		}
		var row FrequencyRow
		row.Key = l[0]
		if row.Count, e = strconv.Atoi(l[1]); e != nil {
			return t, h(fmt.Errorf("%w: count %q", ErrMalformedRow, l[1]))
		}
		if row.Frequency, e = strconv.ParseFloat(l[2], 64); e != nil {
			return t, h(fmt.Errorf("%w: frequency %q", ErrMalformedRow, l[2]))
		}
		if row.Percentage, e = strconv.ParseFloat(l[3], 64); e != nil {
			return t, h(fmt.Errorf("%w: percentage %q", ErrMalformedRow, l[3]))
		}
		t.Total += row.Count
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func ReadTablePath(path string) (FrequencyTable, error) {
	r, e := OpenInput(path)
	if e != nil {
		return FrequencyTable{}, e
	}
	defer r.Close()
	return ReadTable(r)
}

func round(f float64, places int) float64 {
	r, e := stats.Round(f, places)
	if e != nil {
		return f
	}
	return r
}

// TableText renders a table as right-aligned text columns.
func TableText(t FrequencyTable) string {
	cells := [][]string{{t.KeyName, "Count", "Frequency", "Percentage"}}
	for _, r := range t.Rows {
		cells = append(cells, []string{
			r.Key,
			strconv.Itoa(r.Count),
			strconv.FormatFloat(round(r.Frequency, 4), 'f', 4, 64),
			strconv.FormatFloat(round(r.Percentage, 1), 'f', 1, 64),
		})
	}

	widths := make([]int, len(cells[0]))
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], len(c))
		}
	}

	var b strings.Builder
	for i, row := range cells {
		for j, c := range row {
			if j > 0 {
				b.WriteString("  ")
			}
			fmt.Fprintf(&b, "%*s", widths[j], c)
		}
		if i < len(cells)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func Percentify(f float64) string {
	return fmt.Sprintf("%.1f%%", round(f*100.0, 1))
}

func Summary(cfg Config, a *Analysis) string {
	var b strings.Builder
	total := len(a.Records)
	title := fmt.Sprintf("%v Y-Chromosome Haplogroup Analysis Summary", cfg.Population)

	fmt.Fprintf(&b, "\n%v\n%v\n\n", title, strings.Repeat("=", len(title)))
	fmt.Fprintf(&b, "Total %v %v samples analyzed: %v\n\n", cfg.Population, cfg.Gender, total)
	fmt.Fprintf(&b, "Major Haplogroup Distribution:\n%v\n\n", TableText(a.Major))
	fmt.Fprintf(&b, "%v Haplogroup Subclades (Level 1):\n%v\n\n", a.Lineage, TableText(a.Level1))
	fmt.Fprintf(&b, "Most Common YCC Haplogroups:\n%v\n\n", TableText(a.Codes.Head(cfg.TopN)))

	fmt.Fprintf(&b, "Key Findings:\n")
	frac := float64(a.LineageTotal) / float64(total)
	fmt.Fprintf(&b, "- %v/%v (%v) belong to haplogroup %v", a.LineageTotal, total, Percentify(frac), a.Lineage)
	if lo, hi, e := WilsonInterval(a.LineageTotal, total, 0.95); e == nil {
		fmt.Fprintf(&b, " (95%% CI %v-%v)", Percentify(lo), Percentify(hi))
	}
	b.WriteString("\n")
	if len(a.Level2.Rows) > 0 {
		top := a.Level2.Rows[0]
		fmt.Fprintf(&b, "- %v is the most common %v subclade at level 2 (%v/%v, %v)\n",
			top.Key, a.Lineage, top.Count, a.Level2.Total, Percentify(top.Frequency))
	}
	fmt.Fprintf(&b, "- %v distinct YCC haplogroups and %v distinct terminal SNPs\n", len(a.Codes.Rows), len(a.Terminals.Rows))
	if h, se, e := HaplogroupDiversity(a.Codes); e == nil {
		fmt.Fprintf(&b, "- Haplogroup diversity %.4f (SE %.4f)\n", round(h, 4), round(se, 4))
	}
	b.WriteString("\n")
	return b.String()
}

type OutputPaths struct {
	Records   string
	Major     string
	Codes     string
	Terminals string
	Levels    [3]string
	Summary   string
}

func (o OutputPaths) All() []string {
	return []string{o.Records, o.Major, o.Codes, o.Terminals, o.Levels[0], o.Levels[1], o.Levels[2], o.Summary}
}

func GetOutputPaths(cfg Config, lineage string) OutputPaths {
	p := func(name string) string {
		return filepath.Join(cfg.OutDir, cfg.Prefix+"_"+name)
	}
	var o OutputPaths
	o.Records = p("haplogroups_analyzed.csv")
	o.Major = p("major_haplogroup_frequencies.csv")
	o.Codes = p("ycc_haplogroup_frequencies.csv")
	o.Terminals = p("terminal_snp_frequencies.csv")
	for i := range o.Levels {
		o.Levels[i] = p(fmt.Sprintf("%v_subclade_l%v_frequencies.csv", strings.ToLower(lineage), i+1))
	}
	o.Summary = p("haplogroup_analysis_summary.txt")
	return o
}

func WritePath(path string, write func(w io.Writer) error) (err error) {
	w, e := csvh.CreateMaybeGz(path)
	if e != nil {
		return fmt.Errorf("%w: %v: %w", ErrWriteFailure, path, e)
	}
	defer func() {
		if e := w.Close(); e != nil && err == nil {
			err = fmt.Errorf("%w: %v: %w", ErrWriteFailure, path, e)
		}
	}()

	if e := write(w); e != nil {
		return fmt.Errorf("%w: %v: %w", ErrWriteFailure, path, e)
	}
	return nil
}

func WriteAnalysis(cfg Config, a *Analysis) (OutputPaths, error) {
	o := GetOutputPaths(cfg, a.Lineage)
	if e := os.MkdirAll(cfg.OutDir, 0o755); e != nil {
		return o, fmt.Errorf("%w: %v: %w", ErrWriteFailure, cfg.OutDir, e)
	}

	e := WritePath(o.Records, func(w io.Writer) error {
		return WriteRecords(w, a.Lineage, a.Records...)
	})
	if e != nil {
		return o, e
	}

	tables := []struct {
		path string
		t    FrequencyTable
	}{
		{o.Major, a.Major},
		{o.Codes, a.Codes},
		{o.Terminals, a.Terminals},
		{o.Levels[0], a.Level1},
		{o.Levels[1], a.Level2},
		{o.Levels[2], a.Level3},
	}
	for _, tab := range tables {
		e := WritePath(tab.path, func(w io.Writer) error {
			return WriteTable(w, tab.t)
		})
		if e != nil {
			return o, e
		}
	}

	e = WritePath(o.Summary, func(w io.Writer) error {
		_, e := io.WriteString(w, Summary(cfg, a))
		return e
	})
	return o, e
}

// RunAnalyze loads the haplogroup calls, builds every table and writes them.
// Nothing is written if loading or aggregation fails.
func RunAnalyze(w io.Writer, cfg Config) (*Analysis, OutputPaths, error) {
	hs, e := ParseHaplogroupsPath(cfg.Haplogroups)
	if e != nil {
		return nil, OutputPaths{}, e
	}
	fmt.Fprintf(w, "Loaded %v %v %v samples\n", len(hs), cfg.Population, cfg.Gender)
	fmt.Fprintf(w, "Unique YCC haplogroups: %v\n", CountUnique(hs, ByHaplogroup))
	fmt.Fprintf(w, "Unique terminal SNPs: %v\n", CountUnique(hs, ByTerminalSNP))

	a, e := Analyze(hs, cfg.AnalysisLineage())
	if e != nil {
		return nil, OutputPaths{}, e
	}
	for _, t := range a.Tables() {
		if e := CheckTable(t); e != nil {
			return nil, OutputPaths{}, e
		}
		if t.Missing > 0 {
			log.Warnf("%v: %v of %v records have no value", t.KeyName, t.Missing, t.Total)
		}
	}

	o, e := WriteAnalysis(cfg, a)
	if e != nil {
		return a, o, e
	}
	fmt.Fprintln(w, "Analysis complete! Files saved:")
	for _, path := range o.All() {
		fmt.Fprintf(w, "- %v\n", path)
	}
	return a, o, nil
}

type AnalyzeFlags struct {
	Config  string
	Input   string
	OutDir  string
	Prefix  string
	Lineage string
	TopN    int
	DB      string
	Debug   bool
}

func GetAnalyzeFlags() AnalyzeFlags {
	var f AnalyzeFlags
	flag.StringVar(&f.Config, "c", "", "YAML config file")
	flag.StringVar(&f.Input, "i", "", "yhaplo haplogroup calls (whitespace separated, no header)")
	flag.StringVar(&f.OutDir, "o", "", "output directory")
	flag.StringVar(&f.Prefix, "prefix", "", "output file prefix")
	flag.StringVar(&f.Lineage, "lineage", "", "major lineage for subclade tables (or \"auto\")")
	flag.IntVar(&f.TopN, "top", 0, "haplogroups listed in the summary")
	flag.StringVar(&f.DB, "db", "", "also save the analysis to this SQLite database")
	flag.BoolVar(&f.Debug, "debug", false, "log SQL queries")
	flag.Parse()
	return f
}

func (f AnalyzeFlags) Apply(cfg Config) Config {
	return cfg.Override(Config{
		Haplogroups: f.Input,
		OutDir:      f.OutDir,
		Prefix:      f.Prefix,
		Lineage:     f.Lineage,
		TopN:        f.TopN,
		DB:          f.DB,
	})
}

// AnalysisSaver stores a finished analysis in the database at dsn under a run label.
type AnalysisSaver func(ctx context.Context, dsn string, debug bool, run string, a *Analysis) error

// AnalyzeAndSave runs the analysis described by f and, when a database is
// configured, hands the result to save under the population label.
func AnalyzeAndSave(ctx context.Context, w io.Writer, f AnalyzeFlags, save AnalysisSaver) (*Analysis, error) {
	cfg, e := LoadConfigMaybe(f.Config)
	if e != nil {
		return nil, e
	}
	cfg = f.Apply(cfg)

	a, _, e := RunAnalyze(w, cfg)
	if e != nil {
		return nil, e
	}

	if cfg.DB == "" || save == nil {
		return a, nil
	}
	if e := save(ctx, cfg.DB, f.Debug, cfg.Population, a); e != nil {
		return a, fmt.Errorf("AnalyzeAndSave: %v: %w", cfg.DB, e)
	}
	log.Infof("saved analysis %q to %v", cfg.Population, cfg.DB)
	return a, nil
}

func FullAnalyze(save AnalysisSaver) {
	f := GetAnalyzeFlags()
	if _, e := AnalyzeAndSave(context.Background(), os.Stdout, f, save); e != nil {
		log.Fatal(e)
	}
}
