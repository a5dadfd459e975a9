package yfreq

import (
	"flag"
	"fmt"
	"io"
	"iter"
	"os"

	"github.com/jgbaldwinbrown/csvh"
	"github.com/jgbaldwinbrown/iterh"
	log "github.com/sirupsen/logrus"
)

// One individual from a 1000 Genomes style sample panel.
type PanelEntry struct {
	Sample   string
	Pop      string
	SuperPop string
	Gender   string
}

type panelColumns struct {
	sample, pop, superPop, gender int
}

func findPanelColumns(header []string) (panelColumns, error) {
	c := panelColumns{-1, -1, -1, -1}
	for i, name := range header {
		switch name {
		case "sample":
			c.sample = i
		case "pop":
			c.pop = i
		case "super_pop":
			c.superPop = i
		case "gender":
			c.gender = i
		}
	}
	if c.sample < 0 || c.pop < 0 || c.gender < 0 {
		return c, fmt.Errorf("%w: panel header %v lacks sample, pop or gender", ErrMalformedRow, header)
	}
	return c, nil
}

func field(l []string, i int) string {
	if i < 0 || i >= len(l) {
		return ""
	}
	return l[i]
}

func ParsePanel(r io.Reader) iter.Seq2[PanelEntry, error] {
	return func(y func(PanelEntry, error) bool) {
		h := csvh.Handle0("ParsePanel: %w")
		cr := csvh.CsvIn(r)
		cr.FieldsPerRecord = -1

		header, e := cr.Read()
		if e != nil {
			if e == io.EOF {
				e = fmt.Errorf("%w: empty panel", ErrMalformedRow)
			}
			y(PanelEntry{}, h(e))
			return
		}
		cols, e := findPanelColumns(header)
		if e != nil {
			y(PanelEntry{}, h(e))
			return
		}

		for l, e := cr.Read(); e != io.EOF; l, e = cr.Read() {
			if e != nil {
				if !y(PanelEntry{}, h(e)) {
					return
				}
				continue
			}
			if len(l) <= cols.sample || len(l) <= cols.pop || len(l) <= cols.gender {
				if !y(PanelEntry{}, h(fmt.Errorf("%w: panel line %v", ErrMalformedRow, l))) {
					return
				}
				continue
			}
			p := PanelEntry{
				Sample:   l[cols.sample],
				Pop:      l[cols.pop],
				SuperPop: field(l, cols.superPop),
				Gender:   l[cols.gender],
			}
			if !y(p, nil) {
				return
			}
		}
	}
}

func ParsePanelPath(path string) ([]PanelEntry, error) {
	r, e := OpenInput(path)
	if e != nil {
		return nil, e
	}
	defer r.Close()

	ps := iterh.Collect(iterh.BreakOnError(ParsePanel(r), &e))
	if e != nil {
		return nil, e
	}
	return ps, nil
}

func FilterPanel(ps []PanelEntry, pop, gender string) []string {
	var ids []string
	for _, p := range ps {
		if p.Pop == pop && p.Gender == gender {
			ids = append(ids, p.Sample)
		}
	}
	return ids
}

func CountPop(ps []PanelEntry, pop string) int {
	n := 0
	for _, p := range ps {
		if p.Pop == pop {
			n++
		}
	}
	return n
}

func WriteSampleIDs(w io.Writer, ids ...string) error {
	for _, id := range ids {
		if _, e := fmt.Fprintf(w, "%v\n", id); e != nil {
			return e
		}
	}
	return nil
}

func WriteSampleIDsPath(path string, ids ...string) (err error) {
	w, e := csvh.CreateMaybeGz(path)
	if e != nil {
		return fmt.Errorf("%w: %v: %w", ErrWriteFailure, path, e)
	}
	defer func() { csvh.DeferE(&err, w.Close()) }()

	if e := WriteSampleIDs(w, ids...); e != nil {
		return fmt.Errorf("%w: %v: %w", ErrWriteFailure, path, e)
	}
	return nil
}

type ExtractFlags struct {
	Config string
	Panel  string
	Pop    string
	Gender string
	Out    string
}

// ExtractPanel filters the panel and writes the matching sample IDs.
func ExtractPanel(w io.Writer, cfg Config) ([]string, error) {
	ps, e := ParsePanelPath(cfg.Panel)
	if e != nil {
		return nil, e
	}
	ids := FilterPanel(ps, cfg.Population, cfg.Gender)

	fmt.Fprintf(w, "Total samples in panel: %v\n", len(ps))
	fmt.Fprintf(w, "%v samples: %v\n", cfg.Population, CountPop(ps, cfg.Population))
	fmt.Fprintf(w, "%v %v samples: %v\n", cfg.Population, cfg.Gender, len(ids))

	if len(ids) == 0 {
		log.Warnf("no samples with pop %q and gender %q in %v", cfg.Population, cfg.Gender, cfg.Panel)
	}

	if e := WriteSampleIDsPath(cfg.SampleList, ids...); e != nil {
		return nil, e
	}
	fmt.Fprintf(w, "%v %v sample IDs saved to %v\n", cfg.Population, cfg.Gender, cfg.SampleList)
	fmt.Fprintf(w, "First 10 %v %v samples: %v\n", cfg.Population, cfg.Gender, ids[:min(10, len(ids))])
	return ids, nil
}

func FullExtractPanel() {
	var f ExtractFlags
	flag.StringVar(&f.Config, "c", "", "YAML config file")
	flag.StringVar(&f.Panel, "p", "", "panel file (tab separated, with header)")
	flag.StringVar(&f.Pop, "pop", "", "population code to keep")
	flag.StringVar(&f.Gender, "g", "", "gender to keep")
	flag.StringVar(&f.Out, "o", "", "output sample list")
	flag.Parse()

	cfg, e := LoadConfigMaybe(f.Config)
	if e != nil {
		log.Fatal(e)
	}
	cfg = cfg.Override(Config{Panel: f.Panel, Population: f.Pop, Gender: f.Gender, SampleList: f.Out})

	if _, e := ExtractPanel(os.Stdout, cfg); e != nil {
		log.Fatal(e)
	}
}
