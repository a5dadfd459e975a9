package yfreq

import (
	"cmp"
	"fmt"

	"golang.org/x/exp/slices"
)

type FrequencyRow struct {
	Key        string
	Count      int
	Frequency  float64
	Percentage float64
}

// FrequencyTable holds the counts of one key over one scope. Records whose key
// is null are left out of Rows and counted in Missing, so the counts in Rows
// plus Missing always add up to Total.
type FrequencyTable struct {
	KeyName string
	Scope   string
	Total   int
	Missing int
	Rows    []FrequencyRow
}

type KeyFunc func(HaplogroupRecord) NullString

func ByMajor(h HaplogroupRecord) NullString       { return Some(h.Major) }
func ByHaplogroup(h HaplogroupRecord) NullString  { return Some(h.Haplogroup) }
func ByTerminalSNP(h HaplogroupRecord) NullString { return Some(h.TerminalSNP) }
func ByLevel1(h HaplogroupRecord) NullString      { return h.Level1 }
func ByLevel2(h HaplogroupRecord) NullString      { return h.Level2 }
func ByLevel3(h HaplogroupRecord) NullString      { return h.Level3 }

// Rows are ordered by descending count; equal counts keep the order in which
// the key was first seen.
func Tabulate(keyName, scope string, hs []HaplogroupRecord, key KeyFunc) (FrequencyTable, error) {
	t := FrequencyTable{KeyName: keyName, Scope: scope, Total: len(hs)}
	if t.Total == 0 {
		return t, fmt.Errorf("Tabulate %v (scope %v): %w", keyName, scope, ErrEmptyScope)
	}

	idx := map[string]int{}
	for _, h := range hs {
		k := key(h)
		if !k.Valid {
			t.Missing++
			continue
		}
		i, ok := idx[k.String]
		if !ok {
			i = len(t.Rows)
			idx[k.String] = i
			t.Rows = append(t.Rows, FrequencyRow{Key: k.String})
		}
		t.Rows[i].Count++
	}

	slices.SortStableFunc(t.Rows, func(a, b FrequencyRow) int {
		return cmp.Compare(b.Count, a.Count)
	})

	for i := range t.Rows {
		t.Rows[i].Frequency = float64(t.Rows[i].Count) / float64(t.Total)
		t.Rows[i].Percentage = t.Rows[i].Frequency * 100
	}
	return t, nil
}

func (t FrequencyTable) Head(n int) FrequencyTable {
	if n >= 0 && n < len(t.Rows) {
		t.Rows = t.Rows[:n]
	}
	return t
}

func (t FrequencyTable) Get(key string) (FrequencyRow, bool) {
	for _, r := range t.Rows {
		if r.Key == key {
			return r, true
		}
	}
	return FrequencyRow{}, false
}

func FilterMajor(hs []HaplogroupRecord, lineage string) []HaplogroupRecord {
	var out []HaplogroupRecord
	for _, h := range hs {
		if h.Major == lineage {
			out = append(out, h)
		}
	}
	return out
}

func CountUnique(hs []HaplogroupRecord, key KeyFunc) int {
	seen := map[string]struct{}{}
	for _, h := range hs {
		if k := key(h); k.Valid {
			seen[k.String] = struct{}{}
		}
	}
	return len(seen)
}

type Analysis struct {
	Lineage      string
	Records      []HaplogroupRecord
	LineageTotal int

	Major     FrequencyTable
	Codes     FrequencyTable
	Terminals FrequencyTable
	Level1    FrequencyTable
	Level2    FrequencyTable
	Level3    FrequencyTable
}

func (a *Analysis) Tables() []FrequencyTable {
	return []FrequencyTable{a.Major, a.Codes, a.Terminals, a.Level1, a.Level2, a.Level3}
}

func SubcladeKeyName(lineage string, level int) string {
	return fmt.Sprintf("%v_Subclade_L%v", lineage, level)
}

// Analyze decorates the records and builds the six frequency tables. The
// subclade tables cover only records of the given major lineage; an empty
// lineage picks the most common one.
func Analyze(hs []HaplogroupRecord, lineage string) (*Analysis, error) {
	h := func(e error) error {
		return fmt.Errorf("Analyze: %w", e)
	}
	if len(hs) == 0 {
		return nil, h(fmt.Errorf("no records: %w", ErrEmptyScope))
	}

	a := &Analysis{Lineage: lineage}
	a.Records = DecorateAll(hs, lineage)

	var e error
	if a.Major, e = Tabulate("Haplogroup", "all", a.Records, ByMajor); e != nil {
		return nil, h(e)
	}
	if a.Lineage == "" {
		a.Lineage = a.Major.Rows[0].Key
		a.Records = DecorateAll(hs, a.Lineage)
	}
	if a.Codes, e = Tabulate("YCC_Haplogroup", "all", a.Records, ByHaplogroup); e != nil {
		return nil, h(e)
	}
	if a.Terminals, e = Tabulate("Terminal_SNP", "all", a.Records, ByTerminalSNP); e != nil {
		return nil, h(e)
	}

	sub := FilterMajor(a.Records, a.Lineage)
	a.LineageTotal = len(sub)
	for i, dst := range []*FrequencyTable{&a.Level1, &a.Level2, &a.Level3} {
		key := []KeyFunc{ByLevel1, ByLevel2, ByLevel3}[i]
		if *dst, e = Tabulate(SubcladeKeyName(a.Lineage, i+1), a.Lineage, sub, key); e != nil {
			return nil, h(e)
		}
	}
	return a, nil
}
