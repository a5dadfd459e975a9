package yfreq

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jgbaldwinbrown/csvh"
)

var (
	ErrInputNotFound = errors.New("input not found")
	ErrMalformedRow  = errors.New("malformed row")
	ErrEmptyScope    = errors.New("empty scope")
	ErrWriteFailure  = errors.New("write failure")
)

// One line of yhaplo output plus the fields derived from its haplogroup code.
type HaplogroupRecord struct {
	SampleID          string
	TerminalSNP       string
	RepresentativeSNP string
	Haplogroup        string

	Major  string
	Level1 NullString
	Level2 NullString
	Level3 NullString
}

func ShouldSkipHaploLine(line string) bool {
	return strings.TrimSpace(line) == ""
}

// strings.Fields splits on runs of whitespace, so every token comes back trimmed.
func ParseHaplogroupLine(s string) (HaplogroupRecord, error) {
	line := strings.Fields(s)
	if len(line) != 4 {
		return HaplogroupRecord{}, fmt.Errorf("%w: %v fields, expected 4", ErrMalformedRow, len(line))
	}
	var h HaplogroupRecord
	_, e := csvh.Scan(line, &h.SampleID, &h.TerminalSNP, &h.RepresentativeSNP, &h.Haplogroup)
	return h, e
}

func ParseHaplogroups(r io.Reader) ([]HaplogroupRecord, error) {
	s := bufio.NewScanner(r)
	var hs []HaplogroupRecord
	for i := 1; s.Scan(); i++ {
		if ShouldSkipHaploLine(s.Text()) {
			continue
		}
		h, e := ParseHaplogroupLine(s.Text())
		if e != nil {
			return nil, fmt.Errorf("ParseHaplogroups: line %v %q: %w", i, s.Text(), e)
		}
		hs = append(hs, h)
	}
	if e := s.Err(); e != nil {
		return nil, fmt.Errorf("ParseHaplogroups: %w", e)
	}
	return hs, nil
}

func OpenInput(path string) (io.ReadCloser, error) {
	r, e := csvh.OpenMaybeGz(path)
	if e != nil {
		return nil, fmt.Errorf("%w: %v: %w", ErrInputNotFound, path, e)
	}
	return r, nil
}

func ParseHaplogroupsPath(path string) ([]HaplogroupRecord, error) {
	r, e := OpenInput(path)
	if e != nil {
		return nil, e
	}
	defer r.Close()
	return ParseHaplogroups(r)
}
