package yfreq

import (
	"database/sql/driver"
	"errors"
)

// NullString is a string that may be absent.
type NullString struct {
	String string
	Valid  bool
}

func Some(s string) NullString {
	return NullString{String: s, Valid: true}
}

func (n NullString) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.String, nil
}

func (n *NullString) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*n = NullString{}
	case string:
		*n = Some(v)
	case []byte:
		*n = Some(string(v))
	default:
		return errors.New("failed to scan NullString")
	}
	return nil
}

func MajorLineage(code string) string {
	if code == "" {
		return ""
	}
	return code[:1]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLower(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

// run returns the end of the longest run of bytes in code starting at i that
// satisfy f. It returns -1 if the run is empty.
func run(code string, i int, f func(byte) bool) int {
	j := i
	for j < len(code) && f(code[j]) {
		j++
	}
	if j == i {
		return -1
	}
	return j
}

func lineageEnd(code, lineage string) int {
	if lineage == "" {
		if len(code) > 0 && isUpper(code[0]) {
			return 1
		}
		return -1
	}
	if len(code) > len(lineage) && code[:len(lineage)] == lineage {
		return len(lineage)
	}
	return -1
}

// SubcladeLevels splits a YCC code into its first three nested prefixes:
// <lineage><digits>, then <lowercase>, then <digits>. A level is null when
// the previous one is null or the next run is missing. An empty lineage
// accepts any uppercase letter.
func SubcladeLevels(code, lineage string) (l1, l2, l3 NullString) {
	i := lineageEnd(code, lineage)
	if i < 0 {
		return
	}
	if i = run(code, i, isDigit); i < 0 {
		return
	}
	l1 = Some(code[:i])
	if i = run(code, i, isLower); i < 0 {
		return
	}
	l2 = Some(code[:i])
	if i = run(code, i, isDigit); i < 0 {
		return
	}
	l3 = Some(code[:i])
	return
}

func Decorate(h HaplogroupRecord, lineage string) HaplogroupRecord {
	h.Major = MajorLineage(h.Haplogroup)
	h.Level1, h.Level2, h.Level3 = SubcladeLevels(h.Haplogroup, lineage)
	return h
}

func DecorateAll(hs []HaplogroupRecord, lineage string) []HaplogroupRecord {
	out := make([]HaplogroupRecord, 0, len(hs))
	for _, h := range hs {
		out = append(out, Decorate(h, lineage))
	}
	return out
}
