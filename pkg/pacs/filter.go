package pacs

import "strings"

// sentinel values accepted in include/exclude lists meaning "unset".
func isSentinel(codes []string) bool {
	if len(codes) == 0 {
		return true
	}
	if len(codes) == 1 {
		switch strings.ToUpper(codes[0]) {
		case "", "ALL", "NONE", "*":
			return true
		}
	}
	return false
}

// ModalityFilter decides whether a study's modality set passes the
// include/exclude policy. Matching is case-insensitive on exact modality
// codes. Exclusion wins over inclusion.
type ModalityFilter struct {
	include map[string]struct{}
	exclude map[string]struct{}
}

// NewModalityFilter builds a filter from raw code lists. An empty or
// sentinel (ALL/NONE/*) include list keeps everything not excluded.
func NewModalityFilter(include, exclude []string) ModalityFilter {
	f := ModalityFilter{}
	if !isSentinel(include) {
		f.include = toSet(include)
	}
	if !isSentinel(exclude) {
		f.exclude = toSet(exclude)
	}
	return f
}

func toSet(codes []string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

// Keep reports whether a study carrying the given modalities passes.
func (f ModalityFilter) Keep(modalities []string) bool {
	for _, m := range modalities {
		if _, drop := f.exclude[strings.ToUpper(m)]; drop {
			return false
		}
	}
	if f.include == nil {
		return true
	}
	for _, m := range modalities {
		if _, ok := f.include[strings.ToUpper(m)]; ok {
			return true
		}
	}
	return false
}
