package compare

// TypeCounts aggregates verdicts for one specification entry type.
type TypeCounts struct {
	Conforming    int `json:"conforming"`
	NonConforming int `json:"non_conforming"`
}

// Summary aggregates a verdict set for reporting.
type Summary struct {
	Total         int                      `json:"total"`
	Conforming    int                      `json:"conforming"`
	NonConforming int                      `json:"non_conforming"`
	Unmatched     int                      `json:"unmatched"`
	ByType        map[EntryType]TypeCounts `json:"by_type"`
}

// Summarize counts verdicts overall and per entry type.
func Summarize(verdicts []Verdict) Summary {
	s := Summary{
		ByType: map[EntryType]TypeCounts{
			TypeExact: {}, TypeMin: {}, TypeMax: {}, TypeRange: {},
		},
	}
	for _, v := range verdicts {
		s.Total++
		switch v.Class {
		case Conforming:
			s.Conforming++
		case NonConforming:
			s.NonConforming++
		case Unmatched:
			s.Unmatched++
		}
		if v.Entry == nil {
			continue
		}
		tc := s.ByType[v.Entry.Type]
		switch v.Class {
		case Conforming:
			tc.Conforming++
		case NonConforming:
			tc.NonConforming++
		}
		s.ByType[v.Entry.Type] = tc
	}
	return s
}
