package view

import "github.com/mesh-intelligence/agencydesk/pkg/types"

// Stats is the summary shown above a collection's table.
type Stats struct {
	Total    int                `json:"total"`
	ByStatus map[string]int     `json:"by_status,omitempty"`
	Sums     map[string]float64 `json:"sums,omitempty"`
}

// Summarize counts records per value of spec.StatusField and adds up every
// spec.SumFields entry. Non-numeric values contribute nothing to a sum.
func Summarize(records []types.Record, spec types.CollectionSpec) Stats {
	st := Stats{Total: len(records)}
	if spec.StatusField != "" {
		st.ByStatus = map[string]int{}
	}
	if len(spec.SumFields) > 0 {
		st.Sums = make(map[string]float64, len(spec.SumFields))
		for _, f := range spec.SumFields {
			st.Sums[f] = 0
		}
	}
	for _, r := range records {
		if spec.StatusField != "" {
			if v, ok := r.Value(spec.StatusField); ok && v != nil {
				st.ByStatus[Text(v)]++
			}
		}
		for _, f := range spec.SumFields {
			v, _ := r.Value(f)
			if n, ok := Number(v); ok {
				st.Sums[f] += n
			}
		}
	}
	return st
}
