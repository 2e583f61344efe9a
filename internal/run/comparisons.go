package run

// Names of the generated comparisons every run carries.
const (
	PersonalBestComparisonName = "Personal Best"
	BestSegmentsComparisonName = "Best Segments"
)

// RegenerateComparisons rebuilds the comparison name list: the generated
// comparisons first, then the run's custom comparisons in order.
func (r *Run) RegenerateComparisons() {
	names := make([]string, 0, 2+len(r.customComparisons))
	names = append(names, PersonalBestComparisonName, BestSegmentsComparisonName)
	names = append(names, r.customComparisons...)
	r.comparisons = names
}

// Comparisons returns the current comparison name list. Callers must not
// mutate it.
func (r *Run) Comparisons() []string { return r.comparisons }

// HasComparison reports whether name is in the comparison list.
func (r *Run) HasComparison(name string) bool {
	for _, c := range r.comparisons {
		if c == name {
			return true
		}
	}
	return false
}

// AddCustomComparison registers a custom comparison name. Duplicates are
// ignored.
func (r *Run) AddCustomComparison(name string) {
	for _, c := range r.customComparisons {
		if c == name {
			return
		}
	}
	r.customComparisons = append(r.customComparisons, name)
	r.RegenerateComparisons()
}
