package po

// Summary partitions a filtered set into completed and pending records.
type Summary struct {
	Sudah int `json:"sudah"`
	Belum int `json:"belum"`
}

// Total returns the size of the summarised set.
func (s Summary) Total() int {
	return s.Sudah + s.Belum
}

// StatusSummary counts Sudah records; anything else, blank included, is Belum.
func StatusSummary(filtered []Record) Summary {
	var s Summary
	for _, rec := range filtered {
		if rec.IsDone() {
			s.Sudah++
		} else {
			s.Belum++
		}
	}
	return s
}
