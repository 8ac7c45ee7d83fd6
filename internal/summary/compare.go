package summary

// FileColumns lists the columns one file has beyond the common set.
type FileColumns struct {
	ID       string   `json:"id" yaml:"id"`
	Filename string   `json:"filename" yaml:"filename"`
	Extra    []string `json:"extra" yaml:"extra"`
}

// Comparison is a column-consistency view over several summaries.
type Comparison struct {
	Files         int                          `json:"files" yaml:"files"`
	CommonColumns []string                     `json:"common_columns" yaml:"common_columns"`
	PerFile       []FileColumns                `json:"per_file" yaml:"per_file"`
	TypeConflicts map[string]map[string]string `json:"type_conflicts" yaml:"type_conflicts"`
}

// Compare finds the cleaned column names shared by every summary, the extras
// each file adds, and common columns whose inferred type differs between
// files. Common columns keep the order of the first summary.
func Compare(summaries []FileSummary) Comparison {
	c := Comparison{
		Files:         len(summaries),
		CommonColumns: []string{},
		PerFile:       make([]FileColumns, 0, len(summaries)),
		TypeConflicts: map[string]map[string]string{},
	}
	if len(summaries) == 0 {
		return c
	}

	counts := map[string]int{}
	for _, s := range summaries {
		for _, col := range s.Analysis.Schema.Columns {
			counts[col.Name]++
		}
	}
	common := map[string]bool{}
	for _, col := range summaries[0].Analysis.Schema.Columns {
		if counts[col.Name] == len(summaries) && !common[col.Name] {
			common[col.Name] = true
			c.CommonColumns = append(c.CommonColumns, col.Name)
		}
	}

	types := map[string]map[string]string{}
	for _, s := range summaries {
		fc := FileColumns{ID: s.ID, Filename: s.Filename, Extra: []string{}}
		for _, col := range s.Analysis.Schema.Columns {
			if !common[col.Name] {
				fc.Extra = append(fc.Extra, col.Name)
				continue
			}
			if types[col.Name] == nil {
				types[col.Name] = map[string]string{}
			}
			types[col.Name][label(s)] = col.Type
		}
		c.PerFile = append(c.PerFile, fc)
	}

	for col, byFile := range types {
		seen := map[string]bool{}
		for _, typ := range byFile {
			seen[typ] = true
		}
		if len(seen) > 1 {
			c.TypeConflicts[col] = byFile
		}
	}
	return c
}

// label names a summary in type conflict maps. Stored summaries have an ID,
// which keeps two uploads of the same filename apart.
func label(s FileSummary) string {
	if s.ID != "" {
		return s.Filename + "#" + s.ID
	}
	return s.Filename
}
