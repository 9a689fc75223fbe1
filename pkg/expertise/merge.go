package expertise

// Action is what Merge did with one incoming record.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionSkipped Action = "skipped"
)

// MergeResult is the outcome of folding records into a domain.
type MergeResult struct {
	Records []Record // the domain after the merge
	Actions []Action // one per incoming record, in input order
	Indexes []int    // position of each incoming record in Records, -1 when skipped
}

// Count returns how many incoming records received action a.
func (m MergeResult) Count(a Action) int {
	n := 0
	for _, got := range m.Actions {
		if got == a {
			n++
		}
	}
	return n
}

// Changed reports whether the merge created or updated anything.
func (m MergeResult) Changed() bool {
	return m.Count(ActionCreated)+m.Count(ActionUpdated) > 0
}

// Merge folds incoming records into existing, one at a time, so duplicates
// within incoming are detected too. A duplicate of a named type replaces the
// existing record in place and keeps its ID; a duplicate convention or
// failure is skipped. With force every record is appended. existing is not
// modified.
func Merge(existing, incoming []Record, force bool) MergeResult {
	records := make([]Record, len(existing), len(existing)+len(incoming))
	copy(records, existing)

	result := MergeResult{
		Actions: make([]Action, len(incoming)),
		Indexes: make([]int, len(incoming)),
	}
	for i, r := range incoming {
		idx, dup := FindDuplicate(records, r)
		switch {
		case dup && !force && IsNamed(r.Type()):
			if r.Base().ID == "" {
				r.Base().ID = records[idx].Base().ID
			}
			records[idx] = r
			result.Actions[i], result.Indexes[i] = ActionUpdated, idx
		case dup && !force:
			result.Actions[i], result.Indexes[i] = ActionSkipped, -1
		default:
			records = append(records, r)
			result.Actions[i], result.Indexes[i] = ActionCreated, len(records)-1
		}
	}
	result.Records = records
	return result
}
