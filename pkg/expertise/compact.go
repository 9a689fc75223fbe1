package expertise

import "time"

// newerOrSame reports whether a was recorded at or after b. Timestamps that
// do not parse are compared as strings.
func newerOrSame(a, b Record) bool {
	ta, errA := time.Parse(time.RFC3339, a.Base().RecordedAt)
	tb, errB := time.Parse(time.RFC3339, b.Base().RecordedAt)
	if errA != nil || errB != nil {
		return a.Base().RecordedAt >= b.Base().RecordedAt
	}
	return !ta.Before(tb)
}

// Compact removes records that share a type and natural key, keeping the
// most recently recorded one of each group (the later line on a tie).
// Survivors keep their relative order.
func Compact(records []Record) (kept, removed []Record) {
	winner := make(map[string]int, len(records))
	for i, r := range records {
		key := string(r.Type()) + ":" + r.Key()
		if prev, ok := winner[key]; !ok || newerOrSame(r, records[prev]) {
			winner[key] = i
		}
	}
	for i, r := range records {
		if winner[string(r.Type())+":"+r.Key()] == i {
			kept = append(kept, r)
		} else {
			removed = append(removed, r)
		}
	}
	return kept, removed
}
