package expertise

// identity returns the ID of r, or the ID it would be assigned.
func identity(r Record) string {
	if id := r.Base().ID; id != "" {
		return id
	}
	return GenerateID(r)
}

// Diff compares two versions of a domain by record ID. Added records are
// returned in after's order, removed ones in before's order. A record whose
// ID is present in both versions is considered unchanged.
func Diff(before, after []Record) (added, removed []Record) {
	seen := make(map[string]bool, len(before))
	for _, r := range before {
		seen[identity(r)] = true
	}
	kept := make(map[string]bool, len(after))
	for _, r := range after {
		id := identity(r)
		kept[id] = true
		if !seen[id] {
			added = append(added, r)
		}
	}
	for _, r := range before {
		if !kept[identity(r)] {
			removed = append(removed, r)
		}
	}
	return added, removed
}
