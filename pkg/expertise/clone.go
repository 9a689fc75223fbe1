package expertise

// Clone returns a deep copy of r. Mutating the copy never affects the
// original's slices, evidence or outcomes.
func Clone(r Record) Record {
	switch v := r.(type) {
	case *Convention:
		c := *v
		c.Meta = v.Meta.clone()
		return &c
	case *Pattern:
		c := *v
		c.FileList = cloneStrings(v.FileList)
		c.Meta = v.Meta.clone()
		return &c
	case *Failure:
		c := *v
		c.Meta = v.Meta.clone()
		return &c
	case *Decision:
		c := *v
		c.Meta = v.Meta.clone()
		return &c
	case *Reference:
		c := *v
		c.FileList = cloneStrings(v.FileList)
		c.Meta = v.Meta.clone()
		return &c
	case *Guide:
		c := *v
		c.Meta = v.Meta.clone()
		return &c
	}
	return nil
}

// CloneAll deep-copies a record list.
func CloneAll(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = Clone(r)
	}
	return out
}

func (m Meta) clone() Meta {
	c := m
	if m.Evidence != nil {
		ev := *m.Evidence
		c.Evidence = &ev
	}
	c.Tags = cloneStrings(m.Tags)
	c.RelatesTo = cloneStrings(m.RelatesTo)
	c.Supersedes = cloneStrings(m.Supersedes)
	if m.Outcomes != nil {
		c.Outcomes = make([]Outcome, len(m.Outcomes))
		for i, o := range m.Outcomes {
			if o.Duration != nil {
				d := *o.Duration
				o.Duration = &d
			}
			c.Outcomes[i] = o
		}
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
