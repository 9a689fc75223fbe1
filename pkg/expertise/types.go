package expertise

import (
	"errors"
	"fmt"
	"strings"
)

// Type is the discriminator stored in the "type" field of every record line.
type Type string

const (
	// TypeConvention is a project rule expressed as free text
	TypeConvention Type = "convention"

	// TypePattern is a named, reusable approach, optionally tied to files
	TypePattern Type = "pattern"

	// TypeFailure is a known failure mode and how it was resolved
	TypeFailure Type = "failure"

	// TypeDecision is an architectural decision and its rationale
	TypeDecision Type = "decision"

	// TypeReference points at important files or external material
	TypeReference Type = "reference"

	// TypeGuide is a named how-to
	TypeGuide Type = "guide"
)

// Types lists every record type in canonical display order.
var Types = []Type{TypeConvention, TypePattern, TypeFailure, TypeDecision, TypeReference, TypeGuide}

// Validate checks if the Type is a valid enum value.
func (t Type) Validate() error {
	switch t {
	case TypeConvention, TypePattern, TypeFailure, TypeDecision, TypeReference, TypeGuide:
		return nil
	default:
		return fmt.Errorf("unknown record type: %q", t)
	}
}

// IsNamed reports whether records of this type carry a natural unique name
// (name or title) and are upserted when a duplicate is recorded.
// Convention and failure records are content-keyed and skipped instead.
func IsNamed(t Type) bool {
	switch t {
	case TypePattern, TypeDecision, TypeReference, TypeGuide:
		return true
	default:
		return false
	}
}

// Classification is the durability tier of a record.
type Classification string

const (
	// ClassificationFoundational records never go stale
	ClassificationFoundational Classification = "foundational"

	// ClassificationTactical records expire after the tactical shelf life
	ClassificationTactical Classification = "tactical"

	// ClassificationObservational records expire after the observational shelf life
	ClassificationObservational Classification = "observational"
)

// Classifications lists every classification in priority order.
var Classifications = []Classification{ClassificationFoundational, ClassificationTactical, ClassificationObservational}

// Validate checks if the Classification is a valid enum value.
func (c Classification) Validate() error {
	switch c {
	case ClassificationFoundational, ClassificationTactical, ClassificationObservational:
		return nil
	default:
		return fmt.Errorf("unknown classification: %q", c)
	}
}

// OutcomeStatus is the result of applying a record.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
	OutcomePartial OutcomeStatus = "partial"
)

// Validate checks if the OutcomeStatus is a valid enum value.
func (s OutcomeStatus) Validate() error {
	switch s {
	case OutcomeSuccess, OutcomeFailure, OutcomePartial:
		return nil
	default:
		return fmt.Errorf("unknown outcome status: %q", s)
	}
}

// Evidence is optional provenance attached to a record.
type Evidence struct {
	Commit string `json:"commit,omitempty"`
	Date   string `json:"date,omitempty"`
	Issue  string `json:"issue,omitempty"`
	File   string `json:"file,omitempty"`
	Bead   string `json:"bead,omitempty"` // issue-tracker identifier
}

// IsZero reports whether no evidence field is set.
func (e *Evidence) IsZero() bool {
	return e == nil || (e.Commit == "" && e.Date == "" && e.Issue == "" && e.File == "" && e.Bead == "")
}

// Outcome is one historical application of a record.
type Outcome struct {
	Status      OutcomeStatus `json:"status"`
	Duration    *float64      `json:"duration,omitempty"` // milliseconds
	TestResults string        `json:"test_results,omitempty"`
	Agent       string        `json:"agent,omitempty"`
	Notes       string        `json:"notes,omitempty"`
	RecordedAt  string        `json:"recorded_at,omitempty"`
}

// Meta holds the fields shared by every record variant.
// RelatesTo and Supersedes are weak references: plain record IDs that are
// never checked for existence. Empty lists are omitted when encoded, so they
// read back as nil.
type Meta struct {
	ID             string         `json:"id,omitempty"`
	Classification Classification `json:"classification"`
	RecordedAt     string         `json:"recorded_at"`
	Evidence       *Evidence      `json:"evidence,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	RelatesTo      []string       `json:"relates_to,omitempty"`
	Supersedes     []string       `json:"supersedes,omitempty"`
	Outcomes       []Outcome      `json:"outcomes,omitempty"`
}

// Base returns the shared fields of a record.
func (m *Meta) Base() *Meta {
	return m
}

// AddOutcome appends an outcome to the record's history.
func (m *Meta) AddOutcome(o Outcome) {
	m.Outcomes = append(m.Outcomes, o)
}

func (m *Meta) validate() error {
	if m.Classification == "" {
		return &ValidationError{Field: "classification", Reason: "is required"}
	}
	if err := m.Classification.Validate(); err != nil {
		return &ValidationError{Field: "classification", Reason: err.Error()}
	}
	if strings.TrimSpace(m.RecordedAt) == "" {
		return &ValidationError{Field: "recorded_at", Reason: "is required"}
	}
	for i, o := range m.Outcomes {
		if err := o.Status.Validate(); err != nil {
			return &ValidationError{Field: fmt.Sprintf("outcomes[%d].status", i), Reason: err.Error()}
		}
	}
	return nil
}

// Record is one of the six expertise record variants. The set is closed:
// only *Convention, *Pattern, *Failure, *Decision, *Reference and *Guide
// implement it.
type Record interface {
	// Type returns the variant discriminator.
	Type() Type

	// Base returns the shared fields, which callers may modify in place.
	Base() *Meta

	// Key returns the natural unique key used for identity and dedup.
	Key() string

	// Files returns the file paths the record is tied to, if any.
	Files() []string

	// Validate checks that all required fields are present and well-formed.
	Validate() error

	isRecord()
}

// Convention is a project rule.
type Convention struct {
	Content string `json:"content"`
	Meta
}

func (*Convention) Type() Type        { return TypeConvention }
func (c *Convention) Key() string     { return c.Content }
func (*Convention) Files() []string   { return nil }
func (*Convention) isRecord()         {}
func (c *Convention) Validate() error { return validateRecord(&c.Meta, field{"content", c.Content}) }

// Pattern is a named, reusable approach.
type Pattern struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	FileList    []string `json:"files,omitempty"`
	Meta
}

func (*Pattern) Type() Type        { return TypePattern }
func (p *Pattern) Key() string     { return p.Name }
func (p *Pattern) Files() []string { return p.FileList }
func (*Pattern) isRecord()         {}
func (p *Pattern) Validate() error {
	return validateRecord(&p.Meta, field{"name", p.Name}, field{"description", p.Description})
}

// Failure is a known failure mode and its resolution.
type Failure struct {
	Description string `json:"description"`
	Resolution  string `json:"resolution"`
	Meta
}

func (*Failure) Type() Type      { return TypeFailure }
func (f *Failure) Key() string   { return f.Description }
func (*Failure) Files() []string { return nil }
func (*Failure) isRecord()       {}
func (f *Failure) Validate() error {
	return validateRecord(&f.Meta, field{"description", f.Description}, field{"resolution", f.Resolution})
}

// Decision is an architectural decision.
type Decision struct {
	Title     string `json:"title"`
	Rationale string `json:"rationale"`
	Date      string `json:"date,omitempty"`
	Meta
}

func (*Decision) Type() Type      { return TypeDecision }
func (d *Decision) Key() string   { return d.Title }
func (*Decision) Files() []string { return nil }
func (*Decision) isRecord()       {}
func (d *Decision) Validate() error {
	return validateRecord(&d.Meta, field{"title", d.Title}, field{"rationale", d.Rationale})
}

// Reference points at important files or material.
type Reference struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	FileList    []string `json:"files,omitempty"`
	Meta
}

func (*Reference) Type() Type        { return TypeReference }
func (r *Reference) Key() string     { return r.Name }
func (r *Reference) Files() []string { return r.FileList }
func (*Reference) isRecord()         {}
func (r *Reference) Validate() error {
	return validateRecord(&r.Meta, field{"name", r.Name}, field{"description", r.Description})
}

// Guide is a named how-to.
type Guide struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Meta
}

func (*Guide) Type() Type      { return TypeGuide }
func (g *Guide) Key() string   { return g.Name }
func (*Guide) Files() []string { return nil }
func (*Guide) isRecord()       {}
func (g *Guide) Validate() error {
	return validateRecord(&g.Meta, field{"name", g.Name}, field{"description", g.Description})
}

// New returns an empty record of the given type.
func New(t Type) (Record, error) {
	switch t {
	case TypeConvention:
		return &Convention{}, nil
	case TypePattern:
		return &Pattern{}, nil
	case TypeFailure:
		return &Failure{}, nil
	case TypeDecision:
		return &Decision{}, nil
	case TypeReference:
		return &Reference{}, nil
	case TypeGuide:
		return &Guide{}, nil
	case "":
		return nil, &ValidationError{Field: "type", Reason: "is required"}
	default:
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown record type %q", t)}
	}
}

type field struct {
	name  string
	value string
}

func validateRecord(m *Meta, required ...field) error {
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.name, Reason: "is required"}
		}
	}
	return m.validate()
}

// ValidationError reports a record that fails structural validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: %s %s", e.Field, e.Reason)
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
