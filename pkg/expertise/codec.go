package expertise

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Records are stored as self-describing JSON objects. The variant structs carry
// no "type" field; it is spliced in on encode and used to pick the variant on
// decode.

type (
	conventionJSON Convention
	patternJSON    Pattern
	failureJSON    Failure
	decisionJSON   Decision
	referenceJSON  Reference
	guideJSON      Guide
)

func (c Convention) MarshalJSON() ([]byte, error) { return tagged(TypeConvention, conventionJSON(c)) }
func (p Pattern) MarshalJSON() ([]byte, error)    { return tagged(TypePattern, patternJSON(p)) }
func (f Failure) MarshalJSON() ([]byte, error)    { return tagged(TypeFailure, failureJSON(f)) }
func (d Decision) MarshalJSON() ([]byte, error)   { return tagged(TypeDecision, decisionJSON(d)) }
func (r Reference) MarshalJSON() ([]byte, error)  { return tagged(TypeReference, referenceJSON(r)) }
func (g Guide) MarshalJSON() ([]byte, error)      { return tagged(TypeGuide, guideJSON(g)) }

// tagged marshals body (a JSON object) with a leading "type" member.
func tagged(t Type, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	typ, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(data) + len(typ) + 9)
	buf.WriteString(`{"type":`)
	buf.Write(typ)
	if inner := bytes.TrimSpace(data[1 : len(data)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode serializes a record to a single-line JSON object.
func Encode(r Record) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("cannot encode nil record")
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s record: %w", r.Type(), err)
	}
	return data, nil
}

// Decode parses a JSON object into the record variant named by its "type"
// field and validates it.
func Decode(data []byte) (Record, error) {
	var envelope struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}

	r, err := New(envelope.Type)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// DecodeLine decodes one stored line, first migrating the legacy singular
// "outcome" object into a one-element "outcomes" array.
func DecodeLine(line []byte) (Record, error) {
	migrated, err := migrateLegacyOutcome(line)
	if err != nil {
		return nil, err
	}
	return Decode(migrated)
}

var legacyOutcomeKey = []byte(`"outcome"`)

func migrateLegacyOutcome(line []byte) ([]byte, error) {
	if !bytes.Contains(line, legacyOutcomeKey) {
		return line, nil
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(line, &members); err != nil {
		return nil, err
	}
	legacy, ok := members["outcome"]
	if !ok {
		return line, nil
	}
	if _, ok := members["outcomes"]; ok {
		return line, nil
	}

	delete(members, "outcome")
	outcomes := make([]byte, 0, len(legacy)+2)
	outcomes = append(outcomes, '[')
	outcomes = append(outcomes, legacy...)
	outcomes = append(outcomes, ']')
	members["outcomes"] = outcomes
	return json.Marshal(members)
}
