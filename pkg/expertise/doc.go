// Package expertise defines the mulch record model and its on-disk store.
//
// # Overview
//
// Expertise is partitioned into domains. Each domain owns one
// newline-delimited JSON file under .mulch/expertise/<domain>.jsonl, one
// record per line. Every line is a self-describing object whose "type" field
// selects one of six variants:
//
//   - convention: a project rule (content)
//   - pattern: a named approach (name, description, files)
//   - failure: a failure mode (description, resolution)
//   - decision: an architectural decision (title, rationale)
//   - reference: pointers to files or material (name, description, files)
//   - guide: a named how-to (name, description)
//
// All variants share the fields in Meta: id, classification, recorded_at,
// evidence, tags, relates_to, supersedes and outcomes.
//
// # Identity
//
// A record's ID is "mx-" followed by the first six hex characters of
// sha256("<type>:<key>"), where the key is the content, name, description or
// title depending on the variant. IDs double as dedup keys. Pattern,
// decision, reference and guide records are upserted on duplicate;
// conventions and failures are skipped unless forced.
//
// # Usage Example
//
//	store := expertise.NewStore(".mulch/expertise")
//
//	rec := &expertise.Convention{
//		Content: "Use table-driven tests",
//		Meta: expertise.Meta{
//			Classification: expertise.ClassificationFoundational,
//			RecordedAt:     time.Now().UTC().Format(time.RFC3339),
//		},
//	}
//	if err := store.Append(ctx, "testing", rec); err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := store.Read("testing")
//	// result.Records holds decoded records, result.Invalid any bad lines
//
// # Durability
//
// Appends open the file with O_APPEND. Every other mutation goes through
// RewriteFile, which writes a temporary file in the same directory and
// renames it over the original. Mutations run under the advisory lock in
// internal/lock; reads never lock.
//
// # Compatibility
//
// Lines written by old versions may carry a singular "outcome" object. It is
// read as a one-element "outcomes" list.
package expertise
