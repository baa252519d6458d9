package audit

import (
	"encoding/json"
	"sort"
	"strings"

	dErrors "vulnreport/pkg/domain-errors"
	pstrings "vulnreport/pkg/platform/strings"
)

// Kind describes the JSON shape a schema field accepts. Projection
// canonicalizes each value through its kind so stores only ever see
// well-typed patches.
type Kind int

const (
	// KindString accepts a JSON string.
	KindString Kind = iota
	// KindNumber accepts a JSON number.
	KindNumber
	// KindStringList accepts an array of strings. Entries are trimmed and
	// deduplicated, preserving order.
	KindStringList
	// KindNameList accepts an array of strings and rewrites it as scope
	// items, e.g. ["dmz"] becomes [{"name":"dmz"}].
	KindNameList
	// KindReference accepts an object and keeps only its "id" attribute,
	// discarding any other nested fields the caller tried to slip in.
	KindReference
	// KindParagraphs accepts an array of rich content blocks.
	KindParagraphs
	// KindRawList accepts any JSON array and passes it through untouched.
	KindRawList
	// KindStatus accepts a boolean or a number. The raw value is preserved
	// verbatim so an explicit false or 0 is stored as such, never dropped.
	KindStatus
)

// Field declares one projectable attribute of an entity.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
}

// Patch is a sanitized partial update: only schema-recognized fields, each
// canonicalized to its declared kind. Absent keys mean "leave unchanged".
type Patch map[string]json.RawMessage

// Schemas for every projectable entity. The route table in the handler
// consumes these instead of hand-copying fields per endpoint.
var (
	CreateSchema = []Field{
		{Name: "name", Kind: KindString, Required: true},
		{Name: "language", Kind: KindString, Required: true},
		{Name: "template", Kind: KindString, Required: true},
	}

	GeneralSchema = []Field{
		{Name: "name", Kind: KindString},
		{Name: "auditType", Kind: KindString},
		{Name: "language", Kind: KindString},
		{Name: "template", Kind: KindString},
		{Name: "location", Kind: KindString},
		{Name: "date", Kind: KindString},
		{Name: "date_start", Kind: KindString},
		{Name: "date_end", Kind: KindString},
		{Name: "client", Kind: KindReference},
		{Name: "company", Kind: KindReference},
		{Name: "collaborators", Kind: KindStringList},
		{Name: "scope", Kind: KindNameList},
	}

	NetworkSchema = []Field{
		{Name: "scope", Kind: KindRawList},
	}

	FindingCreateSchema = append([]Field{
		{Name: "title", Kind: KindString, Required: true},
	}, findingOptionalFields...)

	FindingUpdateSchema = append([]Field{
		{Name: "title", Kind: KindString},
	}, findingOptionalFields...)

	SectionCreateSchema = []Field{
		{Name: "field", Kind: KindString, Required: true},
		{Name: "name", Kind: KindString, Required: true},
		{Name: "paragraphs", Kind: KindParagraphs},
	}

	SectionUpdateSchema = []Field{
		{Name: "paragraphs", Kind: KindParagraphs},
	}

	SummarySchema = []Field{
		{Name: "summary", Kind: KindString, Required: true},
	}
)

var findingOptionalFields = []Field{
	{Name: "vulnType", Kind: KindString},
	{Name: "description", Kind: KindString},
	{Name: "observation", Kind: KindString},
	{Name: "remediation", Kind: KindString},
	{Name: "remediationComplexity", Kind: KindString},
	{Name: "priority", Kind: KindString},
	{Name: "references", Kind: KindStringList},
	{Name: "cvssv3", Kind: KindString},
	{Name: "cvssScore", Kind: KindNumber},
	{Name: "cvssSeverity", Kind: KindString},
	{Name: "paragraphs", Kind: KindParagraphs},
	{Name: "scope", Kind: KindString},
	{Name: "status", Kind: KindStatus},
}

// Project extracts the schema-recognized fields present in raw into a Patch.
//
// Presence is decided by the key existing with a non-null value, not by
// truthiness, so a finding status of false or 0 is projected like any other
// value. Fields absent from raw are omitted from the patch entirely.
// Required fields must be present and non-empty or the projection fails with
// a bad-request error naming every missing field.
func Project(schema []Field, raw map[string]json.RawMessage) (Patch, error) {
	patch := make(Patch, len(raw))
	var missing []string

	for _, f := range schema {
		value, ok := raw[f.Name]
		if !ok || isNull(value) {
			if f.Required {
				missing = append(missing, f.Name)
			}
			continue
		}
		canonical, err := canonicalize(f.Kind, value)
		if err != nil {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "invalid value for field: %s", f.Name)
		}
		if canonical == nil {
			// Reference objects without an identity are ignored rather than
			// rejected, mirroring how partial updates treat absent fields.
			continue
		}
		if f.Required && isEmpty(f.Kind, canonical) {
			missing = append(missing, f.Name)
			continue
		}
		patch[f.Name] = canonical
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, dErrors.Newf(dErrors.CodeBadRequest, "missing required parameters: %s", strings.Join(missing, ", "))
	}
	return patch, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func isEmpty(kind Kind, raw json.RawMessage) bool {
	switch kind {
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return true
		}
		return s == ""
	default:
		return false
	}
}

func canonicalize(kind Kind, raw json.RawMessage) (json.RawMessage, error) {
	switch kind {
	case KindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return raw, nil
	case KindNumber:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return raw, nil
	case KindStringList:
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return json.Marshal(pstrings.DedupeAndTrim(list))
	case KindNameList:
		var names []string
		if err := json.Unmarshal(raw, &names); err != nil {
			return nil, err
		}
		items := make([]ScopeItem, 0, len(names))
		for _, n := range names {
			items = append(items, ScopeItem{Name: n})
		}
		return json.Marshal(items)
	case KindReference:
		var ref Reference
		if err := json.Unmarshal(raw, &ref); err != nil {
			return nil, err
		}
		if ref.ID == "" {
			return nil, nil
		}
		return json.Marshal(Reference{ID: ref.ID})
	case KindParagraphs:
		var paragraphs []Paragraph
		if err := json.Unmarshal(raw, &paragraphs); err != nil {
			return nil, err
		}
		return json.Marshal(paragraphs)
	case KindRawList:
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return raw, nil
	case KindStatus:
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return raw, nil
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return raw, nil
	}
	return raw, nil
}
