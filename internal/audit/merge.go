package audit

import (
	"encoding/json"
	"fmt"
)

// Patch application for the in-memory store. Each helper mutates exactly the
// fields present in the patch and leaves everything else untouched, matching
// the atomic field-merge the Postgres store gets from jsonb concatenation.

// ApplyGeneral merges patch into g.
func ApplyGeneral(g *General, patch Patch) error {
	for name, raw := range patch {
		var err error
		switch name {
		case "name":
			err = json.Unmarshal(raw, &g.Name)
		case "auditType":
			err = json.Unmarshal(raw, &g.AuditType)
		case "language":
			err = json.Unmarshal(raw, &g.Language)
		case "template":
			err = json.Unmarshal(raw, &g.Template)
		case "location":
			err = json.Unmarshal(raw, &g.Location)
		case "date":
			err = json.Unmarshal(raw, &g.Date)
		case "date_start":
			err = json.Unmarshal(raw, &g.DateStart)
		case "date_end":
			err = json.Unmarshal(raw, &g.DateEnd)
		case "client":
			err = json.Unmarshal(raw, &g.Client)
		case "company":
			err = json.Unmarshal(raw, &g.Company)
		case "collaborators":
			err = json.Unmarshal(raw, &g.Collaborators)
		case "scope":
			err = json.Unmarshal(raw, &g.Scope)
		default:
			err = fmt.Errorf("unknown general field %q", name)
		}
		if err != nil {
			return fmt.Errorf("apply general field %q: %w", name, err)
		}
	}
	return nil
}

// ApplyNetwork merges patch into n.
func ApplyNetwork(n *Network, patch Patch) error {
	for name, raw := range patch {
		var err error
		switch name {
		case "scope":
			err = json.Unmarshal(raw, &n.Scope)
		default:
			err = fmt.Errorf("unknown network field %q", name)
		}
		if err != nil {
			return fmt.Errorf("apply network field %q: %w", name, err)
		}
	}
	return nil
}

// ApplyFinding merges patch into f. The status field is copied verbatim so an
// explicit false or 0 is preserved instead of being treated as absent.
func ApplyFinding(f *Finding, patch Patch) error {
	for name, raw := range patch {
		var err error
		switch name {
		case "title":
			err = json.Unmarshal(raw, &f.Title)
		case "vulnType":
			err = json.Unmarshal(raw, &f.VulnType)
		case "description":
			err = json.Unmarshal(raw, &f.Description)
		case "observation":
			err = json.Unmarshal(raw, &f.Observation)
		case "remediation":
			err = json.Unmarshal(raw, &f.Remediation)
		case "remediationComplexity":
			err = json.Unmarshal(raw, &f.RemediationComplexity)
		case "priority":
			err = json.Unmarshal(raw, &f.Priority)
		case "references":
			err = json.Unmarshal(raw, &f.References)
		case "cvssv3":
			err = json.Unmarshal(raw, &f.CvssV3)
		case "cvssScore":
			err = json.Unmarshal(raw, &f.CvssScore)
		case "cvssSeverity":
			err = json.Unmarshal(raw, &f.CvssSeverity)
		case "paragraphs":
			err = json.Unmarshal(raw, &f.Paragraphs)
		case "scope":
			err = json.Unmarshal(raw, &f.Scope)
		case "status":
			f.Status = append(json.RawMessage(nil), raw...)
		default:
			err = fmt.Errorf("unknown finding field %q", name)
		}
		if err != nil {
			return fmt.Errorf("apply finding field %q: %w", name, err)
		}
	}
	return nil
}

// NewFinding builds a finding from a creation patch. Identity is assigned by
// the store.
func NewFinding(patch Patch) (Finding, error) {
	var f Finding
	if err := ApplyFinding(&f, patch); err != nil {
		return Finding{}, err
	}
	return f, nil
}

// NewSection builds a section from a creation patch, the only place where
// name and field may be set.
func NewSection(patch Patch) (Section, error) {
	var s Section
	for name, raw := range patch {
		var err error
		switch name {
		case "field":
			err = json.Unmarshal(raw, &s.Field)
		case "name":
			err = json.Unmarshal(raw, &s.Name)
		case "paragraphs":
			err = json.Unmarshal(raw, &s.Paragraphs)
		default:
			err = fmt.Errorf("unknown section field %q", name)
		}
		if err != nil {
			return Section{}, fmt.Errorf("build section field %q: %w", name, err)
		}
	}
	return s, nil
}

// ApplySection merges patch into s. Name and field are immutable after
// creation, so only paragraphs are accepted here.
func ApplySection(s *Section, patch Patch) error {
	for name, raw := range patch {
		var err error
		switch name {
		case "paragraphs":
			err = json.Unmarshal(raw, &s.Paragraphs)
		default:
			err = fmt.Errorf("unknown section field %q", name)
		}
		if err != nil {
			return fmt.Errorf("apply section field %q: %w", name, err)
		}
	}
	return nil
}
