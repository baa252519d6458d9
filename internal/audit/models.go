// Package audit defines the audit aggregate: the audit document together with
// its embedded findings and sections, treated as one consistency boundary.
package audit

import (
	"encoding/json"
	"time"
)

// Reference points at an external entity (client contact, company) by
// identity only. Projection strips every other attribute of the nested
// object before it reaches a store.
type Reference struct {
	ID string `json:"id"`
}

// ScopeItem is one engagement target in the audit's general scope.
type ScopeItem struct {
	Name string `json:"name"`
}

// Image is an illustration attached to a paragraph.
type Image struct {
	Image   string `json:"image"`
	Caption string `json:"caption,omitempty"`
}

// Paragraph is a rich content block used by findings and sections.
type Paragraph struct {
	Text   string  `json:"text"`
	Images []Image `json:"images,omitempty"`
}

// General holds the audit's general information. Optional fields marshal with
// omitempty so an absent value stays absent rather than becoming null.
type General struct {
	Name          string      `json:"name,omitempty"`
	AuditType     string      `json:"auditType,omitempty"`
	Language      string      `json:"language,omitempty"`
	Template      string      `json:"template,omitempty"`
	Location      string      `json:"location,omitempty"`
	Date          string      `json:"date,omitempty"`
	DateStart     string      `json:"date_start,omitempty"`
	DateEnd       string      `json:"date_end,omitempty"`
	Client        *Reference  `json:"client,omitempty"`
	Company       *Reference  `json:"company,omitempty"`
	Collaborators []string    `json:"collaborators,omitempty"`
	Scope         []ScopeItem `json:"scope,omitempty"`
}

// Network holds the network-specific targets, distinct from the general
// scope. Entries are kept as raw JSON because host descriptions carry
// tool-specific shapes the service does not interpret.
type Network struct {
	Scope []json.RawMessage `json:"scope,omitempty"`
}

// Finding is a vulnerability embedded in an audit. Identity is unique within
// the parent audit only.
//
// Status is kept as raw JSON: 0 and false are legitimate values that must
// survive a round trip, so presence is tracked by the field being non-empty
// rather than by truthiness.
type Finding struct {
	ID                    string          `json:"id"`
	Title                 string          `json:"title"`
	VulnType              string          `json:"vulnType,omitempty"`
	Description           string          `json:"description,omitempty"`
	Observation           string          `json:"observation,omitempty"`
	Remediation           string          `json:"remediation,omitempty"`
	RemediationComplexity string          `json:"remediationComplexity,omitempty"`
	Priority              string          `json:"priority,omitempty"`
	References            []string        `json:"references,omitempty"`
	CvssV3                string          `json:"cvssv3,omitempty"`
	CvssScore             *float64        `json:"cvssScore,omitempty"`
	CvssSeverity          string          `json:"cvssSeverity,omitempty"`
	Paragraphs            []Paragraph     `json:"paragraphs,omitempty"`
	Scope                 string          `json:"scope,omitempty"`
	Status                json.RawMessage `json:"status,omitempty"`
}

// FindingTitle is the projection returned by the findings list endpoint.
type FindingTitle struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Section is a report section embedded in an audit. Name and Field identify
// the template slot and are immutable after creation; only paragraphs change.
type Section struct {
	ID         string      `json:"id"`
	Field      string      `json:"field"`
	Name       string      `json:"name"`
	Paragraphs []Paragraph `json:"paragraphs,omitempty"`
}

// Access is the ownership view of an audit used by the access filter.
type Access struct {
	Owner         string
	Collaborators []string
}

// Allows reports whether username is the owner or a listed collaborator.
func (a Access) Allows(username string) bool {
	if username == a.Owner {
		return true
	}
	for _, c := range a.Collaborators {
		if c == username {
			return true
		}
	}
	return false
}

// Summary is a row of the audit list endpoints.
type Summary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Language      string    `json:"language,omitempty"`
	AuditType     string    `json:"auditType,omitempty"`
	Owner         string    `json:"owner"`
	Collaborators []string  `json:"collaborators,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Audit is the full aggregate as served by the detail and report endpoints.
type Audit struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	General   General   `json:"general"`
	Network   Network   `json:"network"`
	Findings  []Finding `json:"findings"`
	Sections  []Section `json:"sections"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListFilter narrows audit list results.
type ListFilter struct {
	// FindingTitle keeps audits containing at least one finding whose title
	// includes the value, case-insensitively.
	FindingTitle string
}
