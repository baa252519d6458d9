// Package store defines the persistence contract for the audit aggregate.
// Implementations are interface-driven so handlers and services can run
// against in-memory or PostgreSQL persistence without rewiring.
package store

import (
	"context"

	"vulnreport/internal/audit"
	dErrors "vulnreport/pkg/domain-errors"
)

// Not-found sentinels keep 404s consistent across implementations.
var (
	ErrNotFound        = dErrors.New(dErrors.CodeNotFound, "audit not found")
	ErrFindingNotFound = dErrors.New(dErrors.CodeNotFound, "finding not found")
	ErrSectionNotFound = dErrors.New(dErrors.CodeNotFound, "section not found")
)

// Store owns persistence of audit documents and their embedded collections.
//
// Every update operation applies only the fields present in its patch as a
// single atomic merge: concurrent patches to disjoint fields of the same
// document must not clobber each other. Callers never read-modify-write.
type Store interface {
	// ListAll returns summaries of every audit, newest last.
	ListAll(ctx context.Context, filter audit.ListFilter) ([]audit.Summary, error)
	// ListForUser returns summaries of audits owned by or shared with username.
	ListForUser(ctx context.Context, username string, filter audit.ListFilter) ([]audit.Summary, error)
	// Create allocates a new audit owned by owner and returns its id.
	Create(ctx context.Context, general audit.General, owner string) (string, error)
	// Delete removes the audit and its embedded collections.
	Delete(ctx context.Context, auditID string) error

	// GetAccess returns the ownership view used by the access filter.
	GetAccess(ctx context.Context, auditID string) (audit.Access, error)
	// GetAudit returns the complete aggregate.
	GetAudit(ctx context.Context, auditID string) (audit.Audit, error)

	GetGeneral(ctx context.Context, auditID string) (audit.General, error)
	UpdateGeneral(ctx context.Context, auditID string, patch audit.Patch) (audit.General, error)

	GetNetwork(ctx context.Context, auditID string) (audit.Network, error)
	UpdateNetwork(ctx context.Context, auditID string, patch audit.Patch) (audit.Network, error)

	// CreateFinding appends f to the audit's findings and returns it with a
	// freshly assigned identity.
	CreateFinding(ctx context.Context, auditID string, f audit.Finding) (audit.Finding, error)
	ListFindingTitles(ctx context.Context, auditID string) ([]audit.FindingTitle, error)
	GetFinding(ctx context.Context, auditID, findingID string) (audit.Finding, error)
	UpdateFinding(ctx context.Context, auditID, findingID string, patch audit.Patch) (audit.Finding, error)
	DeleteFinding(ctx context.Context, auditID, findingID string) error

	CreateSection(ctx context.Context, auditID string, s audit.Section) (audit.Section, error)
	GetSection(ctx context.Context, auditID, sectionID string) (audit.Section, error)
	UpdateSection(ctx context.Context, auditID, sectionID string, patch audit.Patch) (audit.Section, error)
	DeleteSection(ctx context.Context, auditID, sectionID string) error

	GetSummary(ctx context.Context, auditID string) (string, error)
	UpdateSummary(ctx context.Context, auditID, summary string) error
}
