// Package report bridges the audit aggregate to the external document
// renderer: it resolves the full audit through the access filter, hands it to
// the renderer, and streams the result back under the audit's name.
package report

import (
	"context"
	"fmt"

	"vulnreport/internal/audit"
	"vulnreport/internal/audit/metrics"
	dErrors "vulnreport/pkg/domain-errors"
	"vulnreport/pkg/platform/circuit"
)

// Extension is the fixed document extension appended to the audit name.
const Extension = ".docx"

// Renderer turns a full audit aggregate into a binary document. The
// implementation is an external collaborator; its failures surface to callers
// as internal errors.
type Renderer interface {
	Render(ctx context.Context, a audit.Audit) ([]byte, error)
}

// AuditReader is the slice of the audit service the bridge needs.
type AuditReader interface {
	GetAudit(ctx context.Context, caller audit.Caller, auditID string) (audit.Audit, error)
}

// Bridge generates reports. A circuit breaker guards the renderer so a dead
// rendering service fails requests fast instead of tying up a connection per
// call until its timeout.
type Bridge struct {
	audits   AuditReader
	renderer Renderer
	metrics  *metrics.Metrics
	breaker  *circuit.Breaker
}

// NewBridge creates a report bridge.
func NewBridge(audits AuditReader, renderer Renderer, m *metrics.Metrics) *Bridge {
	return &Bridge{
		audits:   audits,
		renderer: renderer,
		metrics:  m,
		breaker:  circuit.New("renderer"),
	}
}

// Generate renders the audit into a document and returns the download
// filename plus the document bytes. Access control is enforced by the audit
// reader: non-admin callers can only generate reports for audits they own or
// collaborate on.
func (b *Bridge) Generate(ctx context.Context, caller audit.Caller, auditID string) (string, []byte, error) {
	a, err := b.audits.GetAudit(ctx, caller, auditID)
	if err != nil {
		return "", nil, err
	}
	if b.breaker.IsOpen() {
		b.metrics.IncReportGeneration("open")
		return "", nil, dErrors.New(dErrors.CodeInternal, "report renderer unavailable")
	}
	doc, err := b.renderer.Render(ctx, a)
	if err != nil {
		b.breaker.RecordFailure()
		b.metrics.IncReportGeneration("error")
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "report rendering failed")
	}
	b.breaker.RecordSuccess()
	b.metrics.IncReportGeneration("ok")
	return fmt.Sprintf("%s%s", a.General.Name, Extension), doc, nil
}
