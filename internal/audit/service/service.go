// Package service implements the audit operations behind the HTTP handlers:
// authorization, field projection, store delegation, and fan-out of change
// notifications and activity events.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"vulnreport/internal/activity"
	"vulnreport/internal/audit"
	"vulnreport/internal/audit/metrics"
	"vulnreport/internal/audit/store"
	"vulnreport/internal/notify"
	dErrors "vulnreport/pkg/domain-errors"
)

// Raw is an undecoded JSON request body: field name to raw value. Handlers
// pass it through untouched so projection can distinguish "absent" from any
// present value, including false and 0.
type Raw = map[string]json.RawMessage

// Service coordinates the audit aggregate store, the change notifier and the
// activity trail. Notifications and activity events are emitted only after a
// mutation succeeds and never fail it.
type Service struct {
	store    store.Store
	notifier notify.Notifier
	activity activity.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New creates the audit service.
func New(st store.Store, notifier notify.Notifier, trail activity.Publisher, m *metrics.Metrics, logger *slog.Logger) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if trail == nil {
		trail = activity.Noop{}
	}
	return &Service{store: st, notifier: notifier, activity: trail, metrics: m, logger: logger}
}

// List returns the audits visible to the caller: all of them for admins,
// owned-or-shared ones for everyone else.
func (s *Service) List(ctx context.Context, caller audit.Caller, filter audit.ListFilter) ([]audit.Summary, error) {
	defer s.timed("list")()
	if caller.IsAdmin() {
		return s.store.ListAll(ctx, filter)
	}
	return s.store.ListForUser(ctx, caller.Username, filter)
}

// Create allocates a new audit owned by the caller. Name, language and
// template are required.
func (s *Service) Create(ctx context.Context, caller audit.Caller, raw Raw) (string, error) {
	patch, err := audit.Project(audit.CreateSchema, raw)
	if err != nil {
		return "", err
	}
	var general audit.General
	if err := audit.ApplyGeneral(&general, patch); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "build audit")
	}

	defer s.timed("create")()
	id, err := s.store.Create(ctx, general, caller.Username)
	if err != nil {
		return "", err
	}
	s.recordMutation(ctx, caller, id, "create_audit", "")
	return id, nil
}

// Delete removes an audit. Only the owner or an admin may delete.
func (s *Service) Delete(ctx context.Context, caller audit.Caller, auditID string) error {
	access, err := s.access(ctx, auditID)
	if err != nil {
		return err
	}
	if !caller.IsAdmin() && caller.Username != access.Owner {
		return errForbidden
	}

	defer s.timed("delete")()
	if err := s.store.Delete(ctx, auditID); err != nil {
		return err
	}
	s.recordMutation(ctx, caller, auditID, "delete_audit", "")
	s.broadcast(ctx, auditID)
	return nil
}

// GetAudit returns the full aggregate if the caller may see it.
func (s *Service) GetAudit(ctx context.Context, caller audit.Caller, auditID string) (audit.Audit, error) {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return audit.Audit{}, err
	}
	defer s.timed("get_audit")()
	return s.store.GetAudit(ctx, auditID)
}

func (s *Service) GetGeneral(ctx context.Context, caller audit.Caller, auditID string) (audit.General, error) {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return audit.General{}, err
	}
	defer s.timed("get_general")()
	return s.store.GetGeneral(ctx, auditID)
}

// UpdateGeneral applies the recognized fields of raw and broadcasts the
// change to the audit's subscribers.
func (s *Service) UpdateGeneral(ctx context.Context, caller audit.Caller, auditID string, raw Raw) (audit.General, error) {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return audit.General{}, err
	}
	patch, err := audit.Project(audit.GeneralSchema, raw)
	if err != nil {
		return audit.General{}, err
	}

	defer s.timed("update_general")()
	general, err := s.store.UpdateGeneral(ctx, auditID, patch)
	if err != nil {
		return audit.General{}, err
	}
	s.recordMutation(ctx, caller, auditID, "update_general", "")
	s.broadcast(ctx, auditID)
	return general, nil
}

func (s *Service) GetNetwork(ctx context.Context, caller audit.Caller, auditID string) (audit.Network, error) {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return audit.Network{}, err
	}
	defer s.timed("get_network")()
	return s.store.GetNetwork(ctx, auditID)
}

// UpdateNetwork applies the network scope patch. Network updates do not
// broadcast.
func (s *Service) UpdateNetwork(ctx context.Context, caller audit.Caller, auditID string, raw Raw) (audit.Network, error) {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return audit.Network{}, err
	}
	patch, err := audit.Project(audit.NetworkSchema, raw)
	if err != nil {
		return audit.Network{}, err
	}

	defer s.timed("update_network")()
	network, err := s.store.UpdateNetwork(ctx, auditID, patch)
	if err != nil {
		return audit.Network{}, err
	}
	s.recordMutation(ctx, caller, auditID, "update_network", "")
	return network, nil
}

// CreateFinding appends a finding. Title is required; a present status of
// false or 0 is preserved as-is.
func (s *Service) CreateFinding(ctx context.Context, caller audit.Caller, auditID string, raw Raw) (audit.Finding, error) {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return audit.Finding{}, err
	}
	patch, err := audit.Project(audit.FindingCreateSchema, raw)
	if err != nil {
		return audit.Finding{}, err
	}
	finding, err := audit.NewFinding(patch)
	if err != nil {
		return audit.Finding{}, dErrors.Wrap(err, dErrors.CodeInternal, "build finding")
	}

	defer s.timed("create_finding")()
	created, err := s.store.CreateFinding(ctx, auditID, finding)
	if err != nil {
		return audit.Finding{}, err
	}
	s.recordMutation(ctx, caller, auditID, "create_finding", created.ID)
	s.broadcast(ctx, auditID)
	return created, nil
}

func (s *Service) ListFindingTitles(ctx context.Context, caller audit.Caller, auditID string) ([]audit.FindingTitle, error) {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return nil, err
	}
	defer s.timed("list_finding_titles")()
	return s.store.ListFindingTitles(ctx, auditID)
}

func (s *Service) GetFinding(ctx context.Context, caller audit.Caller, auditID, findingID string) (audit.Finding, error) {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return audit.Finding{}, err
	}
	defer s.timed("get_finding")()
	return s.store.GetFinding(ctx, auditID, findingID)
}

func (s *Service) UpdateFinding(ctx context.Context, caller audit.Caller, auditID, findingID string, raw Raw) (audit.Finding, error) {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return audit.Finding{}, err
	}
	patch, err := audit.Project(audit.FindingUpdateSchema, raw)
	if err != nil {
		return audit.Finding{}, err
	}

	defer s.timed("update_finding")()
	finding, err := s.store.UpdateFinding(ctx, auditID, findingID, patch)
	if err != nil {
		return audit.Finding{}, err
	}
	s.recordMutation(ctx, caller, auditID, "update_finding", findingID)
	s.broadcast(ctx, auditID)
	return finding, nil
}

func (s *Service) DeleteFinding(ctx context.Context, caller audit.Caller, auditID, findingID string) error {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return err
	}
	defer s.timed("delete_finding")()
	if err := s.store.DeleteFinding(ctx, auditID, findingID); err != nil {
		return err
	}
	s.recordMutation(ctx, caller, auditID, "delete_finding", findingID)
	s.broadcast(ctx, auditID)
	return nil
}

// CreateSection appends a section. Field and name are required and immutable
// afterwards.
func (s *Service) CreateSection(ctx context.Context, caller audit.Caller, auditID string, raw Raw) (audit.Section, error) {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return audit.Section{}, err
	}
	patch, err := audit.Project(audit.SectionCreateSchema, raw)
	if err != nil {
		return audit.Section{}, err
	}
	section, err := audit.NewSection(patch)
	if err != nil {
		return audit.Section{}, dErrors.Wrap(err, dErrors.CodeInternal, "build section")
	}

	defer s.timed("create_section")()
	created, err := s.store.CreateSection(ctx, auditID, section)
	if err != nil {
		return audit.Section{}, err
	}
	s.recordMutation(ctx, caller, auditID, "create_section", created.ID)
	s.broadcast(ctx, auditID)
	return created, nil
}

func (s *Service) GetSection(ctx context.Context, caller audit.Caller, auditID, sectionID string) (audit.Section, error) {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return audit.Section{}, err
	}
	defer s.timed("get_section")()
	return s.store.GetSection(ctx, auditID, sectionID)
}

// UpdateSection edits a section's paragraphs. Section updates deliberately do
// not broadcast: paragraph edits arrive keystroke-frequent and would flood
// subscribers.
func (s *Service) UpdateSection(ctx context.Context, caller audit.Caller, auditID, sectionID string, raw Raw) (audit.Section, error) {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return audit.Section{}, err
	}
	patch, err := audit.Project(audit.SectionUpdateSchema, raw)
	if err != nil {
		return audit.Section{}, err
	}

	defer s.timed("update_section")()
	section, err := s.store.UpdateSection(ctx, auditID, sectionID, patch)
	if err != nil {
		return audit.Section{}, err
	}
	s.recordMutation(ctx, caller, auditID, "update_section", sectionID)
	return section, nil
}

func (s *Service) DeleteSection(ctx context.Context, caller audit.Caller, auditID, sectionID string) error {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return err
	}
	defer s.timed("delete_section")()
	if err := s.store.DeleteSection(ctx, auditID, sectionID); err != nil {
		return err
	}
	s.recordMutation(ctx, caller, auditID, "delete_section", sectionID)
	s.broadcast(ctx, auditID)
	return nil
}

func (s *Service) GetSummary(ctx context.Context, caller audit.Caller, auditID string) (string, error) {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return "", err
	}
	defer s.timed("get_summary")()
	return s.store.GetSummary(ctx, auditID)
}

// UpdateSummary replaces the summary. An absent or empty summary is rejected
// before any store access. Summary updates do not broadcast.
func (s *Service) UpdateSummary(ctx context.Context, caller audit.Caller, auditID string, raw Raw) error {
	if err := s.authorize(ctx, caller, auditID); err != nil {
		return err
	}
	patch, err := audit.Project(audit.SummarySchema, raw)
	if err != nil {
		return err
	}
	var summary string
	if err := json.Unmarshal(patch["summary"], &summary); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid value for field: summary")
	}

	defer s.timed("update_summary")()
	if err := s.store.UpdateSummary(ctx, auditID, summary); err != nil {
		return err
	}
	s.recordMutation(ctx, caller, auditID, "update_summary", "")
	return nil
}

var errForbidden = dErrors.New(dErrors.CodeForbidden, "audit access denied")

// authorize applies the access filter before any id-scoped operation. Admins
// bypass the ownership check entirely.
func (s *Service) authorize(ctx context.Context, caller audit.Caller, auditID string) error {
	access, err := s.access(ctx, auditID)
	if err != nil {
		return err
	}
	if !audit.CanAccess(caller, access) {
		return errForbidden
	}
	return nil
}

func (s *Service) access(ctx context.Context, auditID string) (audit.Access, error) {
	if uuid.Validate(auditID) != nil {
		return audit.Access{}, store.ErrNotFound
	}
	return s.store.GetAccess(ctx, auditID)
}

// broadcast publishes the change signal. Best-effort: the notifier swallows
// its own failures.
func (s *Service) broadcast(ctx context.Context, auditID string) {
	s.notifier.Notify(ctx, auditID, notify.EventAuditUpdated)
	s.metrics.IncNotification()
}

func (s *Service) recordMutation(ctx context.Context, caller audit.Caller, auditID, action, targetID string) {
	s.metrics.IncMutation(action)
	s.activity.Emit(ctx, activity.Event{
		Actor:    caller.Username,
		AuditID:  auditID,
		Action:   action,
		TargetID: targetID,
	})
}

func (s *Service) timed(operation string) func() {
	start := time.Now()
	return func() {
		s.metrics.ObserveStoreLatency(operation, time.Since(start))
	}
}
