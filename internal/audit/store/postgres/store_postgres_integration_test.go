//go:build integration

package postgres_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"vulnreport/internal/audit"
	"vulnreport/internal/audit/store"
	"vulnreport/internal/audit/store/postgres"
	"vulnreport/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *containers.PostgresContainer
	store     *postgres.Store
	ctx       context.Context
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.container = containers.NewPostgresContainer(s.T())
	s.store = postgres.New(s.container.Pool)
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.container.TruncateTables(s.ctx, "audits"))
}

func (s *PostgresStoreSuite) createAudit(name, owner string) string {
	id, err := s.store.Create(s.ctx, audit.General{
		Name:     name,
		Language: "en",
		Template: "default",
	}, owner)
	s.Require().NoError(err)
	return id
}

func (s *PostgresStoreSuite) TestCreateAndGetAggregate() {
	id := s.createAudit("Q3 external", "alice")

	a, err := s.store.GetAudit(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("alice", a.Owner)
	s.Equal("Q3 external", a.General.Name)
	s.Empty(a.Findings)
	s.Empty(a.Sections)
	s.False(a.CreatedAt.IsZero())
}

func (s *PostgresStoreSuite) TestGeneralPatchIsAtomicMerge() {
	id := s.createAudit("Q3 external", "alice")

	general, err := s.store.UpdateGeneral(s.ctx, id, audit.Patch{
		"location": json.RawMessage(`"on-site"`),
		"scope":    json.RawMessage(`[{"name":"dmz"}]`),
	})
	s.Require().NoError(err)

	s.Equal("on-site", general.Location)
	s.Equal("Q3 external", general.Name, "untouched fields must survive the merge")
	s.Equal("en", general.Language)
	s.Equal([]audit.ScopeItem{{Name: "dmz"}}, general.Scope)
}

func (s *PostgresStoreSuite) TestAccessAndCollaborators() {
	id := s.createAudit("Q3", "alice")

	_, err := s.store.UpdateGeneral(s.ctx, id, audit.Patch{
		"collaborators": json.RawMessage(`["bob","carol"]`),
	})
	s.Require().NoError(err)

	access, err := s.store.GetAccess(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("alice", access.Owner)
	s.Equal([]string{"bob", "carol"}, access.Collaborators)

	s.Run("collaborator containment drives visibility", func() {
		list, err := s.store.ListForUser(s.ctx, "carol", audit.ListFilter{})
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(id, list[0].ID)

		list, err = s.store.ListForUser(s.ctx, "mallory", audit.ListFilter{})
		s.Require().NoError(err)
		s.Empty(list)
	})
}

func (s *PostgresStoreSuite) TestFindingLifecycle() {
	id := s.createAudit("Q3", "alice")

	created, err := s.store.CreateFinding(s.ctx, id, audit.Finding{
		Title:    "Stored XSS",
		Priority: "P2",
		Status:   json.RawMessage(`0`),
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(created.ID)

	s.Run("jsonb merge keeps sibling fields", func() {
		updated, err := s.store.UpdateFinding(s.ctx, id, created.ID, audit.Patch{
			"priority": json.RawMessage(`"P1"`),
		})
		s.Require().NoError(err)
		s.Equal("P1", updated.Priority)
		s.Equal("Stored XSS", updated.Title)
		s.Equal("0", string(updated.Status))
	})

	s.Run("status false survives the round trip", func() {
		updated, err := s.store.UpdateFinding(s.ctx, id, created.ID, audit.Patch{
			"status": json.RawMessage(`false`),
		})
		s.Require().NoError(err)
		s.Equal("false", string(updated.Status))

		got, err := s.store.GetFinding(s.ctx, id, created.ID)
		s.Require().NoError(err)
		s.Equal("false", string(got.Status))
	})

	s.Run("titles keep insertion order", func() {
		second, err := s.store.CreateFinding(s.ctx, id, audit.Finding{Title: "Weak TLS"})
		s.Require().NoError(err)

		titles, err := s.store.ListFindingTitles(s.ctx, id)
		s.Require().NoError(err)
		s.Require().Len(titles, 2)
		s.Equal(created.ID, titles[0].ID)
		s.Equal(second.ID, titles[1].ID)
	})

	s.Run("delete distinguishes missing finding from missing audit", func() {
		s.Require().NoError(s.store.DeleteFinding(s.ctx, id, created.ID))
		err := s.store.DeleteFinding(s.ctx, id, created.ID)
		s.Require().ErrorIs(err, store.ErrFindingNotFound)

		err = s.store.DeleteFinding(s.ctx, uuid.NewString(), created.ID)
		s.Require().ErrorIs(err, store.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestSectionLifecycle() {
	id := s.createAudit("Q3", "alice")

	created, err := s.store.CreateSection(s.ctx, id, audit.Section{
		Field: "conclusion",
		Name:  "Conclusion",
	})
	s.Require().NoError(err)

	updated, err := s.store.UpdateSection(s.ctx, id, created.ID, audit.Patch{
		"paragraphs": json.RawMessage(`[{"text":"All clear.","images":[{"image":"img-1"}]}]`),
	})
	s.Require().NoError(err)
	s.Equal("conclusion", updated.Field)
	s.Require().Len(updated.Paragraphs, 1)
	s.Len(updated.Paragraphs[0].Images, 1)

	s.Require().NoError(s.store.DeleteSection(s.ctx, id, created.ID))
	_, err = s.store.GetSection(s.ctx, id, created.ID)
	s.Require().ErrorIs(err, store.ErrSectionNotFound)
}

func (s *PostgresStoreSuite) TestNetworkAndSummary() {
	id := s.createAudit("Q3", "alice")

	network, err := s.store.UpdateNetwork(s.ctx, id, audit.Patch{
		"scope": json.RawMessage(`[{"host":"10.0.0.1","services":[22,443]}]`),
	})
	s.Require().NoError(err)
	s.Require().Len(network.Scope, 1)

	s.Require().NoError(s.store.UpdateSummary(s.ctx, id, "Two criticals."))
	summary, err := s.store.GetSummary(s.ctx, id)
	s.Require().NoError(err)
	s.Equal("Two criticals.", summary)
}

func (s *PostgresStoreSuite) TestFindingTitleFilter() {
	match := s.createAudit("web audit", "alice")
	other := s.createAudit("infra audit", "alice")

	_, err := s.store.CreateFinding(s.ctx, match, audit.Finding{Title: "Blind SQL Injection"})
	s.Require().NoError(err)
	_, err = s.store.CreateFinding(s.ctx, other, audit.Finding{Title: "Weak TLS"})
	s.Require().NoError(err)

	list, err := s.store.ListAll(s.ctx, audit.ListFilter{FindingTitle: "sql"})
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(match, list[0].ID)
}

func (s *PostgresStoreSuite) TestDeleteCascades() {
	id := s.createAudit("Q3", "alice")
	_, err := s.store.CreateFinding(s.ctx, id, audit.Finding{Title: "XSS"})
	s.Require().NoError(err)

	s.Require().NoError(s.store.Delete(s.ctx, id))
	s.Require().ErrorIs(s.store.Delete(s.ctx, id), store.ErrNotFound)

	var count int
	err = s.container.Pool.QueryRow(s.ctx,
		`SELECT COUNT(*) FROM audit_findings WHERE audit_id = $1`, id).Scan(&count)
	s.Require().NoError(err)
	s.Zero(count)
}
