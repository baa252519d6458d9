package audit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyGeneralLeavesAbsentFieldsUntouched(t *testing.T) {
	g := General{
		Name:     "Q3 external",
		Language: "en",
		Template: "default",
		Location: "remote",
	}
	patch := Patch{
		"location": json.RawMessage(`"on-site"`),
	}

	require.NoError(t, ApplyGeneral(&g, patch))

	assert.Equal(t, "on-site", g.Location)
	assert.Equal(t, "Q3 external", g.Name)
	assert.Equal(t, "en", g.Language)
	assert.Equal(t, "default", g.Template)
}

func TestApplyGeneralReplacesListsWholesale(t *testing.T) {
	g := General{Collaborators: []string{"alice", "bob"}}
	patch := Patch{
		"collaborators": json.RawMessage(`["carol"]`),
		"scope":         json.RawMessage(`[{"name":"dmz"}]`),
	}

	require.NoError(t, ApplyGeneral(&g, patch))

	assert.Equal(t, []string{"carol"}, g.Collaborators)
	assert.Equal(t, []ScopeItem{{Name: "dmz"}}, g.Scope)
}

func TestApplyFindingPreservesRawStatus(t *testing.T) {
	f := Finding{Title: "SQLi", Priority: "P1"}
	require.NoError(t, ApplyFinding(&f, Patch{"status": json.RawMessage(`false`)}))
	assert.Equal(t, "false", string(f.Status))
	assert.Equal(t, "SQLi", f.Title)
	assert.Equal(t, "P1", f.Priority)

	require.NoError(t, ApplyFinding(&f, Patch{"status": json.RawMessage(`0`)}))
	assert.Equal(t, "0", string(f.Status))
}

func TestApplySectionOnlyTouchesParagraphs(t *testing.T) {
	s := Section{ID: "s1", Field: "conclusion", Name: "Conclusion"}
	patch := Patch{"paragraphs": json.RawMessage(`[{"text":"done"}]`)}

	require.NoError(t, ApplySection(&s, patch))

	assert.Equal(t, "conclusion", s.Field)
	assert.Equal(t, "Conclusion", s.Name)
	assert.Equal(t, []Paragraph{{Text: "done"}}, s.Paragraphs)

	err := ApplySection(&s, Patch{"name": json.RawMessage(`"Hijacked"`)})
	require.Error(t, err)
}

func TestNewSection(t *testing.T) {
	s, err := NewSection(Patch{
		"field":      json.RawMessage(`"attack_narrative"`),
		"name":       json.RawMessage(`"Attack Narrative"`),
		"paragraphs": json.RawMessage(`[{"text":"Initial access via phishing.","images":[{"image":"img-1","caption":"payload"}]}]`),
	})
	require.NoError(t, err)
	assert.Equal(t, "attack_narrative", s.Field)
	assert.Equal(t, "Attack Narrative", s.Name)
	require.Len(t, s.Paragraphs, 1)
	assert.Len(t, s.Paragraphs[0].Images, 1)
}

func TestAccessAllows(t *testing.T) {
	access := Access{Owner: "alice", Collaborators: []string{"bob"}}

	assert.True(t, access.Allows("alice"))
	assert.True(t, access.Allows("bob"))
	assert.False(t, access.Allows("mallory"))
	assert.False(t, access.Allows(""))
}

func TestCallerAccess(t *testing.T) {
	access := Access{Owner: "alice"}

	assert.True(t, CanAccess(Caller{Username: "root", Role: RoleAdmin}, access))
	assert.True(t, CanAccess(Caller{Username: "alice", Role: RoleUser}, access))
	assert.False(t, CanAccess(Caller{Username: "bob", Role: RoleUser}, access))
}
