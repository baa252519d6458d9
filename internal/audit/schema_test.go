package audit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "vulnreport/pkg/domain-errors"
)

func rawBody(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	return raw
}

func TestProjectKeepsOnlySchemaFields(t *testing.T) {
	raw := rawBody(t, `{
		"name": "Q3 external",
		"location": "remote",
		"owner": "mallory",
		"findings": [{"title": "injected"}]
	}`)

	patch, err := Project(GeneralSchema, raw)
	require.NoError(t, err)

	assert.Equal(t, `"Q3 external"`, string(patch["name"]))
	assert.Equal(t, `"remote"`, string(patch["location"]))
	assert.NotContains(t, patch, "owner")
	assert.NotContains(t, patch, "findings")
}

func TestProjectPresenceNotTruthiness(t *testing.T) {
	t.Run("false status survives", func(t *testing.T) {
		patch, err := Project(FindingUpdateSchema, rawBody(t, `{"status": false}`))
		require.NoError(t, err)
		assert.Equal(t, "false", string(patch["status"]))
	})

	t.Run("zero status survives", func(t *testing.T) {
		patch, err := Project(FindingUpdateSchema, rawBody(t, `{"status": 0}`))
		require.NoError(t, err)
		assert.Equal(t, "0", string(patch["status"]))
	})

	t.Run("zero cvss score survives", func(t *testing.T) {
		patch, err := Project(FindingUpdateSchema, rawBody(t, `{"cvssScore": 0}`))
		require.NoError(t, err)
		assert.Equal(t, "0", string(patch["cvssScore"]))
	})

	t.Run("null is treated as absent", func(t *testing.T) {
		patch, err := Project(FindingUpdateSchema, rawBody(t, `{"priority": null}`))
		require.NoError(t, err)
		assert.NotContains(t, patch, "priority")
	})

	t.Run("absent keys are omitted", func(t *testing.T) {
		patch, err := Project(FindingUpdateSchema, rawBody(t, `{"priority": "P1"}`))
		require.NoError(t, err)
		assert.Len(t, patch, 1)
	})
}

func TestProjectRequiredFields(t *testing.T) {
	t.Run("all missing are reported together", func(t *testing.T) {
		_, err := Project(CreateSchema, rawBody(t, `{}`))
		require.Error(t, err)
		assert.Equal(t, dErrors.CodeBadRequest, dErrors.CodeOf(err))
		assert.Equal(t, "missing required parameters: language, name, template", dErrors.DescriptionOf(err))
	})

	t.Run("null counts as missing", func(t *testing.T) {
		_, err := Project(CreateSchema, rawBody(t, `{"name": null, "language": "en", "template": "default"}`))
		require.Error(t, err)
		assert.Equal(t, "missing required parameters: name", dErrors.DescriptionOf(err))
	})

	t.Run("empty string counts as missing", func(t *testing.T) {
		_, err := Project(CreateSchema, rawBody(t, `{"name": "", "language": "en", "template": "default"}`))
		require.Error(t, err)
		assert.Equal(t, "missing required parameters: name", dErrors.DescriptionOf(err))
	})

	t.Run("complete body passes", func(t *testing.T) {
		patch, err := Project(CreateSchema, rawBody(t, `{"name": "Q3", "language": "en", "template": "default"}`))
		require.NoError(t, err)
		assert.Len(t, patch, 3)
	})
}

func TestProjectCanonicalizesReferences(t *testing.T) {
	t.Run("nested object is reduced to its id", func(t *testing.T) {
		patch, err := Project(GeneralSchema, rawBody(t, `{
			"client": {"id": "c-42", "email": "ceo@corp.test", "role": "admin"}
		}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"c-42"}`, string(patch["client"]))
	})

	t.Run("reference without id is skipped", func(t *testing.T) {
		patch, err := Project(GeneralSchema, rawBody(t, `{"company": {"name": "Corp"}}`))
		require.NoError(t, err)
		assert.NotContains(t, patch, "company")
	})
}

func TestProjectCanonicalizesScope(t *testing.T) {
	t.Run("general scope strings become name items", func(t *testing.T) {
		patch, err := Project(GeneralSchema, rawBody(t, `{"scope": ["dmz", "intranet"]}`))
		require.NoError(t, err)
		assert.JSONEq(t, `[{"name":"dmz"},{"name":"intranet"}]`, string(patch["scope"]))
	})

	t.Run("network scope passes through untouched", func(t *testing.T) {
		patch, err := Project(NetworkSchema, rawBody(t, `{"scope": [{"host": "10.0.0.1", "services": [22, 443]}]}`))
		require.NoError(t, err)
		assert.JSONEq(t, `[{"host":"10.0.0.1","services":[22,443]}]`, string(patch["scope"]))
	})
}

func TestProjectDeduplicatesStringLists(t *testing.T) {
	patch, err := Project(GeneralSchema, rawBody(t, `{"collaborators": [" bob ", "carol", "bob", ""]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `["bob","carol"]`, string(patch["collaborators"]))
}

func TestProjectRejectsWrongTypes(t *testing.T) {
	cases := []struct {
		name   string
		schema []Field
		body   string
	}{
		{"string field with number", GeneralSchema, `{"name": 7}`},
		{"number field with string", FindingUpdateSchema, `{"cvssScore": "high"}`},
		{"string list with objects", GeneralSchema, `{"collaborators": [{"name": "bob"}]}`},
		{"name list with numbers", GeneralSchema, `{"scope": [1, 2]}`},
		{"status with string", FindingUpdateSchema, `{"status": "open"}`},
		{"raw list with object", NetworkSchema, `{"scope": {"host": "10.0.0.1"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Project(tc.schema, rawBody(t, tc.body))
			require.Error(t, err)
			assert.Equal(t, dErrors.CodeBadRequest, dErrors.CodeOf(err))
		})
	}
}

func TestProjectSectionSchemas(t *testing.T) {
	t.Run("create requires field and name", func(t *testing.T) {
		_, err := Project(SectionCreateSchema, rawBody(t, `{"paragraphs": []}`))
		require.Error(t, err)
		assert.Equal(t, "missing required parameters: field, name", dErrors.DescriptionOf(err))
	})

	t.Run("update ignores field and name", func(t *testing.T) {
		patch, err := Project(SectionUpdateSchema, rawBody(t, `{
			"field": "conclusion",
			"name": "Conclusion",
			"paragraphs": [{"text": "All clear."}]
		}`))
		require.NoError(t, err)
		assert.NotContains(t, patch, "field")
		assert.NotContains(t, patch, "name")
		assert.JSONEq(t, `[{"text":"All clear."}]`, string(patch["paragraphs"]))
	})
}
