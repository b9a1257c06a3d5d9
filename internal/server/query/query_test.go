package query

import (
	"net/url"
	"testing"

	"github.com/dmitrijs2005/dropzone/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Resource
	}{
		{"set", "attachments", Resource{Set: "attachments"}},
		{"keyed", "attachments(a1)", Resource{Set: "attachments", Key: "a1"}},
		{"attribute", "/attachments(a1)/file", Resource{Set: "attachments", Key: "a1", Attribute: "file"}},
		{"definition", "EntityDefinitions(LogicalName='Project')", Resource{Definition: "project"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePath_Errors(t *testing.T) {
	for _, in := range []string{
		"",
		"a/b/c",
		"attachments()",
		"attachments(a1",
		"(a1)",
		"attachments/file",
		"EntityDefinitions(x)",
		"EntityDefinitions(LogicalName='')",
		"EntityDefinitions(LogicalName='p')/x",
	} {
		_, err := ParsePath(in)
		assert.ErrorIs(t, err, common.ErrInvalidQuery, in)
	}
}

func TestParseBindTarget(t *testing.T) {
	set, key, err := ParseBindTarget("/projects(p1)")
	require.NoError(t, err)
	assert.Equal(t, "projects", set)
	assert.Equal(t, "p1", key)

	_, _, err = ParseBindTarget("/projects")
	assert.ErrorIs(t, err, common.ErrInvalidQuery)
}

func TestParse(t *testing.T) {
	v := url.Values{}
	v.Set("$select", "name, filesize,attachmentid,createdon")
	v.Set("$filter", "_project_value eq 8d1f-22 and name eq 'O''Brien.pdf' and note eq null")
	v.Set("$orderby", "createdon desc, name")

	got, err := Parse(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "filesize", "attachmentid", "createdon"}, got.Select)
	assert.Equal(t, []Condition{
		{Attribute: "_project_value", Value: "8d1f-22"},
		{Attribute: "name", Value: "O'Brien.pdf"},
		{Attribute: "note", Null: true},
	}, got.Filter)
	assert.Equal(t, []Order{{Attribute: "createdon", Desc: true}, {Attribute: "name"}}, got.OrderBy)
}

func TestParse_QuotedValueIsOneTerm(t *testing.T) {
	v := url.Values{}
	v.Set("$filter", "_project_value eq 'P1'' and name eq ''x'")

	got, err := Parse(v)
	require.NoError(t, err)
	assert.Equal(t, []Condition{{Attribute: "_project_value", Value: "P1' and name eq 'x"}}, got.Filter)
}

func TestParse_Empty(t *testing.T) {
	got, err := Parse(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, Options{}, got)
}

func TestParse_Errors(t *testing.T) {
	cases := map[string][2]string{
		"select":       {"$select", "name;drop"},
		"operator":     {"$filter", "size gt 3"},
		"incomplete":   {"$filter", "name eq"},
		"joiner":       {"$filter", "a eq 1 or b eq 2"},
		"unterminated": {"$filter", "name eq 'abc"},
		"quoted attr":  {"$filter", "'name' eq 'x'"},
		"direction":    {"$orderby", "name sideways"},
		"orderby attr": {"$orderby", "na-me"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			v := url.Values{}
			v.Set(c[0], c[1])
			_, err := Parse(v)
			assert.ErrorIs(t, err, common.ErrInvalidQuery)
		})
	}
}
