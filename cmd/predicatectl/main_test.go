package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTemplates(t *testing.T) {
	out, err := execute(t, "templates")
	require.NoError(t, err)

	var infos []templateInfo
	require.NoError(t, yaml.Unmarshal([]byte(out), &infos))
	byField := map[string]templateInfo{}
	for _, info := range infos {
		byField[info.Field] = info
	}
	assert.Equal(t, "enum", byField["Genre"].Kind)
	assert.Equal(t, []string{"fiction", "history", "poetry", "science"}, byField["Genre"].Cases)
	assert.Contains(t, byField["Rating"].Kind, "optional")
	require.NotEmpty(t, byField["Reviews"].Elements)
	assert.Contains(t, byField["Title"].Operators, "begins with")
}

func TestEval(t *testing.T) {
	out, err := execute(t, "eval", filepath.Join("testdata", "library.yaml"))
	require.NoError(t, err)

	var res evalResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, []string{"The Long Voyage", "A Short History of Maps"}, res.Matches)
	assert.NotEmpty(t, res.Predicate)
}

func TestSQL(t *testing.T) {
	out, err := execute(t, "sql", "--run", filepath.Join("testdata", "library.yaml"))
	require.NoError(t, err)

	var res sqlResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, "sqlite", res.Dialect)
	// the title contains row is evaluated in memory, and with it its any group
	assert.True(t, res.Residual)
	assert.NotContains(t, res.Where, "LIKE")
	assert.Contains(t, res.Where, "EXISTS")
	assert.Contains(t, res.Where, `"books"."rating" IS NOT NULL`)
	assert.Equal(t, []string{"The Long Voyage", "A Short History of Maps"}, res.Matches)
}

func TestSQLResidualPrefix(t *testing.T) {
	out, err := execute(t, "sql", "--run", filepath.Join("testdata", "prefix.yaml"))
	require.NoError(t, err)

	var res sqlResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.True(t, res.Residual)
	assert.Equal(t, []string{"Quiet Verses"}, res.Matches)
}

func TestRoundTrip(t *testing.T) {
	out, err := execute(t, "roundtrip", filepath.Join("testdata", "library.yaml"))
	require.NoError(t, err)

	var res struct {
		Decoded int  `yaml:"decoded"`
		Dropped int  `yaml:"dropped"`
		Stable  bool `yaml:"stable"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.True(t, res.Stable)
	assert.Zero(t, res.Dropped)
	assert.Positive(t, res.Decoded)
}

func TestInvalidFixtures(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "filter:\n  field: Publisher\n  op: equals\n  value: x\n"},
		{"wrong operator", "filter:\n  field: Pages\n  op: contains\n  value: 3\n"},
		{"wrong value", "filter:\n  field: Genre\n  op: is\n  value: cooking\n"},
		{"not yaml", "filter: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "eval", write(tt.name+".yaml", tt.content))
			assert.Error(t, err)
		})
	}

	_, err := execute(t, "eval", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestCalendarFlags(t *testing.T) {
	_, err := execute(t, "--tz", "Mars/Olympus", "eval", filepath.Join("testdata", "library.yaml"))
	assert.Error(t, err)

	_, err = execute(t, "--week-start", "friday", "eval", filepath.Join("testdata", "library.yaml"))
	assert.Error(t, err)

	_, err = execute(t, "--tz", "Europe/Berlin", "--week-start", "monday", "eval", filepath.Join("testdata", "library.yaml"))
	assert.NoError(t, err)
}
