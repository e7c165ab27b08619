package codes

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `code,description
P0300,Random/Multiple Cylinder Misfire Detected
p0171,System Too Lean (Bank 1)
P0420,Catalyst System Efficiency Below Threshold (Bank 1)
`

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func TestLoad_OK(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "OBD2.csv", sampleCSV)

	tbl, err := Load(fs, "OBD2.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())

	d, ok := tbl.Lookup("P0171")
	require.True(t, ok)
	assert.Equal(t, "System Too Lean (Bank 1)", d)
}

func TestLoad_MissingFileYieldsEmptyTable(t *testing.T) {
	tbl, err := Load(afero.NewMemMapFs(), "nope.csv")
	require.ErrorIs(t, err, ErrSourceNotFound)
	require.NotNil(t, tbl)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, "Code P0300 not found.", tbl.Search("p0300"))
}

func TestLoad_SchemaError(t *testing.T) {
	cases := map[string]string{
		"no description": "code,text\nP0300,x\n",
		"no code":        "id,description\n1,x\n",
		"empty file":     "",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadReader(strings.NewReader(content))
			require.ErrorIs(t, err, ErrSchema)
			var se *SchemaError
			require.True(t, errors.As(err, &se))
		})
	}
}

func TestLoadReader_ExtraColumnsAndOrder(t *testing.T) {
	in := "\ufeffDescription, Code ,system\nMisfire,P0300,engine\nLean,P0171,fuel\n"
	tbl, err := LoadReader(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Code: "P0300", Description: "Misfire"},
		{Code: "P0171", Description: "Lean"},
	}, tbl.All())
}

func TestDuplicateLastWins(t *testing.T) {
	in := "code,description\nP0300,first\nP0171,lean\np0300,second\n"
	tbl, err := LoadReader(strings.NewReader(in))
	require.NoError(t, err)

	d, ok := tbl.Lookup("P0300")
	require.True(t, ok)
	assert.Equal(t, "second", d)
	// position of the first occurrence is kept
	assert.Equal(t, "P0300", tbl.All()[0].Code)
	assert.Equal(t, 2, tbl.Len())
}

func TestSearch_CaseInsensitive(t *testing.T) {
	tbl := New(Entry{Code: "P0300", Description: "Random/Multiple Cylinder Misfire Detected"})

	lower := tbl.Search("p0300")
	upper := tbl.Search("P0300")
	assert.Equal(t, upper, lower)
	assert.Equal(t, "Code: P0300\nDescription: Random/Multiple Cylinder Misfire Detected", upper)
}

func TestSearch_HitAndMiss(t *testing.T) {
	entries := []Entry{
		{Code: "P0300", Description: "Misfire"},
		{Code: "B1000", Description: "ECU malfunction"},
	}
	tbl := New(entries...)
	for _, e := range entries {
		got := tbl.Search(strings.ToLower(e.Code))
		assert.True(t, strings.HasPrefix(got, "Code: "+e.Code))
		assert.Contains(t, got, e.Description)
	}
	for _, missing := range []string{"P9999", "u0100", ""} {
		assert.Equal(t, "Code "+strings.ToUpper(missing)+" not found.", tbl.Search(missing))
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	tbl := New(Entry{Code: "P0300", Description: "Misfire"})
	all := tbl.All()
	all[0].Description = "changed"
	d, _ := tbl.Lookup("P0300")
	assert.Equal(t, "Misfire", d)
}
