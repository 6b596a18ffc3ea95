package csvcatalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Number,SetName,Theme,YearFrom,PackagingType,LaunchDate\n"

func TestParse(t *testing.T) {
	input := "\ufeff" + header +
		"75192, Millennium Falcon ,Star Wars,2017,Box,2017-10-01\n" +
		"30654,X-Wing,Star Wars,2024,Polybag,\n"

	entries, err := Parse(strings.NewReader(input), ',')
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "75192", entries[0].Number)
	assert.Equal(t, "Millennium Falcon", entries[0].SetName)
	assert.Equal(t, "2017", entries[0].YearFrom)
	assert.Equal(t, "Box", entries[0].PackagingType)
	assert.Equal(t, "", entries[1].LaunchDate)
}

func TestParse_ColumnOrderIsFree(t *testing.T) {
	input := "PackagingType,Number,LaunchDate,Theme,SetName,YearFrom\n" +
		"Box,10294,2021-11-01,Icons,Titanic,2021\n"

	entries, err := Parse(strings.NewReader(input), ',')
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "10294", entries[0].Number)
	assert.Equal(t, "Titanic", entries[0].SetName)
	assert.Equal(t, "Box", entries[0].PackagingType)
}

func TestParse_HeaderMismatch(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		missing    []string
		unexpected []string
		duplicate  []string
	}{
		{
			name:    "missing column",
			header:  "Number,SetName,Theme,YearFrom,PackagingType",
			missing: []string{"LaunchDate"},
		},
		{
			name:       "renamed column",
			header:     "SetNumber,SetName,Theme,YearFrom,PackagingType,LaunchDate",
			missing:    []string{"Number"},
			unexpected: []string{"SetNumber"},
		},
		{
			name:      "duplicated column",
			header:    "Number,SetName,Theme,YearFrom,PackagingType,LaunchDate,Theme",
			duplicate: []string{"Theme"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.header+"\n"), ',')
			var herr *HeaderError
			require.ErrorAs(t, err, &herr)
			assert.Equal(t, tc.missing, herr.Missing)
			assert.Equal(t, tc.unexpected, herr.Unexpected)
			assert.Equal(t, tc.duplicate, herr.Duplicate)
		})
	}
}

func TestParse_EmptyNumber(t *testing.T) {
	_, err := Parse(strings.NewReader(header+" ,Unknown,,,Box,\n"), ',')
	assert.True(t, errors.Is(err, ErrEmptyNumber))
}

func TestParse_Semicolon(t *testing.T) {
	input := strings.ReplaceAll(header, ",", ";") + "42115;Lamborghini Sian;Technic;2020;Box;2020-06-01\n"
	entries, err := Parse(strings.NewReader(input), ';')
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Technic", entries[0].Theme)
}

func TestAdapter_FetchBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sets.csv")
	content := header +
		"1,A,T,2020,Box,\n" +
		"2,B,T,2020,Box,\n" +
		"3,C,T,2020,Box,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	a := NewAdapter(path, 0)
	assert.Equal(t, "csv:"+path, a.GetSourceID())

	ctx := context.Background()
	first, cursor, err := a.FetchBatch(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "2", cursor)

	second, cursor, err := a.FetchBatch(ctx, cursor, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "3", second[0].Number)
	assert.Empty(t, cursor)

	_, _, err = a.FetchBatch(ctx, "x", 2)
	assert.Error(t, err)
}

func TestAdapter_MissingFile(t *testing.T) {
	_, _, err := NewAdapter(filepath.Join(t.TempDir(), "nope.csv"), ',').FetchBatch(context.Background(), "", 10)
	assert.Error(t, err)
}
