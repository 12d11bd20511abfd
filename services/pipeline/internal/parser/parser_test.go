package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobclean/services/pipeline/internal/errors"
	"jobclean/services/pipeline/internal/frame"
)

const sampleCSV = "\ufeffjob_id,job_title,salary_usd,benefits_score,remote,required_skills,posting_date\n" +
	"AI00001,Data Engineer,90376,5.9,true,\"Python, SQL, AWS\",2024-10-18\n" +
	"AI00002,AI Researcher,61895,,False,\"Kubernetes, Python\",2024-11-20\n" +
	"AI00003,,152626,9.2,TRUE,,2025-01-18\n"

func TestParseDataset(t *testing.T) {
	f, err := ParseDataset([]byte(sampleCSV), DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, f.Len())
	assert.Equal(t, []frame.Column{
		{Name: "job_id", Kind: frame.String},
		{Name: "job_title", Kind: frame.String},
		{Name: "salary_usd", Kind: frame.Int},
		{Name: "benefits_score", Kind: frame.Float},
		{Name: "remote", Kind: frame.Bool},
		{Name: "required_skills", Kind: frame.String},
		{Name: "posting_date", Kind: frame.String},
	}, f.Schema())

	assert.Equal(t, "AI00001", f.Value(0, "job_id"))
	assert.Equal(t, int64(90376), f.Value(0, "salary_usd"))
	assert.Equal(t, 5.9, f.Value(0, "benefits_score"))
	assert.Nil(t, f.Value(1, "benefits_score"))
	assert.Equal(t, false, f.Value(1, "remote"))
	assert.Equal(t, true, f.Value(2, "remote"))
	assert.Nil(t, f.Value(2, "job_title"))
	assert.Equal(t, "Python, SQL, AWS", f.Value(0, "required_skills"))
}

func TestParseDataset_CustomNulls(t *testing.T) {
	body := "employment_type,years\nNA,3\nFT,NULL\n"

	defaults, err := ParseDataset([]byte(body), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "NA", defaults.Value(0, "employment_type"))
	kind, _ := defaults.Kind("years")
	assert.Equal(t, frame.String, kind, "NULL is a literal unless configured")

	custom, err := ParseDataset([]byte(body), Options{NullValues: []string{"", "NULL", "NA"}})
	require.NoError(t, err)
	assert.Nil(t, custom.Value(0, "employment_type"))
	assert.Nil(t, custom.Value(1, "years"))
	kind, _ = custom.Kind("years")
	assert.Equal(t, frame.Int, kind)
}

func TestParseDataset_AllNullColumnIsString(t *testing.T) {
	f, err := ParseDataset([]byte("a,b\n1,\n2,\n"), DefaultOptions())
	require.NoError(t, err)

	kind, _ := f.Kind("b")
	assert.Equal(t, frame.String, kind)
	kind, _ = f.Kind("a")
	assert.Equal(t, frame.Int, kind)
}

func TestParseDataset_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"ragged row", "a,b\n1,2\n3\n"},
		{"duplicate header", "a,a\n1,2\n"},
		{"bad quote", "a,b\n\"x,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDataset([]byte(tt.body), DefaultOptions())
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrTypeInvalidInput))
		})
	}
}
