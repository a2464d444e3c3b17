package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FranksOps/catgap/internal/evidence"
	"github.com/FranksOps/catgap/internal/storage/csvbackend"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func TestVersionCmd(t *testing.T) {
	assert.Contains(t, execute(t, "version"), "catgap version dev")
}

func TestClassifyCmd(t *testing.T) {
	out := execute(t, "classify",
		"https://www.fatshackvintage.com.au/collections/hats",
		"/products/wool-beret",
		"https://www.fatshackvintage.com.au/help/shipping",
	)
	assert.Contains(t, out, "Known Listing")
	assert.Contains(t, out, "Known Detail")
	assert.Contains(t, out, "Irrelevant")
}

func TestReportCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")
	b, err := csvbackend.New(path)
	require.NoError(t, err)
	r := evidence.NewKeywordResult("run-1", "wool berets")
	r.Conclude(evidence.CreateNewCategory, "No listing, related products found.")
	require.NoError(t, b.Save(context.Background(), r))
	require.NoError(t, b.Close())

	md := execute(t, "report", "--from", path)
	assert.Contains(t, md, "*   **wool berets**: Yes (Create *new* category)")

	table := execute(t, "report", "--from", path, "-f", "table")
	assert.Contains(t, table, "wool berets")
}

func TestReportCmd_RequiresFrom(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"report"})
	assert.Error(t, cmd.Execute())
}

func TestAnalyzeCmd_MissingKeywordFile(t *testing.T) {
	out := execute(t, "analyze", "--site", "https://shop.example", "--keywords", "nope.txt")

	csvs, err := filepath.Glob(filepath.Join("outputs", "category_opportunity_analysis_*.csv"))
	require.NoError(t, err)
	require.Len(t, csvs, 1)
	assert.Contains(t, out, "Results: "+csvs[0])
	assert.Contains(t, out, "Report:  ")

	body, err := os.ReadFile(csvs[0])
	require.NoError(t, err)
	assert.Equal(t, strings.Join(csvbackend.Headers, ",")+"\n", string(body), "an empty run still writes the header row")
}
