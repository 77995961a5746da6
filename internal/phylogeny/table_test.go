package phylogeny

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Headers carry leading spaces the way the simulation writes them.
const sampleTable = `id, parent_id, num_orgs, tot_orgs, info
1, 0, 0, 5, [ 0 0 ]
2, 1, 0, 3, [ 1 1 ]
3, 2, 2, 2, [ 2 1 ]
4, 2, 1, 1, [ 1.5 2.5 ]
5, 1, 4, 4, [ -1 -1 ]
`

// sumEvaluator scores a genotype as x + y.
type sumEvaluator struct{}

func (sumEvaluator) Evaluate(x []float64) (float64, error) {
	return x[0] + x[1], nil
}

func mustTable(t *testing.T, text string) *Table {
	t.Helper()
	table, err := ReadTable(strings.NewReader(text))
	require.NoError(t, err)
	return table
}

func TestReadTableParsesRows(t *testing.T) {
	table := mustTable(t, sampleTable)

	assert.Equal(t, 5, table.Len())
	assert.Equal(t, []string{"id", "parent_id", "num_orgs", "tot_orgs", "info"}, table.Header())

	org, ok := table.Get(4)
	require.True(t, ok)
	assert.Equal(t, 2, org.ParentID)
	assert.Equal(t, 1, org.NumOrgs)
	assert.Equal(t, 1.5, org.X)
	assert.Equal(t, 2.5, org.Y)
	assert.True(t, math.IsNaN(org.Fitness))
}

func TestReadTableErrors(t *testing.T) {
	_, err := ReadTable(strings.NewReader("id,parent_id,info\n1,0,[0 0]\n"))
	require.ErrorIs(t, err, ErrMissingColumn)

	_, err = ReadTable(strings.NewReader("id,parent_id,num_orgs,info\n2,1,1,[0 0]\n2,1,1,[1 1]\n"))
	require.ErrorIs(t, err, ErrDuplicateID)

	_, err = ReadTable(strings.NewReader("id,parent_id,num_orgs,info\n2,1,1,[0]\n"))
	require.Error(t, err)

	_, err = ReadTable(strings.NewReader(""))
	require.Error(t, err)
}

func TestReadTableAcceptsFloatIDs(t *testing.T) {
	table := mustTable(t, "id,parent_id,num_orgs,info\n2.0,1.0,3,[0.5 0.5]\n")
	org, ok := table.Get(2)
	require.True(t, ok)
	assert.Equal(t, 1, org.ParentID)
}

func TestParseGenotype(t *testing.T) {
	x, y, err := ParseGenotype("[ 1.25   -3.5 ]")
	require.NoError(t, err)
	assert.Equal(t, 1.25, x)
	assert.Equal(t, -3.5, y)

	x, y, err = ParseGenotype("[0.1 0.2 0.3]")
	require.NoError(t, err)
	assert.Equal(t, 0.1, x)
	assert.Equal(t, 0.2, y)

	_, _, err = ParseGenotype("[ nope 1 ]")
	require.Error(t, err)
}

func TestDominantPicksBestLiveOrganism(t *testing.T) {
	table := mustTable(t, sampleTable)

	_, err := table.Dominant()
	require.Error(t, err, "dominant needs fitness")

	require.NoError(t, table.EvaluateFitness(sumEvaluator{}))
	id, err := table.Dominant()
	require.NoError(t, err)
	// Organism 2 has fitness 2 but is extinct; 4 (fitness 4) beats 3 (fitness 3).
	assert.Equal(t, 4, id)
	assert.Equal(t, []int{3, 4, 5}, table.Alive())
}

func TestDominantTieKeepsFirstRow(t *testing.T) {
	table := mustTable(t, "id,parent_id,num_orgs,info\n7,1,1,[1 1]\n3,1,1,[2 0]\n")
	require.NoError(t, table.EvaluateFitness(sumEvaluator{}))
	id, err := table.Dominant()
	require.NoError(t, err)
	assert.Equal(t, 7, id)
}

func TestDominantWithoutLiveOrganisms(t *testing.T) {
	table := mustTable(t, "id,parent_id,num_orgs,info\n2,1,0,[1 1]\n")
	require.NoError(t, table.EvaluateFitness(sumEvaluator{}))
	_, err := table.Dominant()
	require.ErrorIs(t, err, ErrNoLiveOrganisms)
}

func TestWriteCSVAppendsFitnessColumns(t *testing.T) {
	table := mustTable(t, sampleTable)
	require.NoError(t, table.EvaluateFitness(sumEvaluator{}))

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 6)
	assert.Equal(t, []string{"id", "parent_id", "num_orgs", "tot_orgs", "info", "fitness", "x", "y"}, records[0])
	assert.Equal(t, []string{"4", "2", "1", "1", "[ 1.5 2.5 ]", "4", "1.5", "2.5"}, records[4])
}
