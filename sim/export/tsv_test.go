package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumour-sim/casim/sim"
)

func TestWriteLattice_HandleGrid(t *testing.T) {
	l := sim.NewLattice(3)
	l.Place(sim.Coord{Row: 0, Col: 0}, 1)
	l.Place(sim.Coord{Row: 1, Col: 2}, 4)

	var buf bytes.Buffer
	require.NoError(t, WriteLattice(&buf, l))

	assert.Equal(t, "1\t-1\t-1\n-1\t-1\t4\n-1\t-1\t-1\n", buf.String())
}

func TestWriteLineage_ParentIDPairsWithoutGermline(t *testing.T) {
	lin := sim.NewLineage()
	m1 := lin.Append(sim.GermlineID, 0)
	lin.Append(m1, 2)
	lin.MarkAdvantageous(m1, 3)

	var buf bytes.Buffer
	require.NoError(t, WriteLineage(&buf, lin))

	want := "parent\tid\tgeneration\tkind\n" +
		"0\t1\t0\tnormal\n" +
		"1\t2\t2\tnormal\n" +
		"1\t3\t3\tadvantageous\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteDeaths(t *testing.T) {
	deaths := []sim.Death{
		{Generation: 2, Site: sim.Coord{Row: 4, Col: 5}, Handle: 7},
		{Generation: 3, Site: sim.Coord{Row: 0, Col: 1}, Handle: 2},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteDeaths(&buf, deaths))
	assert.Equal(t, "generation\trow\tcol\thandle\n2\t4\t5\t7\n3\t0\t1\t2\n", buf.String())
}

func TestWriteVAF_WithAndWithoutObserved(t *testing.T) {
	table := &sim.FrequencyTable{Total: 4, Rows: []sim.FrequencyRow{
		{ID: 1, Parent: 0, Generation: 0, Kind: sim.KindNormal, Count: 4, Frequency: 1},
		{ID: 2, Parent: 1, Generation: 1, Kind: sim.KindNormal, Count: 3, Frequency: 0.75},
	}}
	observed := &sim.ObservedTable{Rows: []sim.ObservedRow{
		{ID: 1, Parent: 0, TrueFrequency: 1, Depth: 10, Reads: 10, VAF: 1},
		{ID: 2, Parent: 1, TrueFrequency: 0.75, Depth: 10, Reads: 8, VAF: 0.8},
	}}

	var truth bytes.Buffer
	require.NoError(t, WriteVAF(&truth, table, nil))
	assert.Equal(t, "id\tparent\tgeneration\tkind\tcount\tfrequency\n1\t0\t0\tnormal\t4\t1\n2\t1\t1\tnormal\t3\t0.75\n", truth.String())

	var full bytes.Buffer
	require.NoError(t, WriteVAF(&full, table, observed))
	lines := strings.Split(strings.TrimSpace(full.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2\t1\t1\tnormal\t3\t0.75\t10\t8\t0.8", lines[2])
}

func TestWriteVAF_MismatchedTables_Error(t *testing.T) {
	table := &sim.FrequencyTable{Rows: []sim.FrequencyRow{{ID: 1}}}
	err := WriteVAF(&bytes.Buffer{}, table, &sim.ObservedTable{})
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteTSV_WriterError_Propagates(t *testing.T) {
	// GIVEN a destination that rejects every write
	lin := sim.NewLineage()
	lin.Append(sim.GermlineID, 0)

	// WHEN each TSV file is written to it
	// THEN the write error is returned rather than dropped
	assert.Error(t, WriteLattice(failingWriter{}, sim.NewLattice(2)))
	assert.Error(t, WriteLineage(failingWriter{}, lin))
	assert.Error(t, WriteDeaths(failingWriter{}, nil))
	assert.Error(t, WriteVAF(failingWriter{}, &sim.FrequencyTable{}, nil))
}

func TestWriteVAF_ReadableAsTabSeparated(t *testing.T) {
	// GIVEN a finished run
	_, report := finishedRun(t)

	// WHEN its whole-tumour table is written
	var buf bytes.Buffer
	require.NoError(t, WriteVAF(&buf, report.WholeTumour, report.WholeObserved))

	// THEN a tab-separated reader sees a header plus one row per mutation
	r := csv.NewReader(&buf)
	r.Comma = '\t'
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(report.WholeTumour.Rows)+1)
	assert.Len(t, records[0], 9)
	for i, row := range report.WholeTumour.Rows {
		assert.Equal(t, formatID(row.ID), records[i+1][0])
	}
}
