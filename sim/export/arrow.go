package export

import (
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/tumour-sim/casim/sim"
)

// frequencySchema is shared by every record batch in the Arrow file: one
// batch per table, the whole tumour first and then each sample.
var frequencySchema = arrow.NewSchema([]arrow.Field{
	{Name: "table", Type: arrow.BinaryTypes.String},
	{Name: "id", Type: arrow.PrimitiveTypes.Int64},
	{Name: "parent", Type: arrow.PrimitiveTypes.Int64},
	{Name: "generation", Type: arrow.PrimitiveTypes.Int32},
	{Name: "kind", Type: arrow.BinaryTypes.String},
	{Name: "count", Type: arrow.PrimitiveTypes.Int64},
	{Name: "frequency", Type: arrow.PrimitiveTypes.Float64},
	{Name: "depth", Type: arrow.PrimitiveTypes.Int64},
	{Name: "reads", Type: arrow.PrimitiveTypes.Int64},
	{Name: "vaf", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// VAFRow is one row of an exported frequency table.
type VAFRow struct {
	Table      string
	ID         sim.MutationID
	Parent     sim.MutationID
	Generation int
	Kind       string
	Count      int
	Frequency  float64
	Depth      int
	Reads      int
	VAF        float64
}

// WriteArrow writes the report's tables to w in the Arrow IPC file format.
func WriteArrow(w io.Writer, report *sim.Report) error {
	mem := memory.NewGoAllocator()
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(frequencySchema), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("creating arrow writer: %w", err)
	}

	batches := reportTables(report)
	for _, b := range batches {
		rec, err := buildRecord(mem, b.name, b.table, b.observed)
		if err != nil {
			fw.Close()
			return err
		}
		err = fw.Write(rec)
		rec.Release()
		if err != nil {
			fw.Close()
			return fmt.Errorf("writing %s batch: %w", b.name, err)
		}
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("closing arrow writer: %w", err)
	}
	return nil
}

func buildRecord(mem memory.Allocator, name string, table *sim.FrequencyTable, observed *sim.ObservedTable) (arrow.Record, error) {
	if observed == nil || len(observed.Rows) != len(table.Rows) {
		return nil, fmt.Errorf("table %s: observed rows do not match true rows", name)
	}
	b := array.NewRecordBuilder(mem, frequencySchema)
	defer b.Release()

	for i, r := range table.Rows {
		o := observed.Rows[i]
		b.Field(0).(*array.StringBuilder).Append(name)
		b.Field(1).(*array.Int64Builder).Append(int64(r.ID))
		b.Field(2).(*array.Int64Builder).Append(int64(r.Parent))
		b.Field(3).(*array.Int32Builder).Append(int32(r.Generation))
		b.Field(4).(*array.StringBuilder).Append(r.Kind.String())
		b.Field(5).(*array.Int64Builder).Append(int64(r.Count))
		b.Field(6).(*array.Float64Builder).Append(r.Frequency)
		b.Field(7).(*array.Int64Builder).Append(int64(o.Depth))
		b.Field(8).(*array.Int64Builder).Append(int64(o.Reads))
		b.Field(9).(*array.Float64Builder).Append(o.VAF)
	}
	return b.NewRecord(), nil
}

// ReadArrow reads every row of a file produced by WriteArrow, batch by batch.
func ReadArrow(r ipc.ReadAtSeeker) ([]VAFRow, error) {
	fr, err := ipc.NewFileReader(r, ipc.WithAllocator(memory.NewGoAllocator()))
	if err != nil {
		return nil, fmt.Errorf("opening arrow file: %w", err)
	}
	defer fr.Close()

	if fr.Schema().NumFields() != frequencySchema.NumFields() {
		return nil, fmt.Errorf("unexpected arrow schema: %s", fr.Schema())
	}

	var rows []VAFRow
	for i := 0; i < fr.NumRecords(); i++ {
		rec, err := fr.Record(i)
		if err != nil {
			return nil, fmt.Errorf("reading batch %d: %w", i, err)
		}
		table := rec.Column(0).(*array.String)
		ids := rec.Column(1).(*array.Int64)
		parents := rec.Column(2).(*array.Int64)
		gens := rec.Column(3).(*array.Int32)
		kinds := rec.Column(4).(*array.String)
		counts := rec.Column(5).(*array.Int64)
		freqs := rec.Column(6).(*array.Float64)
		depths := rec.Column(7).(*array.Int64)
		reads := rec.Column(8).(*array.Int64)
		vafs := rec.Column(9).(*array.Float64)
		for j := 0; j < int(rec.NumRows()); j++ {
			rows = append(rows, VAFRow{
				Table:      table.Value(j),
				ID:         sim.MutationID(ids.Value(j)),
				Parent:     sim.MutationID(parents.Value(j)),
				Generation: int(gens.Value(j)),
				Kind:       kinds.Value(j),
				Count:      int(counts.Value(j)),
				Frequency:  freqs.Value(j),
				Depth:      int(depths.Value(j)),
				Reads:      int(reads.Value(j)),
				VAF:        vafs.Value(j),
			})
		}
	}
	return rows, nil
}
