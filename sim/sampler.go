package sim

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
)

// FrequencyRow is one mutation's occurrence within a set of cells.
type FrequencyRow struct {
	ID         MutationID   `json:"id"`
	Parent     MutationID   `json:"parent"`
	Generation int          `json:"generation"`
	Kind       MutationKind `json:"kind"`
	Count      int          `json:"count"`
	Frequency  float64      `json:"frequency"`
}

// FrequencyTable maps mutations to the fraction of considered cells carrying
// them. Rows are sorted by id; Total is the number of cells considered.
type FrequencyTable struct {
	Total int            `json:"total"`
	Rows  []FrequencyRow `json:"rows"`
}

// Lookup returns the row for id, if present.
func (ft *FrequencyTable) Lookup(id MutationID) (FrequencyRow, bool) {
	i := sort.Search(len(ft.Rows), func(i int) bool { return ft.Rows[i].ID >= id })
	if i < len(ft.Rows) && ft.Rows[i].ID == id {
		return ft.Rows[i], true
	}
	return FrequencyRow{}, false
}

// Frequencies returns the frequency column in row order.
func (ft *FrequencyTable) Frequencies() []float64 {
	out := make([]float64, len(ft.Rows))
	for i, r := range ft.Rows {
		out[i] = r.Frequency
	}
	return out
}

// SampleSize returns round(fraction × occupied) for a lattice, rejecting
// fractions outside [0, 1].
func SampleSize(l *Lattice, fraction float64) (int, error) {
	if math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
		return 0, fmt.Errorf("%w: sampling fraction must be in [0, 1], got %f", ErrInvalidSample, fraction)
	}
	return int(math.Round(fraction * float64(l.Occupied()))), nil
}

// Sample selects the round(fraction × occupied) occupied sites nearest to
// position by squared Euclidean distance. Ties are broken by (row, col), so
// the result is deterministic; it is returned nearest first.
func Sample(l *Lattice, position Coord, fraction float64) ([]Coord, error) {
	if !l.Contains(position) {
		return nil, fmt.Errorf("%w: position %v outside the %dx%d lattice", ErrInvalidSample, position, l.Size(), l.Size())
	}
	n, err := SampleSize(l, fraction)
	if err != nil {
		return nil, err
	}

	coords := l.OccupiedCoords() // row-major, so a stable sort keeps (row, col) tie order
	sort.SliceStable(coords, func(i, j int) bool {
		return distance2(coords[i], position) < distance2(coords[j], position)
	})
	return coords[:n], nil
}

// RandomPosition picks an occupied site uniformly. It returns false on an
// empty lattice.
func RandomPosition(l *Lattice, rng *rand.Rand) (Coord, bool) {
	occupied := l.OccupiedCoords()
	if len(occupied) == 0 {
		return Coord{}, false
	}
	return occupied[rng.IntN(len(occupied))], true
}

// Aggregate counts every mutation on the ancestry chains of the given sites.
// A mutation's frequency is the fraction of those sites descending from the
// cell that first acquired it. The germline root is never reported.
func Aggregate(coords []Coord, l *Lattice, lin *Lineage) *FrequencyTable {
	// Cells sharing a handle share a chain, so walk each distinct handle once.
	perHandle := make(map[MutationID]int)
	for _, c := range coords {
		h := l.At(c)
		if h == Empty {
			continue
		}
		perHandle[h]++
	}
	handles := make([]MutationID, 0, len(perHandle))
	for h := range perHandle {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })

	counts := make(map[MutationID]int)
	total := 0
	for _, h := range handles {
		n := perHandle[h]
		total += n
		for _, id := range lin.Ancestry(h) {
			counts[id] += n
		}
	}

	table := &FrequencyTable{Total: total, Rows: make([]FrequencyRow, 0, len(counts))}
	for id, n := range counts {
		rec := lin.Record(id)
		table.Rows = append(table.Rows, FrequencyRow{
			ID:         id,
			Parent:     rec.Parent,
			Generation: rec.Generation,
			Kind:       rec.Kind,
			Count:      n,
			Frequency:  float64(n) / float64(total),
		})
	}
	sort.Slice(table.Rows, func(i, j int) bool { return table.Rows[i].ID < table.Rows[j].ID })
	return table
}

// WholeTumour aggregates over every occupied site.
func WholeTumour(l *Lattice, lin *Lineage) *FrequencyTable {
	return Aggregate(l.OccupiedCoords(), l, lin)
}

func distance2(a, b Coord) int {
	dr := a.Row - b.Row
	dc := a.Col - b.Col
	return dr*dr + dc*dc
}
