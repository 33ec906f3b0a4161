package sim

import "fmt"

// Empty marks an unoccupied lattice site.
const Empty MutationID = -1

// Coord addresses one lattice site.
type Coord struct {
	Row int
	Col int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// mooreOffsets is the fixed neighbour enumeration order. Changing it changes
// which neighbour a given draw selects and therefore breaks replay.
var mooreOffsets = [8]Coord{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Lattice is the dense N×N occupancy grid. Each site holds the mutation
// handle of its occupant, or Empty.
type Lattice struct {
	size     int
	cells    []MutationID
	occupied int
}

// NewLattice returns an empty size×size lattice.
func NewLattice(size int) *Lattice {
	cells := make([]MutationID, size*size)
	for i := range cells {
		cells[i] = Empty
	}
	return &Lattice{size: size, cells: cells}
}

// Size returns the side length N.
func (l *Lattice) Size() int { return l.size }

// Occupied returns the number of occupied sites.
func (l *Lattice) Occupied() int { return l.occupied }

// Contains reports whether c lies on the grid.
func (l *Lattice) Contains(c Coord) bool {
	return inGrid(c.Row, c.Col, l.size)
}

// At returns the handle stored at c, or Empty.
func (l *Lattice) At(c Coord) MutationID {
	return l.cells[l.index(c)]
}

// IsEmpty reports whether c holds no cell.
func (l *Lattice) IsEmpty(c Coord) bool {
	return l.At(c) == Empty
}

// Place occupies an empty site. Placing onto an occupied site panics: the
// growth engine only ever places into neighbours it has just checked.
func (l *Lattice) Place(c Coord, id MutationID) {
	i := l.index(c)
	if l.cells[i] != Empty {
		panic(fmt.Sprintf("lattice: site %v already occupied by %d", c, l.cells[i]))
	}
	if id == Empty {
		panic(fmt.Sprintf("lattice: cannot place empty handle at %v", c))
	}
	l.cells[i] = id
	l.occupied++
}

// Set replaces the handle of an occupied site.
func (l *Lattice) Set(c Coord, id MutationID) {
	i := l.index(c)
	if l.cells[i] == Empty {
		panic(fmt.Sprintf("lattice: site %v is empty", c))
	}
	l.cells[i] = id
}

// Vacate empties an occupied site and returns the handle it held.
func (l *Lattice) Vacate(c Coord) MutationID {
	i := l.index(c)
	id := l.cells[i]
	if id == Empty {
		panic(fmt.Sprintf("lattice: site %v is already empty", c))
	}
	l.cells[i] = Empty
	l.occupied--
	return id
}

// OccupiedCoords lists occupied sites in row-major order.
func (l *Lattice) OccupiedCoords() []Coord {
	coords := make([]Coord, 0, l.occupied)
	for i, id := range l.cells {
		if id != Empty {
			coords = append(coords, l.coord(i))
		}
	}
	return coords
}

// EmptyNeighbours appends to dst the empty Moore neighbours of c in
// mooreOffsets order, clipped at the lattice edge.
func (l *Lattice) EmptyNeighbours(dst []Coord, c Coord) []Coord {
	for _, off := range mooreOffsets {
		n := Coord{Row: c.Row + off.Row, Col: c.Col + off.Col}
		if l.Contains(n) && l.IsEmpty(n) {
			dst = append(dst, n)
		}
	}
	return dst
}

// HasEmptyNeighbour reports whether c has at least one empty Moore neighbour.
func (l *Lattice) HasEmptyNeighbour(c Coord) bool {
	for _, off := range mooreOffsets {
		n := Coord{Row: c.Row + off.Row, Col: c.Col + off.Col}
		if l.Contains(n) && l.IsEmpty(n) {
			return true
		}
	}
	return false
}

// Handles returns a copy of the row-major handle grid.
func (l *Lattice) Handles() []MutationID {
	out := make([]MutationID, len(l.cells))
	copy(out, l.cells)
	return out
}

// Clone returns an independent copy.
func (l *Lattice) Clone() *Lattice {
	return &Lattice{size: l.size, cells: l.Handles(), occupied: l.occupied}
}

// latticeFromHandles rebuilds a lattice from a row-major handle grid.
func latticeFromHandles(size int, handles []MutationID) (*Lattice, error) {
	if len(handles) != size*size {
		return nil, fmt.Errorf("lattice has %d sites, want %d", len(handles), size*size)
	}
	l := &Lattice{size: size, cells: make([]MutationID, len(handles))}
	copy(l.cells, handles)
	for _, id := range l.cells {
		if id != Empty {
			l.occupied++
		}
	}
	return l, nil
}

func (l *Lattice) index(c Coord) int {
	if !l.Contains(c) {
		panic(fmt.Sprintf("lattice: %v outside %dx%d grid", c, l.size, l.size))
	}
	return c.Row*l.size + c.Col
}

func (l *Lattice) coord(i int) Coord {
	return Coord{Row: i / l.size, Col: i % l.size}
}

func inGrid(row, col, size int) bool {
	return row >= 0 && row < size && col >= 0 && col < size
}
