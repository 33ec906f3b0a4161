package sim

import "fmt"

// MutationID indexes a record in the Lineage arena. Ids are dense and
// increase in append order.
type MutationID int64

// NoParent is the parent of the germline root.
const NoParent MutationID = -1

// GermlineID is the root every chain descends from. It is not a mutation and
// is never reported in frequency tables.
const GermlineID MutationID = 0

// MutationKind tags a record as baseline or advantageous.
type MutationKind uint8

const (
	KindNormal MutationKind = iota
	KindAdvantageous
)

func (k MutationKind) String() string {
	switch k {
	case KindNormal:
		return "normal"
	case KindAdvantageous:
		return "advantageous"
	default:
		return fmt.Sprintf("MutationKind(%d)", uint8(k))
	}
}

// MutationRecord is one acquisition event.
type MutationRecord struct {
	ID         MutationID   `json:"id"`
	Parent     MutationID   `json:"parent"`
	Generation int          `json:"generation"`
	Kind       MutationKind `json:"kind"`
}

// Lineage is the append-only arena of mutation records. Parent links are
// indices into the same arena, so the structure is a forest by construction.
type Lineage struct {
	records []MutationRecord
}

// NewLineage returns a lineage holding only the germline root.
func NewLineage() *Lineage {
	return &Lineage{records: []MutationRecord{{ID: GermlineID, Parent: NoParent, Generation: 0, Kind: KindNormal}}}
}

// Len returns the number of records, germline included.
func (lin *Lineage) Len() int { return len(lin.records) }

// Record returns the record with the given id.
func (lin *Lineage) Record(id MutationID) MutationRecord {
	return lin.records[id]
}

// Records returns a copy of all records in id order.
func (lin *Lineage) Records() []MutationRecord {
	out := make([]MutationRecord, len(lin.records))
	copy(out, lin.records)
	return out
}

// Kind returns the kind of the record with the given id.
func (lin *Lineage) Kind(id MutationID) MutationKind {
	return lin.records[id].Kind
}

// Append adds a record chained from parent and returns its id. The new record
// inherits the parent's kind.
func (lin *Lineage) Append(parent MutationID, generation int) MutationID {
	return lin.appendRecord(parent, generation, lin.records[parent].Kind)
}

// AppendChain adds n records each chained from the previous one, starting at
// parent, and returns the tip. With n == 0 it returns parent unchanged.
func (lin *Lineage) AppendChain(parent MutationID, n, generation int) MutationID {
	tip := parent
	for i := 0; i < n; i++ {
		tip = lin.Append(tip, generation)
	}
	return tip
}

// MarkAdvantageous appends an advantageous record chained from parent and
// returns its id. Everything later chained from it is advantageous too.
func (lin *Lineage) MarkAdvantageous(parent MutationID, generation int) MutationID {
	return lin.appendRecord(parent, generation, KindAdvantageous)
}

// Ancestry returns the chain from id back to, but excluding, the germline
// root: id first.
func (lin *Lineage) Ancestry(id MutationID) []MutationID {
	var chain []MutationID
	for cur := id; cur != GermlineID && cur != NoParent; cur = lin.records[cur].Parent {
		chain = append(chain, cur)
	}
	return chain
}

// Depth returns the number of mutations carried by a cell whose handle is id.
func (lin *Lineage) Depth(id MutationID) int {
	depth := 0
	for cur := id; cur != GermlineID && cur != NoParent; cur = lin.records[cur].Parent {
		depth++
	}
	return depth
}

// DescendsFrom reports whether ancestor lies on id's chain (id included).
func (lin *Lineage) DescendsFrom(id, ancestor MutationID) bool {
	for cur := id; cur != NoParent; cur = lin.records[cur].Parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// Clone returns an independent copy.
func (lin *Lineage) Clone() *Lineage {
	return &Lineage{records: lin.Records()}
}

func (lin *Lineage) appendRecord(parent MutationID, generation int, kind MutationKind) MutationID {
	id := MutationID(len(lin.records))
	lin.records = append(lin.records, MutationRecord{ID: id, Parent: parent, Generation: generation, Kind: kind})
	return id
}

// lineageFromRecords rebuilds an arena, checking the id and parent invariants.
func lineageFromRecords(records []MutationRecord) (*Lineage, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("lineage is empty; germline root missing")
	}
	if records[0].Parent != NoParent {
		return nil, fmt.Errorf("record 0 must be the germline root, has parent %d", records[0].Parent)
	}
	for i, r := range records {
		if r.ID != MutationID(i) {
			return nil, fmt.Errorf("record at index %d has id %d", i, r.ID)
		}
		if i > 0 && (r.Parent < 0 || r.Parent >= r.ID) {
			return nil, fmt.Errorf("record %d has parent %d; parents must precede children", r.ID, r.Parent)
		}
	}
	out := make([]MutationRecord, len(records))
	copy(out, records)
	return &Lineage{records: out}, nil
}
