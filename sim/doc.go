// Package sim provides the core growth-and-lineage engine for casim, an
// on-lattice agent-based model of somatic tumour evolution.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - lattice.go: the N×N occupancy grid and Moore neighbourhood order
//   - lineage.go: the append-only mutation arena and ancestry walks
//   - simulator.go: the generation loop (division, advantageous event, death)
//
// Then sampler.go and noise.go turn a finished lattice into frequency tables,
// and snapshot.go captures and restores a run mid-way.
//
// # Architecture
//
// The sim package owns all mutable run state; sub-packages consume it:
//   - sim/trace/: per-generation growth records and summaries
//   - sim/dump/: snapshot file format (gzip body behind a checksummed header)
//   - sim/export/: TSV, Arrow IPC and SQLite outputs of frequency tables
//
// # Reproducibility
//
// Every random draw comes from a PartitionedRNG keyed by the run seed. The
// growth stream is consumed in one fixed order per generation: row-major
// division candidates (division draw, neighbour choice, mutation draw), the
// advantageous event, then row-major death draws. Changing that order changes
// every downstream result.
package sim
