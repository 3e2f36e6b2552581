package facts

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// DomainSnapshot is the domain prefix for snapshot content hashes.
// The version suffix leaves room for a future encoding change.
const DomainSnapshot = "nllfacts/snapshot/v1"

// Snapshot is an immutable view of a Store at the moment analysis was requested.
type Snapshot struct {
	store *Store
}

// Freeze takes a snapshot of s. Later appends to s are not visible in the snapshot.
func Freeze(s *Store) *Snapshot {
	return &Snapshot{store: s.Clone()}
}

// Store returns a deep copy of the snapshot's facts.
// Mutating the returned Store does not affect the snapshot.
func (s *Snapshot) Store() *Store {
	return s.store.Clone()
}

// Rows returns the tuples of r as raw atom indices, in insertion order.
func (s *Snapshot) Rows(r Relation) [][]uint64 {
	return s.store.Rows(r)
}

// Len returns the total number of tuples in the snapshot.
func (s *Snapshot) Len() int {
	return s.store.Len()
}

// Counts returns per-relation tuple counts of non-empty relations.
func (s *Snapshot) Counts() map[string]int {
	return s.store.Counts()
}

// Hash computes a content hash of the snapshot.
//
// Format: SHA256(domain + 0x00 + relations), where each relation in schema
// order contributes its name, a 0x00 separator, its row count and every
// atom as a big-endian uint64. Insertion order is part of the identity: two
// stores with the same tuples in a different order hash differently.
func (s *Snapshot) Hash() string {
	h := sha256.New()
	h.Write([]byte(DomainSnapshot))
	h.Write([]byte{0x00})

	var buf [8]byte
	for _, r := range Relations() {
		rows := s.store.Rows(r)
		h.Write([]byte(r.Name()))
		h.Write([]byte{0x00})
		binary.BigEndian.PutUint64(buf[:], uint64(len(rows)))
		h.Write(buf[:])
		for _, row := range rows {
			for _, v := range row {
				binary.BigEndian.PutUint64(buf[:], v)
				h.Write(buf[:])
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
