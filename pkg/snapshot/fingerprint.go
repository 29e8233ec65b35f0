package snapshot

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/dd0wney/cluso-louvain/pkg/algorithms"
	"github.com/dd0wney/cluso-louvain/pkg/pools"
)

// fingerprintChunk is how many bytes of edge records are hashed at a time.
const fingerprintChunk = 4096

// edgeRecordSize is (min, max, weight bits) as three uint64s.
const edgeRecordSize = 24

// Fingerprint hashes the graph content with BLAKE2b-256.
//
// The hash covers the node count and every edge as (min, max, weight bits)
// in input order, so the same edge list always yields the same fingerprint.
func Fingerprint(g *algorithms.WeightedGraph) string {
	h, _ := blake2b.New256(nil)

	b := pools.NewBufferBuilder(fingerprintChunk)
	defer b.Release()

	b.WriteUint64BE(uint64(g.NodeCount()))
	for _, e := range g.Edges() {
		lo, hi := e.From, e.To
		if lo > hi {
			lo, hi = hi, lo
		}
		if b.Len()+edgeRecordSize > fingerprintChunk {
			h.Write(b.Bytes())
			b.Reset()
		}
		b.WriteUint64BE(uint64(lo))
		b.WriteUint64BE(uint64(hi))
		b.WriteFloat64BE(e.Weight)
	}
	h.Write(b.Bytes())

	return hex.EncodeToString(h.Sum(nil))
}
