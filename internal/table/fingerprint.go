package table

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
)

// Domain prefix for content-addressed table identity. The version
// suffix allows a future digest algorithm migration.
const domainDataset = "spaxelpipe/dataset/v1"

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ColumnDigest hashes one column's values. Floats are hashed by their
// IEEE 754 bit patterns with every NaN collapsed to the canonical quiet
// NaN, so a table rebuilt from the same inputs digests identically no
// matter which operation produced a given missing value.
func ColumnDigest(c *Column) string {
	h := sha256.New()
	var scratch [8]byte
	switch c.Kind {
	case Float:
		for _, v := range c.Floats {
			bits := math.Float64bits(v)
			if v != v {
				bits = math.Float64bits(math.NaN())
			}
			binary.LittleEndian.PutUint64(scratch[:], bits)
			h.Write(scratch[:])
		}
	case Int:
		for _, v := range c.Ints {
			binary.LittleEndian.PutUint64(scratch[:], uint64(v))
			h.Write(scratch[:])
		}
	case String:
		for _, v := range c.Strings {
			binary.LittleEndian.PutUint64(scratch[:], uint64(len(v)))
			h.Write(scratch[:])
			h.Write([]byte(v))
		}
	case Bool:
		for _, v := range c.Bools {
			if v {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content-addressed identity of a table:
// canonical JSON of the schema (sorted column names, kinds, row count)
// and the per-column digests, hashed with domain separation. Column
// insertion order does not affect the fingerprint.
func (t *Table) Fingerprint() (string, error) {
	cols := make([]any, 0, len(t.cols))
	for _, name := range t.SortedColumnNames() {
		c := t.Column(name)
		cols = append(cols, map[string]any{
			"name":   c.Name,
			"kind":   c.Kind.String(),
			"digest": ColumnDigest(c),
		})
	}
	obj := map[string]any{
		"rows":    int64(t.nrows),
		"columns": cols,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(domainDataset, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the table is known to be well formed.
func (t *Table) MustFingerprint() string {
	fp, err := t.Fingerprint()
	if err != nil {
		panic(err)
	}
	return fp
}
