package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed ids.
// Version suffix enables future algorithm migration.
const (
	DomainBatch = "qstream/batch/v1"
	DomainClass = "qstream/class/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// entryValue builds the hashed form of a change entry.
func entryValue(e ChangeEntry) Map {
	m := Map{
		"op":  String(e.Op),
		"key": String(e.Key),
	}
	if e.Type != "" {
		m["type"] = String(e.Type)
	}
	if e.Fields != nil {
		m["fields"] = e.Fields
	}
	return m
}

// BatchID computes the content-addressed id of a change batch.
// The id is stable across runs given the same repository, seq, and entries.
func BatchID(repo string, seq int64, entries []ChangeEntry) (string, error) {
	list := make(List, len(entries))
	for i, e := range entries {
		list[i] = entryValue(e)
	}
	obj := Map{
		"repo":    String(repo),
		"seq":     Int(seq),
		"entries": list,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("BatchID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBatch, canonical), nil
}

// ClassHash computes a fingerprint of a class declaration. Source location
// is excluded so moving a declaration does not change its hash.
func ClassHash(spec ClassSpec) (string, error) {
	fields := make(List, len(spec.Fields))
	for i, f := range spec.Fields {
		fm := Map{
			"name": String(f.Name),
			"kind": String(f.Kind),
		}
		if f.Default != nil {
			fm["default"] = f.Default
		}
		fields[i] = fm
	}
	obj := Map{
		"name":   String(spec.Name),
		"base":   String(spec.Base),
		"fields": fields,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ClassHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainClass, canonical), nil
}

// MustBatchID is like BatchID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustBatchID(repo string, seq int64, entries []ChangeEntry) string {
	id, err := BatchID(repo, seq, entries)
	if err != nil {
		panic(err)
	}
	return id
}
