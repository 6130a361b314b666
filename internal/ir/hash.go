package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainInstance is the domain prefix for instance identity hashes.
// The version suffix enables future algorithm migration.
const DomainInstance = "mapql/instance/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// InstanceKey returns the identity of an instance of typeName with the given id.
// Two instances with the same key are the same entity, regardless of which
// Go pointer carries them.
func InstanceKey(typeName string, id IRValue) string {
	idBytes, err := MarshalCanonical(id)
	if err != nil {
		// id values are scalars by construction; fall back to the Go rendering
		idBytes = []byte(err.Error())
	}
	data := make([]byte, 0, len(typeName)+1+len(idBytes))
	data = append(data, typeName...)
	data = append(data, 0x00)
	data = append(data, idBytes...)
	return hashWithDomain(DomainInstance, data)
}
