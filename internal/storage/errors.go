package storage

import "errors"

// ErrIntegrity is returned by RecordStore.Load when the decrypted plaintext
// does not match the stored integrity digest. It signals possible tampering
// or corruption of the digest artifact, or a store/digest pair written by
// different saves.
var ErrIntegrity = errors.New("integrity digest mismatch")
