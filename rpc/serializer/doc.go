// Package serializer turns rpc messages into bytes and back.
//
// Implementations:
//
//   - Binary: a flag byte marks which fields follow, each field is uvarint length
//     prefixed. Smallest and fastest, the default.
//   - JSON: readable on the wire, handy with curl against the http transport.
//   - GOB: Go's gob format. Works, but is the largest of the three.
//   - Snappy: wraps any of the above and compresses the result. Pays off for
//     large document values.
//
// FromName resolves a serializer from its config name ("binary", "json", "gob",
// optionally with a "+snappy" suffix).
//
// All serializers are stateless and safe for concurrent use.
package serializer
