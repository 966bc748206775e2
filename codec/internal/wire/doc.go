// Package wire provides the byte-level primitives shared by the AMF0 and
// AMF3 codecs.
//
// # Contents
//
//   - writer.go: big-endian integers, IEEE-754 doubles, U29 and UTF-8 strings
//   - reader.go: the bounds-checked counterparts
//
// This package is internal to the codec.
package wire
