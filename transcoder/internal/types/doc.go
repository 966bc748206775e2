// Package types defines the shape descriptors shared by the transcoder.
//
// A Shape is pure data: an exposed type name and an ordered member list.
// It stands in for a type definition synthesized at runtime; the codec
// serializes values built against it as generic typed objects.
//
// # Key Types
//
//   - Shape: exposed name plus ordered members
//   - Member: exposed member name and its value type (primitive kind,
//     nested shape, or a list/map of either)
//   - Kind: value type discriminator
//
// This package is internal to the transcoder.
package types
