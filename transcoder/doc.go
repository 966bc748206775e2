// Package transcoder maps declared Go types to AMF typed objects and back.
//
// This package sits between application types and the AMF codec. Encoding
// derives a shape for each declared type and fills a generic typed object
// from the live value; decoding matches a typed object's class name to a
// declared type and copies members into a fresh instance.
//
//	┌──────────────────────────────────────────────────────────────┐
//	│ Go value ←→ [Synthesizer / Decoder] ←→ codec.Object ←→ bytes │
//	└──────────────────────────────────────────────────────────────┘
//
// # Declaring Types
//
// Types are declared in a Catalog. A field takes part only when it has an
// amf tag:
//
//	type Point struct {
//	    X     int    `amf:"x"`   // exposed as "x"
//	    Y     int    `amf:""`    // exposed as "Y"
//	    Label string              // not transcoded
//	    Cache []int  `amf:"-"`   // not transcoded
//	}
//
//	catalog := transcoder.NewCatalog()
//	transcoder.Declare[Point](catalog, transcoder.WithName("pt"))
//
// Without WithName the exposed name is the result of an AMFClassName method
// when the type has one, else the import path and type name.
//
// # Key Types
//
//	Catalog        - Declared types and their member tables
//	ShapeRegistry  - Exposed name → Shape, created at most once per name
//	Synthesizer    - Go value → codec value
//	Encoder        - Go value → AMF packet
//	Decoder        - AMF packet → Go value
//
// # Encoding Flow
//
//  1. Look up the value's type in the Catalog; undeclared values pass through
//  2. Registry hit: reuse the shape. Miss: build it from the member table
//  3. Fill a codec.Object in shape member order, recursing into members
//  4. Wrap it in a one-body onResult message and marshal it
//
// # Registered Shapes Win
//
// Shapes are keyed only by exposed name. When a registered shape disagrees
// with the Go type being encoded, shape members the type lacks are sent as
// null and type members the shape lacks are dropped. The first occurrence
// per Go type is logged at warn level; WithStrictShapes makes it an error.
//
// # Decoding Flow
//
//  1. Unmarshal the packet and take the first body
//  2. Find the first declared type whose exposed name equals the class name
//  3. Copy members by exposed name into a fresh instance, converting numbers,
//     rebuilding nested declared types, slices and maps
//
// No match is not an error: Decode returns nil and Decode[T] returns ok=false.
//
// # Limits
//
// Recursive declared types are rejected when their shape is first built.
// Nesting deeper than DefaultMaxDepth (see WithMaxDepth) is an overflow
// error in both directions.
package transcoder
