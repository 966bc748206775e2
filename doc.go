// Package amf provides a declarative AMF object-graph transcoder for Go.
//
// Applications declare which of their types travel over AMF and under which
// names. The transcoder derives a named shape for each declared type the
// first time an instance is encoded, fills a generic typed object from the
// live value, and hands it to the AMF codec. Decoding matches the decoded
// class name back to a declared type and copies members into a fresh
// instance.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	amf/                 Root package with the Codec interface
//	├── codec/           AMF packet envelope and AMF0/AMF3 value codec
//	├── transcoder/      Catalog, shape registry, synthesizer, encoder, decoder
//	├── errors/          Structured error types for debugging
//	└── cmd/amf/         Command line tool for .amf files
//
// # Quick Start
//
// Declare a type and round-trip an instance:
//
//	type Point struct {
//	    X int `amf:"x"`
//	    Y int `amf:"y"`
//	}
//
//	catalog := transcoder.NewCatalog()
//	if err := transcoder.Declare[Point](catalog, transcoder.WithName("pt")); err != nil {
//	    log.Fatal(err)
//	}
//
//	enc := transcoder.NewEncoder(transcoder.WithCatalog(catalog))
//	data, err := enc.EncodeDefault(Point{X: 1, Y: 2})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	dec := transcoder.NewDecoder(transcoder.WithCatalog(catalog))
//	p, ok, err := transcoder.Decode[Point](dec, data)
//	fmt.Println(p, ok, err) // {1 2} true <nil>
//
// # Annotations
//
// A struct field takes part in transcoding only when it carries an amf tag.
// The tag value is the exposed member name; an empty value keeps the Go
// field name and "-" excludes the field. A type takes part only when it is
// declared in a Catalog.
//
// # Thread Safety
//
// Catalog, ShapeRegistry, Encoder and Decoder are safe for concurrent use.
// A shape is synthesized at most once per exposed name, however many
// goroutines encode the same type at the same time.
package amf
