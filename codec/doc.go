// Package codec implements the AMF wire format: the packet envelope and
// the AMF0 and AMF3 value encodings.
//
// # Packet Layout
//
//	u16 version
//	u16 header-count   { UTF name, u8 must-understand, u32 length, value }
//	u16 body-count     { UTF target, UTF response, u32 length, value }
//
// Message version 3 writes every header and body value as the AMF0
// avmplus marker (0x11) followed by an AMF3 value; lower versions write
// plain AMF0. Readers always start in AMF0 and switch on the marker, so
// decoding does not depend on the version field.
//
// # Value Model
//
//	Go (encode)                      AMF0              AMF3            Go (decode)
//	────────────────────────────────────────────────────────────────────────────
//	nil                              null              null            nil
//	Undefined                        undefined         undefined       Undefined
//	bool                             boolean           true/false      bool
//	int kinds                        number            integer/double  float64 / int32
//	float kinds                      number            double          float64
//	string                           string/long       string          string
//	time.Time                        date              date            time.Time (UTC)
//	[]byte                           strict array      ByteArray       []any / []byte
//	XMLDocument                      xml-document      XMLDocument     XMLDocument
//	slice, array                     strict array      dense array     []any
//	map[string]V, *ECMAArray         ECMA array        assoc array     *ECMAArray
//	*Object                          (typed) object    object          *Object
//
// AMF3 integers outside the signed 29-bit range are written as doubles,
// and AMF0 writes every number as a double. Integers beyond 2^53 in
// magnitude therefore round to the nearest double and do not survive a
// round trip exactly.
// Structs, channels, functions and complex numbers have no representation
// and fail with an unsupported encode error. Shaping application structs
// into *Object values is the job of the transcoder package.
//
// # References
//
// The AMF3 encoder emits string and trait references. Decoders honor
// every reference table of both formats.
//
// # Thread Safety
//
// Codec is stateless and safe for concurrent use. Serializer and
// Deserializer wrap a single stream and are not.
package codec
