package transcoder

import (
	"go.uber.org/zap"

	"github.com/wippyai/amf"
	"github.com/wippyai/amf/codec"
)

// Encoder synthesizes shaped values and writes them as single-body AMF
// packets.
type Encoder struct {
	synth *Synthesizer
	codec amf.Codec
	log   *zap.Logger
}

// NewEncoder returns an encoder configured by opts.
func NewEncoder(opts ...Option) *Encoder {
	cfg := newConfig(opts)
	return &Encoder{
		synth: newSynthesizer(cfg),
		codec: cfg.codec,
		log:   cfg.logger,
	}
}

// Synthesizer returns the synthesizer the encoder shapes values with.
func (e *Encoder) Synthesizer() *Synthesizer { return e.synth }

// Encode returns a packet of the given version whose only body is an
// onResult reply carrying the synthesized value. Nothing is returned on
// failure.
func (e *Encoder) Encode(v any, version uint16) ([]byte, error) {
	msg, err := e.Message(v, version)
	if err != nil {
		return nil, err
	}
	data, err := e.codec.Marshal(msg)
	if err != nil {
		e.log.Debug("codec rejected value", zap.Error(err))
		return nil, err
	}
	return data, nil
}

// EncodeDefault encodes with DefaultVersion.
func (e *Encoder) EncodeDefault(v any) ([]byte, error) {
	return e.Encode(v, DefaultVersion)
}

// Message builds the packet Encode would write.
func (e *Encoder) Message(v any, version uint16) (*codec.Message, error) {
	value, err := e.synth.Synthesize(v)
	if err != nil {
		return nil, err
	}
	msg := codec.NewMessage(version)
	msg.AddBody(codec.NewBody(codec.OnResult, "", value))
	return msg, nil
}
