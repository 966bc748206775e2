package transcoder

import (
	"os"

	"github.com/wippyai/amf/errors"
)

// FileExt is appended to every path given to the file helpers.
const FileExt = ".amf"

// EncodeToFile encodes v and writes it to path + ".amf".
func (e *Encoder) EncodeToFile(v any, path string, version uint16) error {
	data, err := e.Encode(v, version)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path+FileExt, data, 0o644); err != nil {
		return errors.Wrap(errors.PhaseIO, errors.KindInvalidInput, err, "write "+path+FileExt)
	}
	return nil
}

// DecodeFile reads path + ".amf" and decodes it.
func (d *Decoder) DecodeFile(path string) (any, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return d.Decode(data)
}

// DecodeFromFile reads path + ".amf" and decodes it as T.
func DecodeFromFile[T any](d *Decoder, path string) (T, bool, error) {
	data, err := readFile(path)
	if err != nil {
		var zero T
		return zero, false, err
	}
	return Decode[T](d, data)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path + FileExt)
	if err != nil {
		kind := errors.KindInvalidInput
		if os.IsNotExist(err) {
			kind = errors.KindNotFound
		}
		return nil, errors.Wrap(errors.PhaseIO, kind, err, "read "+path+FileExt)
	}
	return data, nil
}
