package checkpointer

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/dgryski/go-spooky"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"

	"github.com/samuelfneumann/gotrain/minibatch"
)

// FormatVersion is the version of the checkpoint file format written
// by this package
const FormatVersion = 1

// magic starts every checkpoint file
var magic = [4]byte{'G', 'T', 'C', 'K'}

// headerSize is the size of the magic, format version, and checksum
const headerSize = 4 + 4 + 8

// Bundle is everything needed to resume training: the trainer state
// and the data source position, recorded at the same point in training.
type Bundle struct {
	RunID       string
	NumWorkers  int
	SamplesSeen int

	// Trainer is the opaque serialized trainer state
	Trainer []byte

	// Source is the data source position token
	Source minibatch.State
}

// NewRunID returns a new random identifier for a training run
func NewRunID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "unable to create run id")
	}
	return id.String(), nil
}

// Validate returns an error if the Bundle is not internally consistent
func (b Bundle) Validate() error {
	if b.SamplesSeen < 0 {
		return errors.Errorf("negative samples seen %d", b.SamplesSeen)
	}
	if b.NumWorkers <= 0 {
		return errors.Errorf("invalid number of workers %d", b.NumWorkers)
	}
	if len(b.Trainer) == 0 {
		return errors.New("empty trainer state")
	}
	return nil
}

// encode serializes a Bundle into the checkpoint file format: a header
// of magic, format version, and the checksum of the payload, followed
// by the snappy compressed gob encoding of the Bundle.
func encode(b Bundle) ([]byte, error) {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(b); err != nil {
		return nil, errors.Wrap(err, "unable to encode bundle")
	}
	compressed := snappy.Encode(nil, payload.Bytes())

	out := make([]byte, headerSize, headerSize+len(compressed))
	copy(out, magic[:])
	binary.LittleEndian.PutUint32(out[4:], FormatVersion)
	binary.LittleEndian.PutUint64(out[8:], spooky.Hash64(compressed))

	return append(out, compressed...), nil
}

// decode parses the checkpoint file format
func decode(data []byte) (Bundle, error) {
	if len(data) < headerSize || !bytes.Equal(data[:4], magic[:]) {
		return Bundle{}, errors.Wrap(ErrCorrupt, "missing header")
	}

	version := binary.LittleEndian.Uint32(data[4:])
	if version != FormatVersion {
		return Bundle{}, errors.Wrapf(ErrIncompatible,
			"format version %d, want %d", version, FormatVersion)
	}

	compressed := data[headerSize:]
	if sum := binary.LittleEndian.Uint64(data[8:]); sum !=
		spooky.Hash64(compressed) {
		return Bundle{}, errors.Wrap(ErrCorrupt, "checksum mismatch")
	}

	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return Bundle{}, errors.Wrapf(ErrCorrupt, "decompress: %v", err)
	}

	var b Bundle
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&b); err != nil {
		return Bundle{}, errors.Wrapf(ErrCorrupt, "decode: %v", err)
	}
	if err := b.Validate(); err != nil {
		return Bundle{}, errors.Wrapf(ErrCorrupt, "%v", err)
	}
	return b, nil
}
