package migration

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zeebo/xxh3"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/tordrt/daogen/internal/schema"
)

var (
	// ErrWrongFormat is returned by a Decoder when data is not in its format.
	ErrWrongFormat = errors.New("wrong state format")
	// ErrStateDecode is returned when no decoder accepts the state file.
	ErrStateDecode = errors.New("migration state unreadable")
)

// State is the persisted record of the last generated migration.
type State struct {
	// Latest is the version of the last generated migration script.
	Latest int `json:"latest" bson:"latest"`
	// Checksum is the fingerprint of State when it was written.
	Checksum string `json:"checksum,omitempty" bson:"checksum,omitempty"`
	// State is the schema snapshot the migration brought the database to.
	State schema.Schema `json:"state" bson:"state"`
}

// Decoder reads one encoding of State.
type Decoder interface {
	Name() string
	Decode(data []byte) (State, error)
}

// DefaultDecoders tries the current JSON encoding first and the legacy
// binary encoding second.
var DefaultDecoders = []Decoder{JSONDecoder{}, BSONDecoder{}}

// DecodeState decodes data with the first decoder that accepts it.
func DecodeState(data []byte, decoders []Decoder) (State, error) {
	var errs []error
	for _, d := range decoders {
		st, err := d.Decode(data)
		if err == nil {
			return st, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
	}
	return State{}, fmt.Errorf("%w: %w", ErrStateDecode, errors.Join(errs...))
}

// JSONDecoder reads the structured text encoding written by EncodeState.
type JSONDecoder struct{}

func (JSONDecoder) Name() string { return "json" }

func (JSONDecoder) Decode(data []byte) (State, error) {
	if !json.Valid(data) {
		return State{}, ErrWrongFormat
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrWrongFormat, err)
	}
	return st, nil
}

// BSONDecoder reads the compact binary encoding used by older releases.
type BSONDecoder struct{}

func (BSONDecoder) Name() string { return "bson" }

func (BSONDecoder) Decode(data []byte) (State, error) {
	var st State
	if err := bson.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrWrongFormat, err)
	}
	return st, nil
}

// EncodeState encodes st as indented JSON.
func EncodeState(st State) ([]byte, error) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal migration state: %w", err)
	}
	return data, nil
}

// Fingerprint returns a stable hash of a schema snapshot.
func Fingerprint(s schema.Schema) string {
	// encoding/json sorts map keys, so equal schemas hash equally.
	if s.Tables == nil {
		s.Tables = map[string]schema.Table{}
	}
	if s.Types == nil {
		s.Types = schema.Registry{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%016x", xxh3.Hash(data))
}
