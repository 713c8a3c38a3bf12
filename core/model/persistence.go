package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
)

// SaveModel saves a model to a file using gob encoding. The model's exported
// fields must be gob-encodable.
//
// Example:
//
//	forest, err := ensemble.New(cfg)
//	// ... training ...
//	err = model.SaveModel(forest, "forest.gob")
func SaveModel(model interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create model file")
	}
	defer file.Close()

	if err := SaveModelToWriter(model, file); err != nil {
		return err
	}
	return nil
}

// LoadModel loads a model from a file written by SaveModel. The target must
// be a pointer to the matching model type.
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "failed to open model file")
	}
	defer file.Close()

	return LoadModelFromReader(model, file)
}

// SaveModelToWriter writes a gob-encoded model to w.
func SaveModelToWriter(model interface{}, w io.Writer) error {
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(model); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader reads a gob-encoded model from r into model, which
// must be a pointer.
func LoadModelFromReader(model interface{}, r io.Reader) error {
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(model); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
