package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/mapql/internal/ir"
)

// marshalScalars converts IRObject to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalScalars(scalars ir.IRObject) (string, error) {
	if scalars == nil {
		scalars = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(scalars)
	if err != nil {
		return "", fmt.Errorf("marshal scalars: %w", err)
	}
	return string(data), nil
}

// marshalID converts an instance id to canonical JSON TEXT.
func marshalID(id ir.IRValue) (string, error) {
	data, err := ir.MarshalCanonical(id)
	if err != nil {
		return "", fmt.Errorf("marshal id: %w", err)
	}
	return string(data), nil
}

// unmarshalScalars parses canonical JSON TEXT to IRObject.
// Numbers are decoded as json.Number to avoid float64 precision loss for
// values > 2^53.
func unmarshalScalars(data string) (ir.IRObject, error) {
	if data == "" || data == "{}" {
		return ir.IRObject{}, nil
	}
	v, err := unmarshalIR(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal scalars: %w", err)
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, fmt.Errorf("unmarshal scalars: expected object, got %T", v)
	}
	return obj, nil
}

// unmarshalID parses canonical JSON TEXT to an id value.
func unmarshalID(data string) (ir.IRValue, error) {
	v, err := unmarshalIR(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal id: %w", err)
	}
	return v, nil
}

func unmarshalIR(data string) (ir.IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return ir.FromAny(raw)
}
