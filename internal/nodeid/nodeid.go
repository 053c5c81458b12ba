// Package nodeid encodes and decodes Relay-style global node IDs.
//
// A global ID is the standard base64 encoding of "<Type>:<id>".
package nodeid

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"relay-paging/internal/model"
)

var (
	// ErrMissingID is returned when a parent value carries no identifier.
	ErrMissingID = errors.New("The passed model does not contain an ID.")
	// ErrInvalidModel is returned when no type name can be derived for a parent value.
	ErrInvalidModel = errors.New("The passed model is not valid.")
)

// Encode builds the global ID for a type name and local identifier.
func Encode(typeName string, id any) string {
	return base64.StdEncoding.EncodeToString([]byte(typeName + ":" + formatID(id)))
}

// Decode splits a global ID into its type name and local identifier.
// Malformed input decodes to an empty type name.
func Decode(globalID string) (string, string) {
	raw, err := base64.StdEncoding.DecodeString(globalID)
	if err != nil {
		return "", ""
	}
	typeName, id, found := strings.Cut(string(raw), ":")
	if !found {
		return "", string(raw)
	}
	return typeName, id
}

// FromGlobalID decodes globalID and checks that it belongs to modelName.
// An empty globalID is not an error: ok is false and err is nil.
func FromGlobalID(modelName, globalID string) (id string, ok bool, err error) {
	if globalID == "" {
		return "", false, nil
	}
	typeName, id := Decode(globalID)
	if typeName == "" {
		return "", false, fmt.Errorf("Identifier %s is not valid.", globalID)
	}
	if typeName != modelName {
		return "", false, fmt.Errorf("Identifier %s is a '%s' but we were expecting a '%s'", globalID, typeName, modelName)
	}
	return id, true, nil
}

// IDWrapper returns a function producing the global ID of a parent value.
// When modelName is empty the parent must be a *model.Instance and its
// model name is used.
func IDWrapper(modelName string) func(parent any) (string, error) {
	return func(parent any) (string, error) {
		id, ok := model.IDOf(parent)
		if !ok {
			return "", ErrMissingID
		}
		if modelName != "" {
			return Encode(modelName, id), nil
		}
		inst, isInstance := parent.(*model.Instance)
		if !isInstance || inst.Model() == nil || inst.Model().Name == "" {
			return "", ErrInvalidModel
		}
		return Encode(inst.Model().Name, id), nil
	}
}

func formatID(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
