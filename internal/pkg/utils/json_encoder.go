package utils

import (
	"bytes"
	"encoding/json"
	"errors"
)

// JsonEncode marshals payload for the wire. Strings are sent as is so an
// already encoded message is not quoted a second time.
func JsonEncode(payload any) ([]byte, error) {
	if raw, ok := payload.(string); ok {
		return []byte(raw), nil
	}
	return json.Marshal(payload)
}

// JsonDecodeByteStream decodes exactly one JSON document from data.
func JsonDecodeByteStream[T any](data []byte) (*T, error) {
	var value T
	decoder := json.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if decoder.More() {
		return nil, errors.New("unexpected data after JSON document")
	}
	return &value, nil
}
