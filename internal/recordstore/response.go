package recordstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// Response is a decoded backend reply. The shape varies per action: a mapping
// such as {success, data}, a bare value, or {error}.
type Response struct {
	raw  json.RawMessage
	body any
}

func decodeResponse(raw []byte) (Response, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return Response{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Response{}, errors.New("unexpected data after JSON value")
	}
	return Response{raw: append(json.RawMessage(nil), raw...), body: body}, nil
}

// Raw returns the body exactly as received.
func (r Response) Raw() json.RawMessage { return r.raw }

// Object returns the body as a mapping when it is one.
func (r Response) Object() (map[string]any, bool) {
	obj, ok := r.body.(map[string]any)
	return obj, ok
}

// Success reports the success flag and whether it was present at all.
func (r Response) Success() (bool, bool) {
	obj, ok := r.Object()
	if !ok {
		return false, false
	}
	v, present := obj["success"]
	if !present {
		return false, false
	}
	return truthy(v), true
}

// ErrorMessage returns the error field of an error mapping.
func (r Response) ErrorMessage() string {
	obj, ok := r.Object()
	if !ok {
		return ""
	}
	msg, _ := obj["error"].(string)
	return strings.TrimSpace(msg)
}

// Data unwraps the payload: the data field, else the result field, else the body.
func (r Response) Data() any {
	return unwrap(r.body)
}

// Array normalises the payload into a slice; anything else becomes empty.
func (r Response) Array() []any {
	if arr, ok := r.Data().([]any); ok {
		return arr
	}
	return []any{}
}

// Rows returns the array elements that are themselves arrays.
func (r Response) Rows() [][]any {
	arr := r.Array()
	rows := make([][]any, 0, len(arr))
	for _, item := range arr {
		if row, ok := item.([]any); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

func unwrap(body any) any {
	obj, ok := body.(map[string]any)
	if !ok {
		return body
	}
	if v, ok := obj["data"]; ok && v != nil {
		return v
	}
	if v, ok := obj["result"]; ok && v != nil {
		return v
	}
	return body
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case json.Number:
		f, err := val.Float64()
		return err == nil && f != 0
	case float64:
		return val != 0
	default:
		return true
	}
}

func remarshal(src, dest any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
