// Package wire turns raw stream frames into canonical messages. Normalize
// flattens batch envelopes and lifts fields that live directly on the
// envelope into the data object; Decode maps each canonical message onto the
// typed catalog the cache dispatcher matches on.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const maxBatchDepth = 8

// Normalized is the canonical in-memory form of one envelope. Data is always
// a JSON object.
type Normalized struct {
	Type string
	ID   string
	Data json.RawMessage
}

// Normalize parses one frame into the ordered messages it carries. Invalid
// JSON or a non-object root produce no messages. Malformed members of a batch
// are skipped while their siblings are kept; every dropped piece contributes
// a *ParseError to the returned error.
func Normalize(raw []byte) ([]Normalized, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &ParseError{Err: ErrInvalidJSON}
	}
	var (
		out  []Normalized
		errs []error
	)
	flatten(gjson.ParseBytes(raw), 0, "", &out, &errs)
	return out, errors.Join(errs...)
}

// flatten appends the messages env carries. A member without an id of its
// own gets one derived from the enclosing batch id and its position, so a
// redelivered batch deduplicates like its members would.
func flatten(env gjson.Result, depth int, inherited string, out *[]Normalized, errs *[]error) {
	if !env.IsObject() {
		*errs = append(*errs, &ParseError{Err: ErrNotObject})
		return
	}
	typ := strings.TrimSpace(env.Get("type").String())
	if typ == "" {
		*errs = append(*errs, &ParseError{Err: ErrMissingType})
		return
	}
	id := envelopeID(env)
	if id == "" {
		id = inherited
	}
	if typ != TypeBatch {
		*out = append(*out, Normalized{Type: typ, ID: id, Data: canonicalData(env)})
		return
	}
	if depth >= maxBatchDepth {
		*errs = append(*errs, &ParseError{Type: typ, Err: ErrTooDeep})
		return
	}
	members := env.Get("messages")
	if !members.Exists() {
		members = env.Get("data.messages")
	}
	if !members.IsArray() {
		*errs = append(*errs, &ParseError{Type: typ, Err: ErrBadBatch})
		return
	}
	for i, member := range members.Array() {
		flatten(member, depth+1, memberID(id, i), out, errs)
	}
}

func memberID(batchID string, i int) string {
	if batchID == "" {
		return ""
	}
	return batchID + "#" + strconv.Itoa(i)
}

func envelopeID(env gjson.Result) string {
	id := env.Get("id")
	switch id.Type {
	case gjson.String:
		return strings.TrimSpace(id.Str)
	case gjson.Number:
		return id.Raw
	default:
		return ""
	}
}

// canonicalData merges the data object with any domain fields found on the
// envelope itself. Keys inside data win.
func canonicalData(env gjson.Result) json.RawMessage {
	var b bytes.Buffer
	seen := make(map[string]struct{})
	b.WriteByte('{')
	write := func(key, value gjson.Result) {
		name := key.String()
		if _, dup := seen[name]; dup {
			return
		}
		if len(seen) > 0 {
			b.WriteByte(',')
		}
		seen[name] = struct{}{}
		k, _ := json.Marshal(name)
		b.Write(k)
		b.WriteByte(':')
		b.WriteString(value.Raw)
	}

	data := env.Get("data")
	if data.IsObject() {
		data.ForEach(func(key, value gjson.Result) bool {
			write(key, value)
			return true
		})
	}
	env.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "type", "id", "messages":
			return true
		case "data":
			if data.IsObject() {
				return true
			}
		}
		write(key, value)
		return true
	})
	b.WriteByte('}')
	return json.RawMessage(b.Bytes())
}

// Get returns the raw field at path inside the message data.
func (n Normalized) Get(path string) gjson.Result {
	return gjson.GetBytes(n.Data, path)
}

func (n Normalized) decode(v any) error {
	if err := json.Unmarshal(n.Data, v); err != nil {
		return &ParseError{Type: n.Type, Err: err}
	}
	return nil
}

func (n Normalized) fail(err error) error {
	return &ParseError{Type: n.Type, Err: err}
}
