package wire

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestNormalize_NestedAndInlineProduceSameShape(t *testing.T) {
	nested, err := Normalize([]byte(`{"type":"file_state_change","id":"m1","data":{"file_id":"f1","state":"copying"}}`))
	if err != nil {
		t.Fatalf("Normalize nested: %v", err)
	}
	inline, err := Normalize([]byte(`{"type":"file_state_change","id":"m1","file_id":"f1","state":"copying"}`))
	if err != nil {
		t.Fatalf("Normalize inline: %v", err)
	}
	if len(nested) != 1 || len(inline) != 1 {
		t.Fatalf("len = %d/%d, want 1/1", len(nested), len(inline))
	}

	var a, b map[string]any
	if err := json.Unmarshal(nested[0].Data, &a); err != nil {
		t.Fatalf("nested data not JSON: %v", err)
	}
	if err := json.Unmarshal(inline[0].Data, &b); err != nil {
		t.Fatalf("inline data not JSON: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("nested data %v != inline data %v", a, b)
	}
	if nested[0].ID != "m1" || inline[0].Type != TypeFileStateChange {
		t.Fatalf("envelope fields lost: %+v %+v", nested[0], inline[0])
	}
}

func TestNormalize_DataWinsOverEnvelopeFields(t *testing.T) {
	msgs, err := Normalize([]byte(`{"type":"thumbnail_update","file_id":"outer","etag":"e1","data":{"file_id":"inner","thumbnail_state":"ready"}}`))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got := msgs[0].Get("file_id").String(); got != "inner" {
		t.Fatalf("file_id = %q, want inner", got)
	}
	if got := msgs[0].Get("etag").String(); got != "e1" {
		t.Fatalf("etag = %q, want envelope value e1", got)
	}
}

func TestNormalize_FlattensBatchInOrder(t *testing.T) {
	raw := []byte(`{"type":"batch","messages":[
		{"type":"a","id":"1"},
		{"type":"batch","messages":[{"type":"b"},{"type":"c","id":7}]},
		{"type":"d"}
	]}`)
	msgs, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	var types []string
	for _, m := range msgs {
		types = append(types, m.Type)
	}
	if !reflect.DeepEqual(types, []string{"a", "b", "c", "d"}) {
		t.Fatalf("types = %v, want [a b c d]", types)
	}
	if msgs[0].ID != "1" || msgs[2].ID != "7" || msgs[1].ID != "" {
		t.Fatalf("ids = %q %q %q, want 1 '' 7", msgs[0].ID, msgs[1].ID, msgs[2].ID)
	}
}

func TestNormalize_BatchIDCoversMembersWithoutIDs(t *testing.T) {
	raw := []byte(`{"type":"batch","id":"b1","messages":[
		{"type":"a"},
		{"type":"b","id":"own"},
		{"type":"batch","messages":[{"type":"c"}]}
	]}`)
	msgs, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	var ids []string
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	if want := []string{"b1#0", "own", "b1#2#0"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("ids = %q, want %q", ids, want)
	}

	again, _ := Normalize(raw)
	if again[0].ID != msgs[0].ID {
		t.Fatalf("redelivered id = %q, want %q", again[0].ID, msgs[0].ID)
	}
}

func TestNormalize_BatchUnderData(t *testing.T) {
	msgs, err := Normalize([]byte(`{"type":"batch","data":{"messages":[{"type":"ping"},{"type":"pong"}]}}`))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2", len(msgs))
	}
}

func TestNormalize_MalformedMemberSkipped(t *testing.T) {
	msgs, err := Normalize([]byte(`{"type":"batch","messages":[{"type":"a"},42,{"data":{}},{"type":"b"}]}`))
	if len(msgs) != 2 || msgs[0].Type != "a" || msgs[1].Type != "b" {
		t.Fatalf("msgs = %+v, want a and b", msgs)
	}
	if !errors.Is(err, ErrNotObject) || !errors.Is(err, ErrMissingType) {
		t.Fatalf("err = %v, want not-object and missing-type parse errors", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
}

func TestNormalize_IrrecoverableInputEmitsNothing(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `{"type":`, ErrInvalidJSON},
		{"empty", ``, ErrInvalidJSON},
		{"array root", `[1,2]`, ErrNotObject},
		{"string root", `"hello"`, ErrNotObject},
		{"batch without messages", `{"type":"batch"}`, ErrBadBatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs, err := Normalize([]byte(tt.raw))
			if len(msgs) != 0 {
				t.Fatalf("msgs = %+v, want none", msgs)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNormalize_DeepBatchRejected(t *testing.T) {
	raw := `{"type":"ping"}`
	for i := 0; i < maxBatchDepth+1; i++ {
		raw = `{"type":"batch","messages":[` + raw + `]}`
	}
	msgs, err := Normalize([]byte(raw))
	if len(msgs) != 0 || !errors.Is(err, ErrTooDeep) {
		t.Fatalf("msgs = %d err = %v, want none and ErrTooDeep", len(msgs), err)
	}
}
