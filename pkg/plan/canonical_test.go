package plan

import "testing"

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{"b": 1, "a": 2, "c": 3})
	if err != nil {
		t.Fatalf("MarshalCanonical() error = %v", err)
	}
	want := `{"a":2,"b":1,"c":3}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestMarshalCanonicalNested(t *testing.T) {
	v := map[string]any{
		"outer": map[string]any{"z": []any{1, "two", nil, true}, "a": 1.5},
	}
	got, err := MarshalCanonical(v)
	if err != nil {
		t.Fatalf("MarshalCanonical() error = %v", err)
	}
	want := `{"outer":{"a":1.5,"z":[1,"two",null,true]}}`
	if string(got) != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestMarshalCanonicalStructsAndMapsAgree(t *testing.T) {
	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	fromStruct, err := MarshalCanonical(payload{Name: "x", Count: 3})
	if err != nil {
		t.Fatalf("MarshalCanonical() error = %v", err)
	}
	fromMap, err := MarshalCanonical(map[string]any{"count": 3, "name": "x"})
	if err != nil {
		t.Fatalf("MarshalCanonical() error = %v", err)
	}
	if string(fromStruct) != string(fromMap) {
		t.Errorf("struct and map serializations differ: %s != %s", fromStruct, fromMap)
	}
}
