package cmp

import (
	"reflect"
	"testing"

	"cmpfetch/cli/internal/errors"
)

func TestEncodeRequest(t *testing.T) {
	params := Parameters{}.
		With("security", "BACM 2006-1 A4").
		With("show_headers", "True").
		With("include_zero_balance", BoolValue(false))

	data, err := EncodeRequest(params)
	if err != nil {
		t.Fatalf("EncodeRequest() error = %v", err)
	}

	want := `{"cmpExcelRequest":{"parameters":[` +
		`{"name":"security","value":"BACM 2006-1 A4"},` +
		`{"name":"show_headers","value":"True"},` +
		`{"name":"include_zero_balance","value":"False"}]}}`
	if string(data) != want {
		t.Errorf("EncodeRequest() = %s, want %s", data, want)
	}
}

func TestParametersWithDoesNotAliasReceiver(t *testing.T) {
	base := Parameters{}.With("a", "1")
	p1 := base.With("b", "2")
	p2 := base.With("c", "3")

	if v, _ := p1.Get("b"); v != "2" {
		t.Errorf("p1 missing b, got %q", v)
	}
	if _, ok := p2.Get("b"); ok {
		t.Error("p2 should not contain b")
	}
	if len(base) != 1 {
		t.Errorf("base mutated, len = %d", len(base))
	}
}

func TestDecodeResponseError(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"errorResponse":{"message":"Limit reached"}}`))
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if !resp.IsError() {
		t.Fatal("IsError() = false, want true")
	}
	if resp.ErrorMessage != "Limit reached" {
		t.Errorf("ErrorMessage = %q, want %q", resp.ErrorMessage, "Limit reached")
	}
}

func TestDecodeResponseFields(t *testing.T) {
	payload := []byte(`{"cmpExcelResponse":{"results":[` +
		`{"fields":[{"name":"assets","value":"v1"},{"name":"extra","value":"v2"}]},` +
		`{"fields":[{"name":"assets","value":"v3"}]}]}}`)

	resp, err := DecodeResponse(payload)
	if err != nil {
		t.Fatalf("DecodeResponse() error = %v", err)
	}
	if resp.IsError() {
		t.Fatalf("IsError() = true, message %q", resp.ErrorMessage)
	}

	// Later results win; first-seen order is kept.
	if got := resp.Fields["assets"]; got != "v3" {
		t.Errorf("Fields[assets] = %v, want v3", got)
	}
	wantOrder := []string{"assets", "extra"}
	if !reflect.DeepEqual(resp.FieldOrder, wantOrder) {
		t.Errorf("FieldOrder = %v, want %v", resp.FieldOrder, wantOrder)
	}
}

func TestDecodeResponseRejectsUnknownEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "neither envelope key", payload: `{"something":{}}`},
		{name: "not json", payload: `garbage`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeResponse([]byte(tt.payload))
			if err == nil {
				t.Fatal("DecodeResponse() expected error, got nil")
			}
			if !errors.IsKind(err, errors.BadResponse) {
				t.Errorf("DecodeResponse() error = %v, want BadResponse kind", err)
			}
		})
	}
}
