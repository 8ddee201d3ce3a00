// ABOUTME: Tests for the gateway wire frames.
// ABOUTME: Pins the exact JSON field names and terminal-frame classification.

package protocol

import (
	"encoding/json"
	"reflect"
	"sort"
	"testing"
)

func TestHello_WireFields(t *testing.T) {
	hello := Hello{
		InstanceID:    "inst-1",
		ClientName:    "cli",
		ClientVersion: "dev",
		Platform:      "linux",
		Mode:          "cli",
		MinProtocol:   1,
		MaxProtocol:   1,
		Token:         "tok",
		Password:      "pw",
	}

	data, err := json.Marshal(&hello)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	// The gateway matches these names byte for byte.
	want := []string{
		"clientName", "clientVersion", "instanceId", "maxProtocol",
		"minProtocol", "mode", "password", "platform", "token",
	}
	var got []string
	for k := range fields {
		got = append(got, k)
	}
	sort.Strings(got)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("hello fields = %v, want %v", got, want)
	}
}

func TestHello_OptionalFieldsOmitted(t *testing.T) {
	hello := Hello{
		InstanceID:    "inst-1",
		ClientName:    "cli",
		ClientVersion: "dev",
		Mode:          "cli",
		MinProtocol:   1,
		MaxProtocol:   1,
	}

	data, err := json.Marshal(&hello)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	for _, name := range []string{"platform", "token", "password"} {
		if _, present := fields[name]; present {
			t.Errorf("unset %s should be omitted from the hello frame", name)
		}
	}
}

func TestHelloAck_Rejection(t *testing.T) {
	data := []byte(`{"ok": false, "error": {"code": "unauthorized", "message": "bad token"}}`)

	var ack HelloAck
	if err := json.Unmarshal(data, &ack); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if ack.OK {
		t.Error("OK = true, want false")
	}
	if ack.Error == nil {
		t.Fatal("Error = nil, want descriptor")
	}
	if ack.Error.Code != "unauthorized" {
		t.Errorf("Error.Code = %q, want %q", ack.Error.Code, "unauthorized")
	}
	if ack.Error.Message != "bad token" {
		t.Errorf("Error.Message = %q, want %q", ack.Error.Message, "bad token")
	}
}

func TestResponse_Terminal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"result", `{"id": "a", "result": "pong"}`, true},
		{"error", `{"id": "a", "error": {"message": "boom"}}`, true},
		{"partial", `{"id": "a", "partial": {"chunk": 1}}`, false},
		{"final result", `{"id": "a", "result": "done", "final": true}`, true},
		{"empty", `{"id": "a"}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp Response
			if err := json.Unmarshal([]byte(tt.raw), &resp); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if got := resp.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResponse_NullResultIsTerminal(t *testing.T) {
	// A method may legitimately return JSON null; the frame still settles
	// the request because the result key is present (RawMessage keeps the
	// literal null bytes).
	var resp Response
	if err := json.Unmarshal([]byte(`{"id": "a", "result": null}`), &resp); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !resp.Terminal() {
		t.Error("Terminal() = false for explicit null result, want true")
	}
}
