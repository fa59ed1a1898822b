package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// =============================================================================
// Decode Tests
// =============================================================================

func TestDecode_Status(t *testing.T) {
	data := `{"download_id":"dl-1","game_id":"g-1","game_name":"Quake","status":"paused","message":"user paused","version":"1.2","is_update":true}`

	ev, err := Decode(KindStatus, []byte(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	msg, ok := ev.(StatusMsg)
	if !ok {
		t.Fatalf("Expected StatusMsg, got %T", ev)
	}
	if msg.DownloadID != "dl-1" || msg.GameID != "g-1" || msg.GameName != "Quake" {
		t.Errorf("Identity fields not decoded: %+v", msg)
	}
	if msg.Status != "paused" || msg.Message != "user paused" {
		t.Errorf("Status fields not decoded: %+v", msg)
	}
	if msg.Version != "1.2" || !msg.IsUpdate {
		t.Errorf("Version fields not decoded: %+v", msg)
	}
}

func TestDecode_Progress(t *testing.T) {
	data := `{"download_id":"dl-1","game_id":"g-1","downloaded":500,"total":1000,"percentage":50,"speed":1024.5,"eta":12}`

	ev, err := Decode(KindProgress, []byte(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	msg := ev.(ProgressMsg)
	if msg.Downloaded != 500 || msg.Total != 1000 {
		t.Errorf("Byte counts not decoded: %+v", msg)
	}
	if msg.Percentage != 50 || msg.Speed != 1024.5 || msg.ETA != 12 {
		t.Errorf("Rates not decoded: %+v", msg)
	}
}

func TestDecode_Complete(t *testing.T) {
	data := `{"download_id":"dl-1","game_id":"g-1","install_path":"/games/quake","executable":"quake.exe","version":"2.0","is_update":true}`

	ev, err := Decode(KindComplete, []byte(data))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	msg := ev.(DownloadCompleteMsg)
	if msg.InstallPath != "/games/quake" || msg.Executable != "quake.exe" {
		t.Errorf("Install fields not decoded: %+v", msg)
	}
	if msg.Version != "2.0" || !msg.IsUpdate {
		t.Errorf("Version fields not decoded: %+v", msg)
	}
}

func TestDecode_UnknownKind(t *testing.T) {
	_, err := Decode("paused", []byte(`{"download_id":"x"}`))
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Expected ErrUnknownKind, got %v", err)
	}
}

func TestDecode_MissingID(t *testing.T) {
	_, err := Decode(KindProgress, []byte(`{"game_id":"g-1","percentage":10}`))
	if err == nil {
		t.Error("Expected error for event without download_id")
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(KindStatus, []byte(`{"download_id":`))
	if err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

// =============================================================================
// DownloadErrorMsg JSON Tests
// =============================================================================

func TestDownloadErrorMsg_UnmarshalVariants(t *testing.T) {
	testCases := []struct {
		name    string
		payload string
		want    string
		wantNil bool
	}{
		{"string", `{"download_id":"a","error":"disk full"}`, "disk full", false},
		{"empty string", `{"download_id":"a","error":""}`, "", true},
		{"object with message", `{"download_id":"a","error":{"message":"checksum mismatch"}}`, "checksum mismatch", false},
		{"object without message", `{"download_id":"a","error":{"code":5}}`, `{"code":5}`, false},
		{"null", `{"download_id":"a","error":null}`, "", true},
		{"missing", `{"download_id":"a"}`, "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg DownloadErrorMsg
			if err := json.Unmarshal([]byte(tc.payload), &msg); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if tc.wantNil {
				if msg.Err != nil {
					t.Errorf("Expected nil error, got %v", msg.Err)
				}
				return
			}
			if msg.Err == nil || msg.Err.Error() != tc.want {
				t.Errorf("Err = %v, want %q", msg.Err, tc.want)
			}
		})
	}
}

func TestDownloadErrorMsg_Marshal(t *testing.T) {
	msg := DownloadErrorMsg{DownloadID: "a", GameID: "g", Err: errors.New("network unreachable")}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"error":"network unreachable"`) {
		t.Errorf("Error not encoded as string: %s", data)
	}

	data, err = json.Marshal(DownloadErrorMsg{DownloadID: "a"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("Nil error should be omitted: %s", data)
	}
}

func TestDownloadErrorMsg_Message(t *testing.T) {
	if got := (DownloadErrorMsg{}).Message(); got != "download failed" {
		t.Errorf("Message() with nil Err = %q", got)
	}
	if got := (DownloadErrorMsg{Err: errors.New("boom")}).Message(); got != "boom" {
		t.Errorf("Message() = %q, want boom", got)
	}
}

// =============================================================================
// Envelope Tests
// =============================================================================

func TestEnvelope_Unmarshal(t *testing.T) {
	line := `{"event":"progress","at_ms":250,"data":{"download_id":"dl-9","game_id":"g","percentage":42}}`

	var env Envelope
	if err := json.Unmarshal([]byte(line), &env); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if env.AtMillis != 250 {
		t.Errorf("AtMillis = %d, want 250", env.AtMillis)
	}
	msg, ok := env.Event.(ProgressMsg)
	if !ok {
		t.Fatalf("Expected ProgressMsg, got %T", env.Event)
	}
	if msg.DownloadID != "dl-9" || msg.Percentage != 42 {
		t.Errorf("Unexpected payload: %+v", msg)
	}
}

func TestEnvelope_MarshalCarriesKind(t *testing.T) {
	env := Envelope{Event: DownloadErrorMsg{DownloadID: "dl-1", Err: errors.New("boom")}, AtMillis: 7}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var back Envelope
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	msg, ok := back.Event.(DownloadErrorMsg)
	if !ok {
		t.Fatalf("Expected DownloadErrorMsg, got %T", back.Event)
	}
	if msg.Message() != "boom" || back.AtMillis != 7 {
		t.Errorf("Unexpected envelope after round trip: %+v", back)
	}
}

func TestEnvelope_UnknownKind(t *testing.T) {
	var env Envelope
	err := json.Unmarshal([]byte(`{"event":"removed","data":{"download_id":"x"}}`), &env)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Expected ErrUnknownKind, got %v", err)
	}
}

// =============================================================================
// Message Type Assertions
// =============================================================================

func TestMessageTypes_AreDistinct(t *testing.T) {
	messages := []Event{
		StatusMsg{DownloadID: "status"},
		ProgressMsg{DownloadID: "progress"},
		DownloadCompleteMsg{DownloadID: "complete"},
		DownloadErrorMsg{DownloadID: "error"},
	}

	kinds := make(map[Kind]bool)
	typeNames := make(map[string]bool)
	for _, msg := range messages {
		typeName := fmt.Sprintf("%T", msg)
		if typeNames[typeName] {
			t.Errorf("Duplicate type: %s", typeName)
		}
		typeNames[typeName] = true
		if kinds[msg.Kind()] {
			t.Errorf("Duplicate kind: %s", msg.Kind())
		}
		kinds[msg.Kind()] = true
		if msg.ID() != string(msg.Kind()) {
			t.Errorf("ID() = %q, want %q", msg.ID(), msg.Kind())
		}
	}

	if len(typeNames) != 4 {
		t.Errorf("Expected 4 distinct types, got %d", len(typeNames))
	}
}
