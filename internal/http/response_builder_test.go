package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusAccepted).
		BodyHTML([]byte("<p>ok</p>")).
		Write(w)

	if w.Code != http.StatusAccepted {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusAccepted)
	}
	if w.Body.String() != "<p>ok</p>" {
		t.Errorf("Body = %q", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("HX-Trigger set without triggers")
	}
}

func TestHTMXResponseBuilder_Notices(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Notices(Notices{Alerts: []string{"first", "second"}, ResetForm: true}).
		Write(w)

	var got map[string]json.RawMessage
	if err := json.Unmarshal([]byte(w.Header().Get("HX-Trigger")), &got); err != nil {
		t.Fatalf("HX-Trigger is not JSON: %v", err)
	}
	if _, ok := got[EventFormReset]; !ok {
		t.Errorf("missing %s trigger", EventFormReset)
	}
	var alert struct{ Messages []string }
	if err := json.Unmarshal(got[EventShowAlert], &alert); err != nil {
		t.Fatalf("decode alert: %v", err)
	}
	if len(alert.Messages) != 2 || alert.Messages[0] != "first" {
		t.Errorf("alert messages = %v", alert.Messages)
	}
}

func TestHTMXResponseBuilder_EmptyNotices(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().Notices(Notices{}).Write(w)
	if w.Header().Get("HX-Trigger") != "" {
		t.Errorf("unexpected HX-Trigger %q", w.Header().Get("HX-Trigger"))
	}
}
