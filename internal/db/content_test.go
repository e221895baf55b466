package db

import (
	"encoding/json"
	"testing"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		raw     string
		want    Action
		wantErr bool
	}{
		{raw: "publish", want: ActionPublish},
		{raw: " Unpublish ", want: ActionUnpublish},
		{raw: "DELETE", want: ActionDelete},
		{raw: "archive", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAction(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestActionJSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		Action Action `json:"action"`
	}{Action: ActionDelete})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"action":"delete"}` {
		t.Fatalf("unexpected payload %s", payload)
	}

	var decoded struct {
		Action Action `json:"action"`
	}
	if err := json.Unmarshal([]byte(`{"action":"bogus"}`), &decoded); err == nil {
		t.Fatal("expected unknown action to fail decoding")
	}
	if _, err := json.Marshal(struct{ A Action }{}); err == nil {
		t.Fatal("expected zero action to fail encoding")
	}
}

func TestParseContentType(t *testing.T) {
	if got, err := ParseContentType("Tutorials"); err != nil || got != ContentTutorial {
		t.Fatalf("expected tutorial, got %q (%v)", got, err)
	}
	if got, err := ParseContentType("page"); err != nil || got != ContentPage {
		t.Fatalf("expected page, got %q (%v)", got, err)
	}
	if _, err := ParseContentType("comment"); err == nil {
		t.Fatal("expected error for unknown type")
	}
	if ContentType("comment").Valid() {
		t.Fatal("comment must not be a valid content type")
	}
}
