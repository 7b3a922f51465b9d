package domain

import (
	"encoding/json"
	"testing"
)

func TestParseRoomID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    RoomID
		wantErr bool
	}{
		{"4821", 4821, false},
		{"1", 1, false},
		{"0", 0, true},
		{"-12", 0, true},
		{"12a", 0, true},
		{"", 0, true},
		{" 12", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseRoomID(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseRoomID(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseRoomID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Role{
		"presenter":  RolePresenter,
		"Publisher":  RolePresenter,
		" viewer ":   RoleViewer,
		"subscriber": RoleViewer,
	} {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Fatalf("ParseRole(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseRole("admin"); err != ErrUnknownRole {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if Role(7).String() != "unknown" {
		t.Fatal("unexpected role name")
	}
}

func TestFeedID_UnmarshalJSON(t *testing.T) {
	t.Parallel()
	var pubs []Publisher
	if err := json.Unmarshal([]byte(`[{"id": 42, "display": "Presenter"}, {"id": "a1b2c3"}, {"id": null}, {"id": ""}]`), &pubs); err != nil {
		t.Fatal(err)
	}
	if len(pubs) != 4 || pubs[0].ID.String() != "42" || pubs[1].ID.String() != "a1b2c3" || pubs[2].ID.Valid() || pubs[3].ID.Valid() {
		t.Fatalf("unexpected publishers: %+v", pubs)
	}

	for _, bad := range []string{`-3`, `1.5`, `true`, `{}`} {
		var f FeedID
		if err := json.Unmarshal([]byte(bad), &f); err == nil {
			t.Errorf("expected error for feed %s", bad)
		}
	}
}

// Feed ids go back to the relay in the form it sent them.
func TestFeedID_EchoesWireForm(t *testing.T) {
	t.Parallel()
	for _, in := range []string{`55`, `"55"`, `"a1b2c3"`} {
		var f FeedID
		if err := json.Unmarshal([]byte(in), &f); err != nil {
			t.Fatal(err)
		}
		b, err := json.Marshal(NewSubscribe(1234, f))
		if err != nil {
			t.Fatal(err)
		}
		want := `{"request":"subscribe","room":1234,"feed":` + in + `,"offer_video":true,"offer_audio":true}`
		if string(b) != want {
			t.Errorf("subscribe = %s, want %s", b, want)
		}
	}
}

func TestRequests(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(NewSubscribe(1234, "9"))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"request":"subscribe","room":1234,"feed":9,"offer_video":true,"offer_audio":true}`
	if string(b) != want {
		t.Fatalf("subscribe = %s, want %s", b, want)
	}

	j := NewJoinSubscriber(1234)
	if j.PType != PTypeSubscriber || j.Display != DisplayViewer {
		t.Fatalf("unexpected join: %+v", j)
	}
	if c := NewCreateRoom(5); c.Publishers != 1 || c.Request != "create" {
		t.Fatalf("unexpected create: %+v", c)
	}
}
