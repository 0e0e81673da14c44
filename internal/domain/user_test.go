package domain

import (
	"encoding/json"
	"testing"
)

func TestNewPlayer(t *testing.T) {
	a, b := NewPlayer(), NewPlayer()
	if a.ID == b.ID {
		t.Error("Expected unique player IDs")
	}
	if a.Address != "" {
		t.Errorf("Expected no address, got %q", a.Address)
	}
}

func TestPlayer_JSON(t *testing.T) {
	p := NewPlayer()

	data, _ := json.Marshal(p)
	var fields map[string]any
	json.Unmarshal(data, &fields)
	if len(fields) != 1 || fields["id"] != p.ID.String() {
		t.Errorf("Expected only the id field, got %s", data)
	}

	p.Address = "0xabc"
	data, _ = json.Marshal(p)
	fields = nil
	json.Unmarshal(data, &fields)
	if fields["address"] != "0xabc" {
		t.Errorf("Expected address field, got %s", data)
	}
}
