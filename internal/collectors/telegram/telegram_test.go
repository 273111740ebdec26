package telegram

import (
	"reflect"
	"testing"
)

func TestParseSettings(t *testing.T) {
	s, err := parseSettings(map[string]interface{}{
		"api_id":   12345,
		"api_hash": "abc",
		"chats":    []interface{}{-1001234567890, int64(42), "skip-me"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.limit != defaultLimit || s.session != defaultSession {
		t.Fatalf("defaults not applied: %+v", s)
	}
	if want := []int64{-1001234567890, 42}; !reflect.DeepEqual(s.chats, want) {
		t.Fatalf("chats=%v, want=%v", s.chats, want)
	}

	if _, err := parseSettings(map[string]interface{}{"api_hash": "abc"}); err == nil {
		t.Fatalf("expected error without api_id")
	}
}
