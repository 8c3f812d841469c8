package hostlist

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadHostsJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts.json")
	doc := `{"reflectors":[
		{"designator":"12345","country":"US","name":"TESTNET","use_xx_prefix":false,"description":"a test net","port":42000,"ipv4":"203.0.113.5","ipv6":null},
		{"designator":"99999","country":"US","name":"NOADDR","use_xx_prefix":false,"description":"unreachable","port":42000,"ipv4":null,"ipv6":null}
	]}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := LoadHostsJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 (unreachable entry skipped)", len(entries))
	}
	if entries[0].ID != "12345" || entries[0].Address != "203.0.113.5" {
		t.Fatalf("got %+v", entries[0])
	}
}

func TestLoadHostsJSONParseErrorAborts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hosts.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadHostsJSON(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFCSRooms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rooms.txt")
	contents := "# comment\n\n00201;Test Room One\n00202;Test Room Two\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := LoadFCSRooms(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].ID != "00201" || entries[0].Kind != KindFCS {
		t.Fatalf("got %+v", entries[0])
	}
}
