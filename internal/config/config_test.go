package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.Callsign != "N0CALL" {
		t.Errorf("Callsign = %q, want N0CALL", cfg.General.Callsign)
	}
	if cfg.YSFNetwork.DstPort != 42000 {
		t.Errorf("YSFNetwork.DstPort = %d, want 42000", cfg.YSFNetwork.DstPort)
	}
	if cfg.IMRSNetwork.LocalPort != 21110 {
		t.Errorf("IMRSNetwork.LocalPort = %d, want 21110", cfg.IMRSNetwork.LocalPort)
	}
	if cfg.Network.RptAddress != "127.0.0.1" {
		t.Errorf("Network.RptAddress = %q, want 127.0.0.1", cfg.Network.RptAddress)
	}
	if cfg.Network.RptPort != 3000 {
		t.Errorf("Network.RptPort = %d, want 3000", cfg.Network.RptPort)
	}
	if cfg.FCSNetwork.ID != 0 {
		t.Errorf("FCSNetwork.ID = %d, want 0", cfg.FCSNetwork.ID)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ysf-gateway.ini")
	data := "[general]\ncallsign = W1AW\nsuffix = ND\n\n[ysf_network]\ndst_address = ysf.example.net\ndst_port = 42001\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.Callsign != "W1AW" {
		t.Errorf("Callsign = %q, want W1AW", cfg.General.Callsign)
	}
	if cfg.YSFNetwork.DstPort != 42001 {
		t.Errorf("YSFNetwork.DstPort = %d, want 42001", cfg.YSFNetwork.DstPort)
	}
}
