package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseFlags(t *testing.T) {
	dir := t.TempDir()
	cfg, err := parseFlags([]string{
		"-data", dir,
		"-web", "/srv/globe",
		"-camera", "2",
		"-zmq", "tcp://*:5556",
		"-motion", "2.5",
		"-log-level", "debug",
	})
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}

	if cfg.DataDir != dir || cfg.StaticDir != "/srv/globe" {
		t.Errorf("dirs = %q, %q", cfg.DataDir, cfg.StaticDir)
	}
	if cfg.CameraID != 2 || cfg.ZMQAddr != "tcp://*:5556" || cfg.MotionPct != 2.5 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.PluginDir != filepath.Join(dir, "plugins") {
		t.Errorf("plugin dir = %q", cfg.PluginDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Gesture.Pinch.Threshold != 0.07 || cfg.Addr != ":8080" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestParseFlags_Unknown(t *testing.T) {
	if _, err := parseFlags([]string{"-nope"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestFindWebDir_DataDir(t *testing.T) {
	dataDir := t.TempDir()
	web := filepath.Join(dataDir, "web")
	if err := os.Mkdir(web, 0755); err != nil {
		t.Fatal(err)
	}

	wd, _ := os.Getwd()
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	if got := findWebDir(dataDir); got != web {
		t.Errorf("findWebDir() = %q, want %q", got, web)
	}
}

func TestBrowserURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080/"},
		{"127.0.0.1:9000", "http://127.0.0.1:9000/"},
	}
	for _, tt := range tests {
		if got := browserURL(tt.addr); got != tt.want {
			t.Errorf("browserURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
