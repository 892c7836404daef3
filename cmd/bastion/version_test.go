package main

import (
	"testing"
)

func TestVersionDefaults(t *testing.T) {
	origVersion := Version
	origGitCommit := GitCommit
	origBuildDate := BuildDate
	defer func() {
		Version = origVersion
		GitCommit = origGitCommit
		BuildDate = origBuildDate
	}()

	Version = "0.1.0-test"
	GitCommit = "abc123"
	BuildDate = "2026-09-01"

	if Version != "0.1.0-test" {
		t.Errorf("Version = %q, want %q", Version, "0.1.0-test")
	}
	if GitCommit != "abc123" {
		t.Errorf("GitCommit = %q, want %q", GitCommit, "abc123")
	}
	if BuildDate != "2026-09-01" {
		t.Errorf("BuildDate = %q, want %q", BuildDate, "2026-09-01")
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"version":   false,
		"run":       false,
		"validate":  false,
		"check":     false,
		"approvals": false,
	}
	for _, cmd := range rootCmd.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
			if cmd.Short == "" {
				t.Errorf("command %q has no short description", cmd.Name())
			}
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}
