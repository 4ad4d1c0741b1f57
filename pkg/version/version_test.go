package version

import "testing"

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	if info.Version == "" || info.GitCommit == "" || info.BuildDate == "" {
		t.Fatalf("expected non-empty version info")
	}
}

func TestGetShortCommit(t *testing.T) {
	old := GitCommit
	defer func() { GitCommit = old }()

	GitCommit = "abcdef123456"
	if GetShortCommit() != "abcdef1" {
		t.Fatalf("expected truncated commit, got %s", GetShortCommit())
	}
	GitCommit = "abc"
	if GetShortCommit() != "abc" {
		t.Fatalf("short commits pass through, got %s", GetShortCommit())
	}
}
