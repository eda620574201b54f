package repo

import (
	"os"
	"testing"
)

func TestConfig_MissingFileYieldsDefaults(t *testing.T) {
	r := newTestRepo(t)
	os.Remove(r.configPath())

	cfg, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg.Core.DefaultBranch != DefaultBranch {
		t.Fatalf("DefaultBranch = %q, want %q", cfg.Core.DefaultBranch, DefaultBranch)
	}
	if cfg.Remotes == nil {
		t.Fatal("Remotes map should be initialized")
	}
}

func TestConfig_RoundTrip(t *testing.T) {
	r := newTestRepo(t)

	cfg, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	cfg.User = UserConfig{Name: "Alice Example", Email: "alice@example.com"}
	cfg.Core.DefaultBranch = "trunk"
	cfg.Remotes["origin"] = "ssh://vcs.example.com/proj"

	if err := r.WriteConfig(cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	got, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if got.User != cfg.User {
		t.Fatalf("User = %+v, want %+v", got.User, cfg.User)
	}
	if got.Core.DefaultBranch != "trunk" {
		t.Fatalf("DefaultBranch = %q, want trunk", got.Core.DefaultBranch)
	}
	if got.Remotes["origin"] != "ssh://vcs.example.com/proj" {
		t.Fatalf("Remotes = %v", got.Remotes)
	}
}

func TestConfig_SetRemote(t *testing.T) {
	r := newTestRepo(t)

	if err := r.SetRemote("origin", "ssh://vcs.example.com/proj"); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}
	url, err := r.RemoteURL("origin")
	if err != nil {
		t.Fatalf("RemoteURL: %v", err)
	}
	if url != "ssh://vcs.example.com/proj" {
		t.Fatalf("url = %q", url)
	}

	// Updating replaces the stored URL.
	if err := r.SetRemote("origin", "ssh://mirror.example.com/proj"); err != nil {
		t.Fatalf("SetRemote: %v", err)
	}
	url, _ = r.RemoteURL("origin")
	if url != "ssh://mirror.example.com/proj" {
		t.Fatalf("url = %q after update", url)
	}
}

func TestConfig_SetRemoteValidation(t *testing.T) {
	r := newTestRepo(t)
	if err := r.SetRemote("", "ssh://x"); err == nil {
		t.Fatal("empty remote name should be rejected")
	}
	if err := r.SetRemote("origin", "  "); err == nil {
		t.Fatal("blank URL should be rejected")
	}
	if _, err := r.RemoteURL("nope"); err == nil {
		t.Fatal("unknown remote should error")
	}
}
