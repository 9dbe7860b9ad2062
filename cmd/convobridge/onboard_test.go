package main

import (
	"testing"
)

func TestBuildConfigDocument(t *testing.T) {
	t.Parallel()

	doc := buildConfigDocument(onboardAnswers{
		EnableDiscord:  true,
		EnableTerminal: true,
		Backend:        "sqlite",
		StatePath:      "/tmp/state.db",
		AdminEnabled:   true,
		AdminAddr:      "127.0.0.1:8080",
		Broadcast:      true,
	})

	if doc["version"] != "1" {
		t.Errorf("version = %v", doc["version"])
	}
	modules := doc["modules"].(map[string]any)
	discord := modules["channel.discord"].(map[string]any)
	if discord["token"] != "${DISCORD_BOT_TOKEN}" {
		t.Errorf("token = %v, want env reference when none given", discord["token"])
	}
	if _, ok := modules["channel.terminal"]; !ok {
		t.Error("terminal module missing")
	}
	state := doc["state"].(map[string]any)
	if state["backend"] != "sqlite" || state["path"] != "/tmp/state.db" {
		t.Errorf("state = %v", state)
	}
	admin := doc["admin"].(map[string]any)
	if admin["addr"] != "127.0.0.1:8080" {
		t.Errorf("admin = %v", admin)
	}
	if routing := doc["routing"].(map[string]any); routing["broadcast"] != true {
		t.Errorf("routing = %v", routing)
	}
}

func TestBuildConfigDocument_Minimal(t *testing.T) {
	t.Parallel()

	doc := buildConfigDocument(onboardAnswers{EnableTerminal: true, Backend: "memory"})
	if _, ok := doc["state"]; ok {
		t.Error("memory backend should not emit a state section")
	}
	if _, ok := doc["admin"]; ok {
		t.Error("disabled admin should not emit an admin section")
	}
	modules := doc["modules"].(map[string]any)
	if len(modules) != 1 {
		t.Errorf("modules = %v", modules)
	}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	t.Parallel()

	root := rootCmd()
	for _, name := range []string{"version", "start", "config", "onboard", "service"} {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q missing", name)
		}
	}
}
