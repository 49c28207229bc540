package bot

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: test-token
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Dialog.Store != StoreMemory {
		t.Fatalf("store = %q", cfg.Dialog.Store)
	}
	if cfg.Dialog.TTLMinutes != 30 || cfg.Dialog.SweepIntervalMinutes != 5 {
		t.Fatalf("dialog defaults = %+v", cfg.Dialog)
	}
	if cfg.Core.Telegram.RunMode != "longpoll" {
		t.Fatalf("run mode = %q", cfg.Core.Telegram.RunMode)
	}
}

func TestLoadConfigRejectsBackendWithoutConnection(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: test-token
dialog:
  store: redis
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("redis store without redis.addr must fail validation")
	}

	path = writeConfig(t, `
telegram:
  token: test-token
dialog:
  store: postgres
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("postgres store without database.host must fail validation")
	}
}

func TestLoadConfigRejectsUnknownStore(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: test-token
dialog:
  store: etcd
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("unknown store must fail validation")
	}
}
