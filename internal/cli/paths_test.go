package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "")

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	home, _ := os.UserHomeDir()
	expected := filepath.Join(home, ".cache", appName)
	if dir != expected {
		t.Errorf("cacheDir() = %q, want %q", dir, expected)
	}
}

func TestCacheDirXDG(t *testing.T) {
	customCache := "/tmp/custom-cache"
	t.Setenv("XDG_CACHE_HOME", customCache)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}

	expected := filepath.Join(customCache, appName)
	if dir != expected {
		t.Errorf("cacheDir() with XDG_CACHE_HOME = %q, want %q", dir, expected)
	}
}

func TestConfigPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name string
		env  string
		xdg  string
		want string
	}{
		{"explicit", "/etc/vizgo.toml", "/xdg", "/etc/vizgo.toml"},
		{"xdg", "", "/xdg", filepath.Join("/xdg", appName, "config.toml")},
		{"home", "", "", filepath.Join(home, ".config", appName, "config.toml")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VIZGO_CONFIG", tt.env)
			t.Setenv("XDG_CONFIG_HOME", tt.xdg)

			got := configPath()
			if got != tt.want {
				t.Errorf("configPath() = %q, want %q", got, tt.want)
			}
			if !strings.HasSuffix(got, ".toml") {
				t.Errorf("configPath() = %q, want a .toml file", got)
			}
		})
	}
}
