package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VINYLIB_STORE_BACKEND", "memory")

	cfg := Load()
	if cfg.ListenPort != ":8080" {
		t.Errorf("ListenPort = %q, want :8080", cfg.ListenPort)
	}
	if cfg.StoreTimeout != 3*time.Second {
		t.Errorf("StoreTimeout = %v, want 3s", cfg.StoreTimeout)
	}
	if cfg.MaxConflictRetries != 5 {
		t.Errorf("MaxConflictRetries = %d, want 5", cfg.MaxConflictRetries)
	}
	if cfg.OrphanTTL != 0 {
		t.Errorf("OrphanTTL = %v, orphan collection must be off by default", cfg.OrphanTTL)
	}
	if cfg.LegacyKey != "vinyls" {
		t.Errorf("LegacyKey = %q, want vinyls", cfg.LegacyKey)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v, want [*]", cfg.CORSOrigins)
	}
}

func TestLoadBackendSelection(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantPanic bool
	}{
		{
			name: "badger needs no redis",
			env:  map[string]string{"VINYLIB_STORE_BACKEND": "Badger"},
		},
		{
			name:      "redis requires an address",
			env:       map[string]string{"VINYLIB_STORE_BACKEND": "redis"},
			wantPanic: true,
		},
		{
			name: "redis with address",
			env: map[string]string{
				"VINYLIB_STORE_BACKEND": "redis",
				"VINYLIB_REDIS_ADDR":    "localhost:6379",
				"VINYLIB_REDIS_DB":      "2",
			},
		},
		{
			name: "redis password required but missing",
			env: map[string]string{
				"VINYLIB_STORE_BACKEND":           "redis",
				"VINYLIB_REDIS_ADDR":              "localhost:6379",
				"VINYLIB_REDIS_PASSWORD_REQUIRED": "true",
			},
			wantPanic: true,
		},
		{
			name:      "unknown backend",
			env:       map[string]string{"VINYLIB_STORE_BACKEND": "etcd"},
			wantPanic: true,
		},
		{
			name: "negative retries",
			env: map[string]string{
				"VINYLIB_STORE_BACKEND":              "memory",
				"VINYLIB_STORE_MAX_CONFLICT_RETRIES": "-1",
			},
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			defer func() {
				r := recover()
				if tt.wantPanic && r == nil {
					t.Errorf("Load() should have panicked")
				}
				if !tt.wantPanic && r != nil {
					t.Errorf("Load() panicked: %v", r)
				}
			}()

			cfg := Load()
			if cfg.StoreBackend == BackendRedis && cfg.RedisDB != 2 {
				t.Errorf("RedisDB = %d, want 2", cfg.RedisDB)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	t.Setenv("VINYLIB_STORE_BACKEND", "memory")
	t.Setenv("VINYLIB_ADMIN_USERS", "alice, 'bob'")

	cfg := Load()
	for _, id := range []string{"alice", "bob"} {
		if !cfg.IsAdmin(id) {
			t.Errorf("IsAdmin(%q) = false, want true", id)
		}
	}
	if cfg.IsAdmin("carol") {
		t.Errorf("IsAdmin(carol) = true, want false")
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected []string
	}{
		{name: "empty", value: "", expected: nil},
		{name: "single", value: "10.0.0.0/8", expected: []string{"10.0.0.0/8"}},
		{name: "spaces and quotes", value: ` "a" , b ,, 'c'`, expected: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitAndTrim(tt.value)
			if len(result) != len(tt.expected) {
				t.Fatalf("splitAndTrim() = %v, want %v", result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("splitAndTrim()[%d] = %v, want %v", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{name: "valid duration", value: "5s", def: time.Second, expected: 5 * time.Second},
		{name: "invalid duration uses default", value: "invalid", def: 10 * time.Second, expected: 10 * time.Second},
		{name: "missing variable uses default", value: "", def: 15 * time.Second, expected: 15 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			if got := mustDuration("TEST_DURATION", tt.def); got != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMustBoolAndInt(t *testing.T) {
	t.Setenv("TEST_BOOL", "false")
	t.Setenv("TEST_BOOL_INVALID", "maybe")
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_INT_INVALID", "forty")

	if mustBool("TEST_BOOL", true) {
		t.Errorf("mustBool(TEST_BOOL) = true, want false")
	}
	if !mustBool("TEST_BOOL_INVALID", true) {
		t.Errorf("mustBool(TEST_BOOL_INVALID) should fall back to default")
	}
	if got := getenvInt("TEST_INT", 1); got != 42 {
		t.Errorf("getenvInt(TEST_INT) = %d, want 42", got)
	}
	if got := getenvInt("TEST_INT_INVALID", 7); got != 7 {
		t.Errorf("getenvInt(TEST_INT_INVALID) = %d, want 7", got)
	}
}
