package credentials

import (
	"errors"
	"testing"

	"github.com/seclab-kr/blacklist-collector/common"
)

func TestEnvStoreLookup(t *testing.T) {
	t.Setenv("REGTECH_ID", "analyst")
	t.Setenv("REGTECH_PW", "s3cret")

	store := NewEnvStore()
	creds, err := store.Lookup("regtech")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if creds.Username != "analyst" || creds.Password != "s3cret" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestEnvStoreAliasFallback(t *testing.T) {
	t.Setenv("SECUDIUM_USERNAME", "soc-team")
	t.Setenv("SECUDIUM_PASSWORD", "hunter2")

	creds, err := NewEnvStore().Lookup("SECUDIUM")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if creds.Username != "soc-team" || creds.Password != "hunter2" {
		t.Errorf("creds = %+v", creds)
	}
}

func TestEnvStoreMissing(t *testing.T) {
	t.Setenv("REGTECH_ID", "analyst")
	// No password variable set in any form.

	_, err := NewEnvStore().Lookup("NOSUCHSOURCE")
	if !errors.Is(err, common.ErrInvalidConfig) {
		t.Errorf("missing id: err = %v, want ErrInvalidConfig", err)
	}
}

func TestStaticStore(t *testing.T) {
	store := NewStaticStore(map[string]Credentials{
		"regtech": {Username: "u", Password: "p"},
	})

	creds, err := store.Lookup("REGTECH")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if creds.Username != "u" {
		t.Errorf("Username = %q, want %q", creds.Username, "u")
	}

	if _, err := store.Lookup("SECUDIUM"); !errors.Is(err, common.ErrInvalidConfig) {
		t.Errorf("unknown source: err = %v, want ErrInvalidConfig", err)
	}
}
