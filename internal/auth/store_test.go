package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestFileStoreLoadMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))

	token, err := store.Load()
	if err != nil {
		t.Fatalf("Load() on missing file should not error, got %v", err)
	}
	if token != nil {
		t.Errorf("Load() on missing file = %+v, want nil", token)
	}
}

func TestFileStoreSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	store := NewFileStore(path)

	want := &oauth2.Token{
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		TokenType:    "Bearer",
		Expiry:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat credential file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("credential file permissions = %o, want 0600", perm)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if !got.Expiry.Equal(want.Expiry) {
		t.Errorf("Expiry = %v, want %v", got.Expiry, want.Expiry)
	}
}

func TestFileStoreSaveReplacesRecord(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))

	if err := store.Save(&oauth2.Token{AccessToken: "first"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Save(&oauth2.Token{AccessToken: "second"}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "second" {
		t.Errorf("AccessToken = %q, want %q", got.AccessToken, "second")
	}
}

func TestFileStoreSaveNilToken(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	if err := store.Save(nil); err == nil {
		t.Error("Save(nil) should fail")
	}
}

func TestFileStoreLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"corrupt JSON", "{not json", "failed to parse"},
		{"empty object", "{}", "no access token"},
		{"missing access token", `{"refresh_token":"r"}`, "no access token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "credentials.json")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}

			_, err := NewFileStore(path).Load()
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestFileStorePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if got := NewFileStore(path).Path(); got != path {
		t.Errorf("Path() = %q, want %q", got, path)
	}
}

func TestDefaultStorePath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	path, err := DefaultStorePath()
	if err != nil {
		t.Fatalf("DefaultStorePath() error = %v", err)
	}
	if filepath.Base(path) != DefaultStoreFileName {
		t.Errorf("path %q should end in %q", path, DefaultStoreFileName)
	}
	if filepath.Base(filepath.Dir(path)) != "webshelf" {
		t.Errorf("path %q should live in a webshelf directory", path)
	}
}
