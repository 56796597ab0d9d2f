// Copyright 2026 The Concord Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromBytesZerosSource(t *testing.T) {
	source := []byte("hunter2")
	buffer, err := FromBytes(source)
	if err != nil {
		t.Fatalf("FromBytes failed: %v", err)
	}
	defer buffer.Close()

	if buffer.String() != "hunter2" {
		t.Errorf("unexpected contents: %q", buffer.String())
	}
	for index, value := range source {
		if value != 0 {
			t.Fatalf("source byte %d not zeroed: %d", index, value)
		}
	}
}

func TestFromBytesEmpty(t *testing.T) {
	if _, err := FromBytes(nil); err == nil {
		t.Fatal("expected error for empty source")
	}
	if _, err := FromString(""); err == nil {
		t.Fatal("expected error for empty string")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	buffer, err := FromString("token-value")
	if err != nil {
		t.Fatalf("FromString failed: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if buffer.Len() != 0 {
		t.Errorf("Len after Close = %d, want 0", buffer.Len())
	}
}

func TestAccessAfterClosePanics(t *testing.T) {
	buffer, err := FromString("token-value")
	if err != nil {
		t.Fatalf("FromString failed: %v", err)
	}
	buffer.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic reading closed buffer")
		}
	}()
	_ = buffer.String()
}

func TestReadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  mfa.abc123  \n"), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	buffer, err := ReadFromPath(path)
	if err != nil {
		t.Fatalf("ReadFromPath failed: %v", err)
	}
	defer buffer.Close()

	if buffer.String() != "mfa.abc123" {
		t.Errorf("unexpected contents: %q", buffer.String())
	}
}

func TestReadFromPathEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("   \n"), 0600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := ReadFromPath(path); err == nil {
		t.Fatal("expected error for whitespace-only file")
	}
}
