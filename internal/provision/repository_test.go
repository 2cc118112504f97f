package provision

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

func TestBuildSourcesLine(t *testing.T) {
	tests := []struct {
		arch     string
		codename string
		want     string
	}{
		{
			arch:     "amd64",
			codename: "jammy",
			want:     "deb [arch=amd64 signed-by=/etc/apt/keyrings/docker.asc] https://download.docker.com/linux/ubuntu jammy stable",
		},
		{
			arch:     "arm64",
			codename: "noble",
			want:     "deb [arch=arm64 signed-by=/etc/apt/keyrings/docker.asc] https://download.docker.com/linux/ubuntu noble stable",
		},
	}
	for _, tt := range tests {
		got := BuildSourcesLine(tt.arch, "/etc/apt/keyrings/docker.asc",
			"https://download.docker.com/linux/ubuntu", tt.codename, "stable")
		if got != tt.want {
			t.Errorf("BuildSourcesLine(%s, %s):\n got: %s\nwant: %s", tt.arch, tt.codename, got, tt.want)
		}
	}
}

func TestBuildSourcesLineFullySubstituted(t *testing.T) {
	// APT performs no variable expansion, so the persisted line must not
	// carry shell-style placeholders.
	line := BuildSourcesLine("amd64", "/etc/apt/keyrings/docker.asc",
		"https://download.docker.com/linux/ubuntu", "jammy", "stable")
	if strings.ContainsAny(line, "$`") {
		t.Errorf("source line contains unresolved placeholder tokens: %s", line)
	}
}

func generateArmoredKey(t *testing.T) (string, []byte) {
	t.Helper()

	entity, err := openpgp.NewEntity("Test Key", "", "test@example.com", &packet.Config{
		Algorithm: packet.PubKeyAlgoEdDSA,
	})
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	var buf strings.Builder
	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("armor encode: %v", err)
	}
	if err := entity.Serialize(w); err != nil {
		t.Fatalf("serialize key: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close armor writer: %v", err)
	}

	return buf.String(), entity.PrimaryKey.Fingerprint
}

func TestKeyFingerprint(t *testing.T) {
	armored, fingerprint := generateArmoredKey(t)

	path := filepath.Join(t.TempDir(), "key.asc")
	if err := os.WriteFile(path, []byte(armored), 0644); err != nil {
		t.Fatalf("write key: %v", err)
	}

	got, err := KeyFingerprint(path)
	if err != nil {
		t.Fatalf("KeyFingerprint failed: %v", err)
	}
	if want := fmt.Sprintf("%X", fingerprint); got != want {
		t.Errorf("fingerprint mismatch: got %s, want %s", got, want)
	}
}

func TestKeyFingerprintRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.asc")
	if err := os.WriteFile(path, []byte("<html>not a key</html>"), 0644); err != nil {
		t.Fatalf("write garbage: %v", err)
	}

	if _, err := KeyFingerprint(path); err == nil {
		t.Fatal("expected parse failure for garbage key data")
	}
}

func TestKeyFingerprintMissingFile(t *testing.T) {
	if _, err := KeyFingerprint("/nonexistent/key.asc"); err == nil {
		t.Fatal("expected error for missing key file")
	}
}
