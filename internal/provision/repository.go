package provision

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/open-edge-platform/docker-provisioner/internal/utils/logger"
	"github.com/open-edge-platform/docker-provisioner/internal/utils/network"
	"github.com/open-edge-platform/docker-provisioner/internal/utils/shell"
)

// downloadFile is a variable so repository registration can be tested
// without network access.
var downloadFile = network.DownloadFile

// aptEnv keeps apt from stopping on configuration prompts.
var aptEnv = []string{"DEBIAN_FRONTEND=noninteractive"}

// BuildSourcesLine renders the single APT source line for the Docker
// repository. Every field is substituted here: APT does not expand variables,
// so the persisted line must carry only literal values.
func BuildSourcesLine(arch, keyringPath, repoURL, codename, channel string) string {
	return fmt.Sprintf("deb [arch=%s signed-by=%s] %s %s %s",
		arch, keyringPath, repoURL, codename, channel)
}

// RegisterRepository installs the prerequisites, stores Docker's signing key
// in the keyring directory and writes the APT source definition. The key
// download and the index refresh are the network-dependent parts and are
// retried; everything else fails the pipeline immediately.
func (p *Provisioner) RegisterRepository() error {
	log := logger.Logger()
	attempts := p.cfg.Retry.Attempts
	backoff := time.Duration(p.cfg.Retry.BackoffSeconds) * time.Second
	repo := p.cfg.Repository

	if err := Retry(attempts, backoff, "package index refresh", func() error {
		_, err := shell.ExecCmdWithStream("apt-get update", true, aptEnv)
		return err
	}); err != nil {
		return err
	}

	prereqs := strings.Join(p.cfg.Packages.Prerequisites, " ")
	if _, err := shell.ExecCmdWithStream("apt-get install -y "+prereqs, true, aptEnv); err != nil {
		return fmt.Errorf("installing prerequisites: %w", err)
	}

	keyringDir := filepath.Dir(repo.KeyringPath)
	if _, err := shell.ExecCmd("install -m 0755 -d "+keyringDir, true, nil); err != nil {
		return fmt.Errorf("creating keyring directory %s: %w", keyringDir, err)
	}

	tmp, err := os.CreateTemp("", "docker-signing-key-*.asc")
	if err != nil {
		return fmt.Errorf("staging signing key: %w", err)
	}
	tmpKey := tmp.Name()
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("staging signing key: %w", err)
	}
	defer os.Remove(tmpKey)

	if err := Retry(attempts, backoff, "signing key download", func() error {
		return downloadFile(p.httpClient, repo.KeyURL, tmpKey, 0600)
	}); err != nil {
		return err
	}

	fingerprint, err := KeyFingerprint(tmpKey)
	if err != nil {
		return fmt.Errorf("inspecting downloaded signing key: %w", err)
	}
	log.Infof("Signing key fingerprint: %s", fingerprint)

	if _, err := shell.ExecCmd(fmt.Sprintf("install -m 0644 %s %s", tmpKey, repo.KeyringPath), true, nil); err != nil {
		return fmt.Errorf("installing signing key to %s: %w", repo.KeyringPath, err)
	}

	// The copy must have read the same bytes that passed validation.
	recheck, err := KeyFingerprint(tmpKey)
	if err != nil {
		return fmt.Errorf("re-reading staged signing key: %w", err)
	}
	if recheck != fingerprint {
		return fmt.Errorf("staged signing key changed during install, validated fingerprint was %s", fingerprint)
	}

	if p.arch == "" || p.codename == "" {
		return fmt.Errorf("source line inputs not resolved (arch=%q codename=%q)", p.arch, p.codename)
	}
	line := BuildSourcesLine(p.arch, repo.KeyringPath, repo.URL, p.codename, repo.Channel)
	log.Infof("Registering APT source: %s", line)

	if _, err := shell.ExecCmdWithInput(line+"\n", "tee "+repo.SourcesPath, true, nil); err != nil {
		return fmt.Errorf("writing APT source %s: %w", repo.SourcesPath, err)
	}

	return nil
}

// KeyFingerprint parses an ASCII-armored OpenPGP key file and returns the
// primary key fingerprint. A key that does not parse is rejected so a
// corrupted download never lands in the trust store.
func KeyFingerprint(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	entities, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parsing armored key: %w", err)
	}
	if len(entities) == 0 {
		return "", fmt.Errorf("no keys found in %s", path)
	}

	return fmt.Sprintf("%X", entities[0].PrimaryKey.Fingerprint), nil
}
