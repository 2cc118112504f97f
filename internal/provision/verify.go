package provision

import (
	"fmt"
	"strings"

	"github.com/open-edge-platform/docker-provisioner/internal/utils/logger"
	"github.com/open-edge-platform/docker-provisioner/internal/utils/shell"
)

// VerifyInstallation confirms the docker command resolves and reports its
// version, then runs a disposable hello-world container as a smoke test.
// A failed smoke test is a warning, not a fatal error: the install itself
// succeeded and the daemon may just need a moment.
func (p *Provisioner) VerifyInstallation() error {
	log := logger.Logger()
	if !shell.IsCommandExist("docker") {
		return fmt.Errorf("docker command not found after installation")
	}

	out, err := shell.ExecCmdSilent("docker --version", false, nil)
	if err != nil {
		return fmt.Errorf("querying docker version: %w", err)
	}
	log.Infof("Installed: %s", strings.TrimSpace(out))

	if p.opts.SkipSmokeTest {
		log.Infof("Skipping smoke test")
		return nil
	}

	if _, err := shell.ExecCmd("docker run --rm hello-world", true, nil); err != nil {
		log.Warnf("Smoke test failed: %v", err)
		log.Warnf("Docker is installed but could not run a container yet, check 'systemctl status %s'", p.cfg.Service.Name)
		return nil
	}

	log.Infof("Smoke test passed")
	return nil
}
