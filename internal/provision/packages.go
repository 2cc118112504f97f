package provision

import (
	"fmt"
	"strings"
	"time"

	"github.com/open-edge-platform/docker-provisioner/internal/utils/logger"
	"github.com/open-edge-platform/docker-provisioner/internal/utils/shell"
)

// RemoveConflictingPackages removes prior container runtime packages that
// conflict with docker-ce. Removal failures are swallowed: an absent package
// is the expected case, not an error.
func (p *Provisioner) RemoveConflictingPackages() error {
	log := logger.Logger()
	for _, pkg := range p.cfg.Packages.Conflicting {
		if _, err := shell.ExecCmdSilent("apt-get remove -y "+pkg, true, aptEnv); err != nil {
			log.Debugf("Package %s not removed (likely not installed): %v", pkg, err)
		} else {
			log.Infof("Removed conflicting package %s", pkg)
		}
	}
	return nil
}

// InstallPackages refreshes the package index and installs the target set.
// The index refresh hits the newly registered repository, so it is retried.
func (p *Provisioner) InstallPackages() error {
	log := logger.Logger()
	attempts := p.cfg.Retry.Attempts
	backoff := time.Duration(p.cfg.Retry.BackoffSeconds) * time.Second

	if err := Retry(attempts, backoff, "package index refresh", func() error {
		_, err := shell.ExecCmdWithStream("apt-get update", true, aptEnv)
		return err
	}); err != nil {
		return err
	}

	packages := strings.Join(p.cfg.Packages.Install, " ")
	log.Infof("Installing: %s", packages)
	if _, err := shell.ExecCmdWithStream("apt-get install -y "+packages, true, aptEnv); err != nil {
		return fmt.Errorf("installing packages: %w", err)
	}
	return nil
}
