package provision

import (
	"fmt"
	"os"

	"github.com/open-edge-platform/docker-provisioner/internal/utils/logger"
	"github.com/open-edge-platform/docker-provisioner/internal/utils/shell"
)

// lookupEnv is overridable so user resolution can be tested.
var lookupEnv = os.LookupEnv

// ActivateService starts the docker service and enables it so it survives
// reboots.
func (p *Provisioner) ActivateService() error {
	log := logger.Logger()
	svc := p.cfg.Service.Name

	if _, err := shell.ExecCmd("systemctl daemon-reload", true, nil); err != nil {
		return fmt.Errorf("reloading systemd units: %w", err)
	}
	if _, err := shell.ExecCmd("systemctl enable "+svc, true, nil); err != nil {
		return fmt.Errorf("enabling %s service: %w", svc, err)
	}
	if _, err := shell.ExecCmd("systemctl start "+svc, true, nil); err != nil {
		return fmt.Errorf("starting %s service: %w", svc, err)
	}

	log.Infof("Service %s started and enabled", svc)
	return nil
}

// GrantUserAccess adds the invoking user to the docker group so the daemon
// can be used without sudo. Running directly as root there is nobody to add.
func (p *Provisioner) GrantUserAccess() error {
	log := logger.Logger()
	group := p.cfg.Service.Group

	user := p.opts.User
	if user == "" {
		if sudoUser, ok := lookupEnv("SUDO_USER"); ok {
			user = sudoUser
		} else if envUser, ok := lookupEnv("USER"); ok {
			user = envUser
		}
	}

	if user == "" || user == "root" {
		log.Infof("Running as root, skipping %s group membership", group)
		return nil
	}

	// The group normally exists after package installation; creation is
	// best-effort for hosts where the postinst did not add it.
	if _, err := shell.ExecCmdSilent("groupadd "+group, true, nil); err != nil {
		log.Debugf("Group %s not created (likely exists): %v", group, err)
	}

	if _, err := shell.ExecCmd(fmt.Sprintf("usermod -aG %s %s", group, user), true, nil); err != nil {
		return fmt.Errorf("adding %s to %s group: %w", user, group, err)
	}

	log.Warnf("User %s added to the %s group. Log out and back in (or run 'newgrp %s') for this to take effect", user, group, group)
	return nil
}
