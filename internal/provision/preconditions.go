package provision

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/open-edge-platform/docker-provisioner/internal/utils/logger"
	"github.com/open-edge-platform/docker-provisioner/internal/utils/shell"
)

// geteuid is overridable so privilege gating can be tested from any account.
var geteuid = os.Geteuid

// CheckPreconditions confirms the process can elevate and that the host runs
// the supported distribution. It strictly gates every mutating step.
func (p *Provisioner) CheckPreconditions() error {
	log := logger.Logger()
	if geteuid() != 0 {
		if !shell.IsCommandExist("sudo") {
			return fmt.Errorf("not running as root and sudo is not available: %w", ErrInsufficientPrivilege)
		}
		if _, err := shell.ExecCmdSilent("sudo -n true", false, nil); err != nil {
			return fmt.Errorf("passwordless sudo is not available: %w", ErrInsufficientPrivilege)
		}
	}

	if !p.host.IsSupported(p.cfg.Distribution) {
		return fmt.Errorf("detected distribution %q, this tool supports %q: %w",
			p.host.ID, p.cfg.Distribution, ErrWrongDistribution)
	}

	log.Infof("Preconditions satisfied")
	return nil
}

// CheckExistingInstallation reports whether the pipeline should proceed.
// When the target package is already present the user is asked to confirm;
// any answer other than y is a decline (fail-closed).
func (p *Provisioner) CheckExistingInstallation() (bool, error) {
	log := logger.Logger()
	if !p.dockerInstalled() {
		return true, nil
	}

	log.Warnf("Docker is already installed on this host")
	if p.opts.AssumeYes {
		log.Infof("Proceeding anyway (--yes)")
		return true, nil
	}

	prompt := color.New(color.FgYellow)
	if _, err := prompt.Fprint(p.opts.PromptOut, "Docker is already installed. Reinstall/upgrade anyway? [y/N]: "); err != nil {
		return false, fmt.Errorf("writing confirmation prompt: %w", err)
	}

	line, err := bufio.NewReader(p.opts.Prompt).ReadString('\n')
	if err != nil && line == "" {
		// No answer at all (EOF, closed stdin) counts as a decline.
		log.Infof("No confirmation received, leaving host untouched")
		return false, nil
	}

	if strings.EqualFold(strings.TrimSpace(line), "y") {
		return true, nil
	}

	log.Infof("User declined, leaving host untouched")
	return false, nil
}

func (p *Provisioner) dockerInstalled() bool {
	out, err := shell.ExecCmdSilent("dpkg-query -W -f='${Status}' docker-ce", false, nil)
	if err == nil && strings.Contains(out, "install ok installed") {
		return true
	}
	return shell.IsCommandExist("docker")
}
