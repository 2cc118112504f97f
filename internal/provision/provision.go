package provision

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/open-edge-platform/docker-provisioner/internal/config"
	"github.com/open-edge-platform/docker-provisioner/internal/hostinfo"
	"github.com/open-edge-platform/docker-provisioner/internal/utils/logger"
	"github.com/open-edge-platform/docker-provisioner/internal/utils/network"
)

// Status is the terminal state of a provisioning run.
type Status int

const (
	StatusFailed Status = iota
	StatusSuccess
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusAborted:
		return "aborted by user"
	default:
		return "failed"
	}
}

// Options carries the per-invocation knobs from the CLI.
type Options struct {
	// AssumeYes skips the existing-installation confirmation prompt.
	AssumeYes bool
	// SkipSmokeTest skips the hello-world verification run.
	SkipSmokeTest bool
	// User overrides the account granted docker group access.
	User string
	// Prompt is where the confirmation answer is read from (stdin if nil).
	Prompt io.Reader
	// PromptOut is where the confirmation question is written (stdout if nil).
	PromptOut io.Writer
}

// Provisioner runs the linear install pipeline against the host.
type Provisioner struct {
	cfg  *config.Config
	opts Options

	httpClient *http.Client

	host     *hostinfo.HostInfo
	codename string
	arch     string
}

// New builds a Provisioner around an immutable configuration.
func New(cfg *config.Config, opts Options) *Provisioner {
	if opts.Prompt == nil {
		opts.Prompt = os.Stdin
	}
	if opts.PromptOut == nil {
		opts.PromptOut = os.Stdout
	}
	return &Provisioner{
		cfg:        cfg,
		opts:       opts,
		httpClient: network.NewSecureHTTPClient(),
	}
}

// Run executes the pipeline to completion. The terminal status and the log
// file location are always reported, on every exit path.
func (p *Provisioner) Run() (status Status, err error) {
	log := logger.Logger()
	defer func() {
		switch status {
		case StatusSuccess:
			log.Infof("Provisioning finished: %s", status)
		case StatusAborted:
			log.Infof("Provisioning %s, host left untouched", status)
		default:
			log.Errorf("Provisioning %s: %v (exit code %d)", status, err, ExitCode(err))
		}
		if path := logger.FilePath(); path != "" {
			log.Infof("Full log: %s", path)
		}
	}()

	if err = p.ResolveIdentity(); err != nil {
		return StatusFailed, err
	}
	if err = p.CheckPreconditions(); err != nil {
		return StatusFailed, err
	}

	proceed, err := p.CheckExistingInstallation()
	if err != nil {
		return StatusFailed, err
	}
	if !proceed {
		return StatusAborted, nil
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"removing conflicting packages", p.RemoveConflictingPackages},
		{"registering Docker repository", p.RegisterRepository},
		{"installing Docker packages", p.InstallPackages},
		{"activating docker service", p.ActivateService},
		{"granting user access", p.GrantUserAccess},
		{"verifying installation", p.VerifyInstallation},
	}

	bar := progressbar.NewOptions(len(steps),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	for _, step := range steps {
		bar.Describe(step.name)
		if err = step.run(); err != nil {
			return StatusFailed, fmt.Errorf("%s: %w", step.name, err)
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	return StatusSuccess, nil
}

// Preflight resolves the host identity and verifies the preconditions
// without mutating anything, then reports what install would do.
func (p *Provisioner) Preflight() error {
	log := logger.Logger()
	if err := p.ResolveIdentity(); err != nil {
		return err
	}
	if err := p.CheckPreconditions(); err != nil {
		return err
	}

	repo := p.cfg.Repository
	log.Infof("Would register: %s", BuildSourcesLine(p.arch, repo.KeyringPath, repo.URL, p.codename, repo.Channel))
	log.Infof("Would install: %s", strings.Join(p.cfg.Packages.Install, ", "))
	return nil
}

// ResolveIdentity detects the distribution, release codename and CPU
// architecture. It must succeed before any installation step runs.
func (p *Provisioner) ResolveIdentity() error {
	log := logger.Logger()
	host, err := hostinfo.Detect()
	if err != nil {
		return err
	}
	p.host = host

	codename, err := hostinfo.ResolveCodename()
	if err != nil {
		return err
	}
	p.codename = codename

	arch, err := hostinfo.Architecture()
	if err != nil {
		return err
	}
	p.arch = arch

	log.Infof("Target: %s %s (%s, %s)", host.Name, host.Version, codename, arch)
	return nil
}
