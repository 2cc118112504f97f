package hostinfo

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/open-edge-platform/docker-provisioner/internal/utils/logger"
	"github.com/open-edge-platform/docker-provisioner/internal/utils/shell"
)

// OsReleaseFile is a variable so tests can point resolution at a fixture.
var OsReleaseFile = "/etc/os-release"

// ErrUnsupportedOS is returned when no resolution method can identify the
// host as a supported release.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// ltsCodenames is the last-resort lookup for hosts where neither lsb_release
// nor os-release carries a codename.
var ltsCodenames = map[string]string{
	"16.04": "xenial",
	"18.04": "bionic",
	"20.04": "focal",
	"22.04": "jammy",
	"24.04": "noble",
}

// HostInfo describes the detected distribution identity.
type HostInfo struct {
	Name    string   // e.g. "Ubuntu"
	Version string   // e.g. "22.04"
	ID      string   // e.g. "ubuntu"
	IDLike  []string // e.g. ["debian"]
}

// IsSupported reports whether the host matches the wanted distribution ID,
// either directly or through ID_LIKE.
func (h *HostInfo) IsSupported(id string) bool {
	id = strings.ToLower(id)
	if h.ID == id {
		return true
	}
	for _, like := range h.IDLike {
		if strings.ToLower(like) == id {
			return true
		}
	}
	return false
}

// Detect reads the distribution identity from /etc/os-release, falling back
// to lsb_release when the file is missing.
func Detect() (*HostInfo, error) {
	log := logger.Logger()
	info := &HostInfo{}

	fields, err := parseOsRelease()
	if err == nil {
		info.Name = fields["NAME"]
		info.Version = fields["VERSION_ID"]
		info.ID = strings.ToLower(fields["ID"])
		info.IDLike = strings.Fields(strings.ToLower(fields["ID_LIKE"]))
		log.Infof("Detected OS: %s %s (ID: %s)", info.Name, info.Version, info.ID)
		return info, nil
	}
	log.Debugf("Cannot read %s: %v, trying lsb_release", OsReleaseFile, err)

	if shell.IsCommandExist("lsb_release") {
		name, nerr := shell.ExecCmdSilent("lsb_release -si", false, nil)
		version, verr := shell.ExecCmdSilent("lsb_release -sr", false, nil)
		if nerr == nil && verr == nil && strings.TrimSpace(name) != "" {
			info.Name = strings.TrimSpace(name)
			info.Version = strings.TrimSpace(version)
			info.ID = strings.ToLower(info.Name)
			log.Infof("Detected OS: %s %s (ID: %s)", info.Name, info.Version, info.ID)
			return info, nil
		}
	}

	return nil, fmt.Errorf("detecting host OS: %w", ErrUnsupportedOS)
}

// ResolveCodename resolves the release codename needed to build the APT
// source line. Layered fallback: lsb_release, then os-release, then the
// static LTS table. lsb_release may be absent on minimal installs, so its
// absence is not an error.
func ResolveCodename() (string, error) {
	log := logger.Logger()
	if shell.IsCommandExist("lsb_release") {
		output, err := shell.ExecCmdSilent("lsb_release -cs", false, nil)
		if err == nil {
			if codename := strings.TrimSpace(output); codename != "" {
				log.Debugf("Resolved codename %q via lsb_release", codename)
				return codename, nil
			}
		}
	}

	fields, err := parseOsRelease()
	if err == nil {
		for _, key := range []string{"VERSION_CODENAME", "UBUNTU_CODENAME"} {
			if codename := fields[key]; codename != "" {
				log.Debugf("Resolved codename %q via %s in %s", codename, key, OsReleaseFile)
				return codename, nil
			}
		}
		if codename, ok := ltsCodenames[fields["VERSION_ID"]]; ok {
			log.Debugf("Resolved codename %q via LTS version table", codename)
			return codename, nil
		}
	}

	return "", fmt.Errorf("resolving release codename: %w", ErrUnsupportedOS)
}

// Architecture returns the Debian architecture tag used in APT source lines.
func Architecture() (string, error) {
	if shell.IsCommandExist("dpkg") {
		output, err := shell.ExecCmdSilent("dpkg --print-architecture", false, nil)
		if err == nil {
			if arch := strings.TrimSpace(output); arch != "" {
				return arch, nil
			}
		}
	}

	output, err := shell.ExecCmdSilent("uname -m", false, nil)
	if err != nil {
		return "", fmt.Errorf("detecting architecture: %w", err)
	}

	switch arch := strings.TrimSpace(output); arch {
	case "x86_64":
		return "amd64", nil
	case "aarch64":
		return "arm64", nil
	case "armv7l":
		return "armhf", nil
	case "ppc64le", "s390x", "riscv64":
		return arch, nil
	default:
		return "", fmt.Errorf("unsupported machine architecture %q: %w", arch, ErrUnsupportedOS)
	}
}

func parseOsRelease() (map[string]string, error) {
	file, err := os.Open(OsReleaseFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	fields := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"")
		fields[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return fields, nil
}
