package shell

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/open-edge-platform/docker-provisioner/internal/utils/logger"
)

// The exec entry points are variables so tests can swap in fakes and drive
// the pipeline without touching the host.
var (
	ExecCmd           = execCmd
	ExecCmdSilent     = execCmdSilent
	ExecCmdWithStream = execCmdWithStream
	ExecCmdWithInput  = execCmdWithInput
	IsCommandExist    = isCommandExist
)

// euid is overridable so sudo-prefix behavior can be tested from any account.
var euid = os.Geteuid

// GetOSEnvirons returns the system environment variables
func GetOSEnvirons() map[string]string {
	environ := make(map[string]string)
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			environ[parts[0]] = parts[1]
		}
	}
	return environ
}

// GetOSProxyEnvirons retrieves HTTP and HTTPS proxy environment variables
func GetOSProxyEnvirons() map[string]string {
	osEnv := GetOSEnvirons()
	proxyEnv := make(map[string]string)

	for key, value := range osEnv {
		if strings.Contains(strings.ToLower(key), "http_proxy") ||
			strings.Contains(strings.ToLower(key), "https_proxy") {
			proxyEnv[key] = value
		}
	}

	return proxyEnv
}

// getShell returns the preferred shell, falling back to /bin/sh if bash is not available
func getShell() string {
	shells := []string{"/bin/bash", "/usr/bin/bash", "/bin/sh"}
	for _, shell := range shells {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
	}
	return "/bin/sh"
}

func isCommandExist(cmd string) bool {
	shell := getShell()
	output, _ := exec.Command(shell, "-c", "command -v "+cmd).Output()
	return len(bytes.TrimSpace(output)) > 0
}

// GetFullCmdStr prepares a command string with necessary prefixes.
// Commands that need elevation are prefixed with sudo unless the process
// already runs as root; proxy environment variables are carried across the
// sudo boundary since apt and curl need them.
func GetFullCmdStr(cmdStr string, sudo bool, envVal []string) string {
	log := logger.Logger()
	envValStr := ""
	for _, env := range envVal {
		envValStr += env + " "
	}

	if sudo && euid() != 0 {
		proxyEnv := GetOSProxyEnvirons()
		for key, value := range proxyEnv {
			envValStr += key + "=" + value + " "
		}

		log.Debugf("Exec: [sudo %s]", cmdStr)
		return "sudo " + envValStr + cmdStr
	}

	log.Debugf("Exec: [%s]", cmdStr)
	return envValStr + cmdStr
}

// execCmd executes a command and returns its combined output.
func execCmd(cmdStr string, sudo bool, envVal []string) (string, error) {
	log := logger.Logger()
	fullCmdStr := GetFullCmdStr(cmdStr, sudo, envVal)

	shell := getShell()
	cmd := exec.Command(shell, "-c", fullCmdStr)
	output, err := cmd.CombinedOutput()
	outputStr := string(output)

	if err != nil {
		if outputStr != "" {
			log.Infof(outputStr)
		}
		return outputStr, fmt.Errorf("failed to exec %s: %w", fullCmdStr, err)
	}
	if outputStr != "" {
		log.Debugf(outputStr)
	}
	return outputStr, nil
}

// execCmdSilent is execCmd without output logging on failure, for probing
// commands whose non-zero exit is an expected answer rather than an error.
func execCmdSilent(cmdStr string, sudo bool, envVal []string) (string, error) {
	fullCmdStr := GetFullCmdStr(cmdStr, sudo, envVal)

	shell := getShell()
	cmd := exec.Command(shell, "-c", fullCmdStr)
	output, err := cmd.CombinedOutput()
	outputStr := string(output)

	if err != nil {
		return outputStr, fmt.Errorf("failed to exec %s: %w", fullCmdStr, err)
	}
	return outputStr, nil
}

// execCmdWithStream executes a command and streams its output line by line
// through the logger, for long-running commands like apt-get install.
func execCmdWithStream(cmdStr string, sudo bool, envVal []string) (string, error) {
	var outputStr string
	log := logger.Logger()

	fullCmdStr := GetFullCmdStr(cmdStr, sudo, envVal)

	shell := getShell()
	cmd := exec.Command(shell, "-c", fullCmdStr)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stdout pipe for command %s: %w", fullCmdStr, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stderr pipe for command %s: %w", fullCmdStr, err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start command %s: %w", fullCmdStr, err)
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			str := scanner.Text()
			if str != "" {
				outputStr += str + "\n"
				log.Infof(str)
			}
		}
	}()

	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			str := scanner.Text()
			if str != "" {
				log.Infof(str)
			}
		}
	}()

	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return outputStr, fmt.Errorf("failed to wait for command %s: %w", fullCmdStr, err)
	}

	return outputStr, nil
}

// execCmdWithInput executes a command with the given string on stdin.
func execCmdWithInput(inputStr string, cmdStr string, sudo bool, envVal []string) (string, error) {
	log := logger.Logger()
	fullCmdStr := GetFullCmdStr(cmdStr, sudo, envVal)

	shell := getShell()
	cmd := exec.Command(shell, "-c", fullCmdStr)
	cmd.Stdin = strings.NewReader(inputStr)

	output, err := cmd.CombinedOutput()
	outputStr := string(output)

	if err != nil {
		if outputStr != "" {
			log.Infof(outputStr)
		}
		return outputStr, fmt.Errorf("failed to exec %s: %w", fullCmdStr, err)
	}
	if outputStr != "" {
		log.Debugf(outputStr)
	}
	return outputStr, nil
}
