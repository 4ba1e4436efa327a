package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/provisio-sh/provisio/pkg/config"
	"github.com/provisio-sh/provisio/pkg/errors"
	"github.com/provisio-sh/provisio/pkg/platform"
)

// Catalog returns the ordered provisioning steps. Order is load-bearing:
// the vendor keyring must land before the repository that is signed with
// it, the shell must exist before it becomes the login shell, and the
// package indexes must be fresh before anything installs.
func Catalog() []Step {
	return []Step{
		{
			Name:        "purge-defaults",
			Description: "remove unwanted preinstalled packages",
			Action:      purgeDefaults,
		},
		{
			Name:        "apt-update",
			Description: "refresh apt package indexes",
			Action:      aptUpdate,
			Retryable:   true,
			Critical:    true,
		},
		{
			Name:        "base-packages",
			Description: "install base CLI and developer tooling",
			Action:      installBasePackages,
			Verify:      verifyBasePackages,
			Retryable:   true,
			Critical:    true,
		},
		{
			Name:        "default-shell",
			Description: "install the shell and make it the login shell",
			Check:       shellAlreadyDefault,
			Action:      installDefaultShell,
			Verify:      verifyDefaultShell,
			Critical:    true,
		},
		{
			Name:        "shell-config",
			Description: "write the shell bootstrap file into the user's home",
			Action:      writeShellConfig,
		},
		{
			Name:        "browser-repo-key",
			Description: "install the browser vendor keyring",
			Check:       keyringPresent,
			Action:      fetchBrowserKeyring,
			Retryable:   true,
			Critical:    true,
		},
		{
			Name:        "browser",
			Description: "register the vendor repository and install the browser",
			Check:       browserPresent,
			Action:      installBrowser,
			Verify:      verifyBrowser,
			Retryable:   true,
			Critical:    true,
		},
		{
			Name:        "terminal-emulator",
			Description: "install the terminal emulator",
			Check:       terminalPresent,
			Action:      installTerminal,
			Verify:      verifyTerminal,
			Retryable:   true,
		},
		{
			Name:        "flatpak-remote",
			Description: "register the flatpak remote",
			Check:       flatpakRemotePresent,
			Action:      addFlatpakRemote,
			Verify:      verifyFlatpakRemote,
			Retryable:   true,
			Critical:    true,
		},
		{
			Name:        "flatpak-apps",
			Description: "install flatpak applications",
			Action:      installFlatpakApps,
			Retryable:   true,
		},
		{
			Name:        "desktop-extensions",
			Description: "install GNOME Shell extensions",
			Guard:       func(v platform.Variant) bool { return v == platform.VariantGnome },
			Action:      installDesktopExtensions,
			Retryable:   true,
		},
		{
			Name:        "cli-tool",
			Description: "install the third-party CLI tool",
			Check:       cliToolPresent,
			Action:      installCLITool,
			Verify:      verifyCLITool,
			Retryable:   true,
		},
	}
}

func apt(ctx context.Context, rc *RunContext, args ...string) error {
	full := append([]string{"-y"}, args...)
	return rc.Runner.Run(ctx, "apt-get", full...)
}

func purgeDefaults(ctx context.Context, rc *RunContext) error {
	pkgs := config.PackagesFor(rc.Config.Packages.Purge, rc.Variant.String())
	if len(pkgs) == 0 {
		return nil
	}
	// apt purge of an absent package is a no-op.
	return apt(ctx, rc, append([]string{"purge"}, pkgs...)...)
}

func aptUpdate(ctx context.Context, rc *RunContext) error {
	return apt(ctx, rc, "update")
}

func installBasePackages(ctx context.Context, rc *RunContext) error {
	pkgs := config.PackagesFor(rc.Config.Packages.Install, rc.Variant.String())
	if len(pkgs) == 0 {
		return nil
	}
	return apt(ctx, rc, append([]string{"install"}, pkgs...)...)
}

func verifyBasePackages(ctx context.Context, rc *RunContext) error {
	pkgs := config.PackagesFor(rc.Config.Packages.Install, rc.Variant.String())
	for _, pkg := range pkgs {
		if err := rc.Runner.Run(ctx, "dpkg", "-s", pkg); err != nil {
			return errors.Newf(errors.ErrStepVerify, "package %s is not installed", pkg)
		}
	}
	return nil
}

func shellAlreadyDefault(ctx context.Context, rc *RunContext) (bool, string) {
	out, err := rc.Runner.Output(ctx, "getent", "passwd", rc.Principal.Username)
	if err != nil {
		return false, ""
	}
	fields := strings.Split(out, ":")
	loginShell := fields[len(fields)-1]
	if filepath.Base(loginShell) == rc.Config.Shell.Binary {
		return true, fmt.Sprintf("%s is already the login shell", rc.Config.Shell.Binary)
	}
	return false, ""
}

func installDefaultShell(ctx context.Context, rc *RunContext) error {
	if err := apt(ctx, rc, "install", rc.Config.Shell.Package); err != nil {
		return err
	}
	shellPath, err := rc.Runner.Output(ctx, "which", rc.Config.Shell.Binary)
	if err != nil {
		return err
	}
	return rc.Runner.Run(ctx, "chsh", "-s", shellPath, rc.Principal.Username)
}

func verifyDefaultShell(ctx context.Context, rc *RunContext) error {
	if !rc.Runner.Lookup(rc.Config.Shell.Binary) {
		return errors.Newf(errors.ErrStepVerify, "%s binary not found after install", rc.Config.Shell.Binary)
	}
	if err := rc.Runner.Run(ctx, "grep", "-q", rc.Config.Shell.Binary, "/etc/shells"); err != nil {
		return errors.Newf(errors.ErrStepVerify, "%s is not registered in /etc/shells", rc.Config.Shell.Binary)
	}
	return nil
}

// writeShellConfig stages the rc file in the working directory and installs
// it into the principal's home with the principal's ownership. The content
// itself is opaque configuration data.
func writeShellConfig(ctx context.Context, rc *RunContext) error {
	staged := filepath.Join(rc.WorkDir, "shellrc")
	if err := os.WriteFile(staged, []byte(rc.Config.Shell.RCContent), 0644); err != nil {
		return err
	}

	target := filepath.Join(rc.Principal.Home, rc.Config.Shell.RCFile)
	return rc.Runner.Run(ctx, "install",
		"-o", rc.Principal.Username,
		"-g", fmt.Sprintf("%d", rc.Principal.GID),
		"-m", "0644",
		staged, target)
}

func keyringPresent(ctx context.Context, rc *RunContext) (bool, string) {
	if _, err := os.Stat(rc.Config.Browser.KeyringPath); err == nil {
		return true, "vendor keyring already installed"
	}
	return false, ""
}

func fetchBrowserKeyring(ctx context.Context, rc *RunContext) error {
	staged := filepath.Join(rc.WorkDir, "browser-keyring.gpg")
	if err := rc.Runner.Run(ctx, "curl", "-fsSL", rc.Config.Browser.KeyringURL, "-o", staged); err != nil {
		return err
	}
	return rc.Runner.Run(ctx, "install", "-m", "0644", staged, rc.Config.Browser.KeyringPath)
}

func browserPresent(ctx context.Context, rc *RunContext) (bool, string) {
	if rc.Runner.Lookup(rc.Config.Browser.Binary) {
		return true, rc.Config.Browser.Binary + " already installed"
	}
	return false, ""
}

func installBrowser(ctx context.Context, rc *RunContext) error {
	repoLine := rc.Config.Browser.RepoLine + "\n"
	if err := os.WriteFile(rc.Config.Browser.RepoFile, []byte(repoLine), 0644); err != nil {
		return err
	}
	if err := apt(ctx, rc, "update"); err != nil {
		return err
	}
	return apt(ctx, rc, "install", rc.Config.Browser.Package)
}

func verifyBrowser(ctx context.Context, rc *RunContext) error {
	if !rc.Runner.Lookup(rc.Config.Browser.Binary) {
		return errors.Newf(errors.ErrStepVerify, "%s not available after install", rc.Config.Browser.Binary)
	}
	return nil
}

func terminalPresent(ctx context.Context, rc *RunContext) (bool, string) {
	if rc.Runner.Lookup(rc.Config.Terminal.Binary) {
		return true, rc.Config.Terminal.Binary + " already installed"
	}
	return false, ""
}

func installTerminal(ctx context.Context, rc *RunContext) error {
	return apt(ctx, rc, "install", rc.Config.Terminal.Package)
}

func verifyTerminal(ctx context.Context, rc *RunContext) error {
	if !rc.Runner.Lookup(rc.Config.Terminal.Binary) {
		return errors.Newf(errors.ErrStepVerify, "%s not available after install", rc.Config.Terminal.Binary)
	}
	return nil
}

func flatpakRemotePresent(ctx context.Context, rc *RunContext) (bool, string) {
	out, err := rc.Runner.Output(ctx, "flatpak", "remotes", "--columns=name")
	if err != nil {
		return false, ""
	}
	for _, name := range splitLines(out) {
		if name == rc.Config.Flatpak.Remote {
			return true, "remote " + name + " already registered"
		}
	}
	return false, ""
}

func addFlatpakRemote(ctx context.Context, rc *RunContext) error {
	return rc.Runner.Run(ctx, "flatpak", "remote-add", "--if-not-exists",
		rc.Config.Flatpak.Remote, rc.Config.Flatpak.RemoteURL)
}

func verifyFlatpakRemote(ctx context.Context, rc *RunContext) error {
	if present, _ := flatpakRemotePresent(ctx, rc); !present {
		return errors.Newf(errors.ErrStepVerify, "remote %s not registered", rc.Config.Flatpak.Remote)
	}
	return nil
}

func installFlatpakApps(ctx context.Context, rc *RunContext) error {
	for _, app := range rc.Config.Flatpak.Apps {
		if err := rc.Runner.Run(ctx, "flatpak", "install", "-y",
			rc.Config.Flatpak.Remote, app); err != nil {
			return err
		}
	}
	return nil
}

// installDesktopExtensions runs as the principal: extensions install into
// the user session, not system-wide.
func installDesktopExtensions(ctx context.Context, rc *RunContext) error {
	for _, uuid := range rc.Config.Desktop.Extensions {
		if err := rc.Runner.RunAs(ctx, rc.Principal.Username,
			"gnome-extensions-cli", "install", uuid); err != nil {
			return err
		}
	}
	return nil
}

func cliToolPresent(ctx context.Context, rc *RunContext) (bool, string) {
	if rc.Runner.Lookup(rc.Config.CLITool.Binary) {
		return true, rc.Config.CLITool.Name + " already installed"
	}
	return false, ""
}

func installCLITool(ctx context.Context, rc *RunContext) error {
	tool := rc.Config.CLITool
	archive := filepath.Join(rc.WorkDir, tool.Name+".tar.gz")

	if err := rc.Runner.Run(ctx, "curl", "-fsSL", tool.URL, "-o", archive); err != nil {
		return err
	}
	if err := rc.Runner.Run(ctx, "tar", "-xzf", archive, "-C", rc.WorkDir); err != nil {
		return err
	}

	extracted := filepath.Join(rc.WorkDir, tool.Binary)
	return rc.Runner.Run(ctx, "install", "-m", "0755", extracted,
		filepath.Join(tool.InstallDir, tool.Binary))
}

func verifyCLITool(ctx context.Context, rc *RunContext) error {
	if !rc.Runner.Lookup(rc.Config.CLITool.Binary) {
		return errors.Newf(errors.ErrStepVerify, "%s not available after install", rc.Config.CLITool.Binary)
	}
	return nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
