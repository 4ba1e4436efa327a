// Package preflight validates the run environment before any mutation.
// Provisioning must run as root but acts on behalf of the logged-in
// non-privileged user, whose identity is resolved here exactly once.
package preflight

import (
	"context"
	"io/fs"
	"os"
	"os/user"
	"strconv"

	"github.com/provisio-sh/provisio/pkg/command"
	"github.com/provisio-sh/provisio/pkg/errors"
	"github.com/provisio-sh/provisio/pkg/logging"
)

// Principal is the non-privileged identity user-scoped steps act for.
// It is resolved once and treated as read-only for the rest of the run.
type Principal struct {
	Username string
	UID      int
	GID      int
	Home     string
}

// Validator performs the read-only precondition checks. The collaborators
// are injectable so tests never need real root or real accounts.
type Validator struct {
	Geteuid    func() int
	Getenv     func(string) string
	LookupUser func(string) (*user.User, error)
	Stat       func(string) (fs.FileInfo, error)
	Runner     command.Runner
}

// New returns a Validator wired to the real system.
func New(runner command.Runner) *Validator {
	return &Validator{
		Geteuid:    os.Geteuid,
		Getenv:     os.Getenv,
		LookupUser: user.Lookup,
		Stat:       os.Stat,
		Runner:     runner,
	}
}

// Validate checks privilege and resolves the Principal. It performs no
// side effects; its failure aborts the run before anything is touched.
func (v *Validator) Validate(ctx context.Context) (Principal, error) {
	logger := logging.GetLogger("preflight")

	if v.Geteuid() != 0 {
		return Principal{}, errors.New(errors.ErrInsufficientPrivilege,
			"provisioning mutates the system and must run as root")
	}

	username, err := v.loginUser(ctx)
	if err != nil {
		return Principal{}, err
	}

	u, err := v.LookupUser(username)
	if err != nil {
		return Principal{}, errors.Wrapf(err, errors.ErrUnresolvableUser,
			"cannot resolve user %q", username)
	}

	if u.HomeDir == "" {
		return Principal{}, errors.Newf(errors.ErrUnresolvableUser,
			"user %q has no home directory", username)
	}
	if info, err := v.Stat(u.HomeDir); err != nil || !info.IsDir() {
		return Principal{}, errors.Newf(errors.ErrUnresolvableUser,
			"home directory %s for user %q does not exist", u.HomeDir, username)
	}

	uid, _ := strconv.Atoi(u.Uid)
	gid, _ := strconv.Atoi(u.Gid)

	principal := Principal{
		Username: username,
		UID:      uid,
		GID:      gid,
		Home:     u.HomeDir,
	}

	logger.Debug().
		Str("user", principal.Username).
		Str("home", principal.Home).
		Msg("Preflight checks passed")

	return principal, nil
}

// loginUser discovers the invoking non-privileged user. Under sudo the
// original identity is in SUDO_USER; otherwise the session accounting
// database is consulted via logname.
func (v *Validator) loginUser(ctx context.Context) (string, error) {
	if name := v.Getenv("SUDO_USER"); name != "" && name != "root" {
		return name, nil
	}

	name, err := v.Runner.Output(ctx, "logname")
	if err != nil {
		return "", errors.Wrap(err, errors.ErrUnresolvableUser,
			"cannot determine the logged-in user")
	}
	if name == "" || name == "root" {
		return "", errors.New(errors.ErrUnresolvableUser,
			"no non-privileged login user found for this session")
	}
	return name, nil
}
