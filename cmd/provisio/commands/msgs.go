package commands

// User-facing strings, collected here so commands stay readable.
const (
	MsgRootShort = "A fault-tolerant workstation provisioner"
	MsgRootLong  = `provisio turns a fresh Debian or Neptune desktop into a configured
workstation: it purges unwanted defaults, installs developer tooling, sets up
the shell, browser, terminal and flatpak applications.

Runs are idempotent and safe to repeat: steps that already hold are skipped,
network operations are retried, and the transient working directory is
cleaned up on every exit path, including Ctrl-C.`

	MsgFlagVerbose  = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagDryRun   = "Show what would run without executing anything"
	MsgFlagFormat   = "Output format: auto, term or text"
	MsgFlagReport   = "Write the run outcome as YAML to this path"
	MsgFlagRelease  = "Path to the os-release file used for host detection"
	MsgFlagSteps    = "Path to the host-local step overrides file"
	MsgFlagConfig   = "Path to the system configuration file"
	MsgFlagWorkdir  = "Base directory for the transient working directory"
	MsgFlagAttempts = "Retry budget for retryable steps"

	MsgProvisionShort = "Provision this workstation"
	MsgPlanShort      = "Show which steps would run for this host"
	MsgDetectShort    = "Print the detected host variant"
	MsgTopicsShort    = "Read a documentation topic"
	MsgVersionShort   = "Print version information"
)
