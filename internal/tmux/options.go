package tmux

// StateCheckLevel controls how presumed-vs-actual state drift is handled.
type StateCheckLevel int

const (
	// StateCheckDefault derives the level from the Testing/Debug flags.
	StateCheckDefault StateCheckLevel = iota
	// StateCheckOff skips the re-query entirely.
	StateCheckOff
	// StateCheckWarn logs a mismatch and continues.
	StateCheckWarn
	// StateCheckFatal aborts the run on mismatch; drift means the engine's
	// index arithmetic has diverged from reality.
	StateCheckFatal
)

// Options carries the caller's flags into the reconciler. It is a plain
// immutable value; there is exactly one production configuration and one
// test configuration.
type Options struct {
	// DryRun suppresses all mutating side effects; the would-be commands
	// are still recorded and returned.
	DryRun bool

	// Debug enables trace output on stderr and state checking at Warn level.
	Debug bool

	// Attach is the explicit attach preference: nil decides from $TMUX.
	Attach *bool

	// SocketName selects the tmux server socket; empty means "default".
	SocketName string

	// ConfigFile overrides the default config path (consumed by the CLI,
	// carried here so diagnostics can report it).
	ConfigFile string

	// Testing marks a test run: state checking becomes fatal and attach
	// never replaces the process.
	Testing bool

	// StateCheck overrides the derived state-check level when non-default.
	StateCheck StateCheckLevel
}

// Socket returns the effective socket name.
func (o Options) Socket() string {
	if o.SocketName == "" {
		return "default"
	}
	return o.SocketName
}

func (o Options) stateCheckLevel() StateCheckLevel {
	if o.StateCheck != StateCheckDefault {
		return o.StateCheck
	}
	if o.Testing {
		return StateCheckFatal
	}
	if o.Debug {
		return StateCheckWarn
	}
	return StateCheckOff
}
