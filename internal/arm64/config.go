package arm64

// Lookup resolves an environment variable, mirroring os.LookupEnv's
// signature so tests can inject a fake environment without touching the
// process's real one. NewConfig is the only place in this package that may
// call an env lookup (spec.md §9: "seeded from environment at emitter
// construction time; never read environment lazily mid-emission").
type Lookup func(key string) (string, bool)

// Config is the emitter's process-wide-in-spirit, but-constructed-once
// configuration value (spec.md §9's "single configuration value passed by
// reference to the emitter"). It is immutable after construction.
type Config struct {
	// Fusion enables, one per peephole in the fusion engine (spec.md §6).
	MADDFusion        bool
	ShiftFusion       bool
	LdpStpFusion      bool
	IndexedAddrFusion bool
	NeonCopyFusion    bool
	NeonArithFusion   bool

	// Debug trace gates, one per fusion pathway that spec.md §6 says must
	// log a line per attempt when set.
	DebugMADD        bool
	DebugShift       bool
	DebugLdpStp      bool
	DebugIndexedAddr bool

	// Trace receives one formatted line per enabled DEBUG_* gate that fires.
	// Nil disables tracing outright regardless of the DEBUG_* flags.
	Trace Trace
}

// envFlag implements spec.md §6/§7's parse rule: "1" or "true" enables;
// anything else disables; unset defaults to enabled. This deliberately does
// NOT use strconv.ParseBool, since ParseBool also accepts "t"/"T"/"TRUE"/"True"
// as true, and spec.md §7 calls any value other than "1"/"true" a
// (silent) disable rather than a richer boolean grammar.
func envFlag(env Lookup, key string) bool {
	v, ok := env(key)
	if !ok {
		return true
	}
	return v == "1" || v == "true"
}

// envDebug implements the DEBUG_* convention: any value (including the empty
// string, for variables merely set in the environment) enables tracing;
// unset disables it.
func envDebug(env Lookup, key string) bool {
	_, ok := env(key)
	return ok
}

// NewConfig seeds a Config from the environment once, per spec.md §6/§9.
// Pass os.LookupEnv for normal use; tests should pass a map-backed Lookup.
func NewConfig(env Lookup, trace Trace) *Config {
	return &Config{
		MADDFusion:        envFlag(env, "ENABLE_MADD_FUSION"),
		ShiftFusion:       envFlag(env, "ENABLE_SHIFT_FUSION"),
		LdpStpFusion:      envFlag(env, "ENABLE_LDP_STP_FUSION"),
		IndexedAddrFusion: envFlag(env, "ENABLE_INDEXED_ADDR"),
		NeonCopyFusion:    envFlag(env, "ENABLE_NEON_COPY"),
		NeonArithFusion:   envFlag(env, "ENABLE_NEON_ARITH"),

		DebugMADD:        envDebug(env, "DEBUG_MADD"),
		DebugShift:       envDebug(env, "DEBUG_SHIFT_FUSION"),
		DebugLdpStp:      envDebug(env, "DEBUG_LDP_STP"),
		DebugIndexedAddr: envDebug(env, "DEBUG_INDEXED_ADDR"),

		Trace: trace,
	}
}

// DefaultConfig returns a Config with every fusion enabled and all tracing
// disabled, equivalent to running with no environment variables set.
func DefaultConfig() *Config {
	return NewConfig(func(string) (string, bool) { return "", false }, nil)
}

func (c *Config) trace(enabled bool, format string, args ...any) {
	if enabled && c.Trace != nil {
		c.Trace(format, args...)
	}
}
