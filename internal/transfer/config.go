package transfer

import (
	"github.com/Nomadcxx/javorganize/internal/config"
	"github.com/Nomadcxx/javorganize/internal/logging"
)

// OptionsFromConfig creates TransferOptions from configuration.
// It starts with DefaultOptions() and applies the [transfer] and
// [permissions] settings. If cfg is nil, it returns the defaults unchanged.
func OptionsFromConfig(cfg *config.Config) TransferOptions {
	opts := DefaultOptions()

	if cfg == nil {
		return opts
	}

	if d, err := cfg.Transfer.ParseTimeout(); err == nil {
		opts.Timeout = d
	}
	if cfg.Transfer.RetryAttempts >= 0 {
		opts.RetryAttempts = cfg.Transfer.RetryAttempts
	}
	opts.Checksum = cfg.Transfer.VerifyChecksums

	// Apply ownership settings if configured
	if cfg.Permissions.WantsOwnership() {
		if uid, err := cfg.Permissions.ResolveUID(); err == nil && uid >= 0 {
			opts.TargetUID = uid
		}
		if gid, err := cfg.Permissions.ResolveGID(); err == nil && gid >= 0 {
			opts.TargetGID = gid
		}
	}

	// Apply mode settings if configured
	if cfg.Permissions.WantsMode() {
		if mode, err := cfg.Permissions.ParseFileMode(); err == nil && mode != 0 {
			opts.FileMode = mode
		}
		if mode, err := cfg.Permissions.ParseDirMode(); err == nil && mode != 0 {
			opts.DirMode = mode
		}
	}

	return opts
}

// FromConfig builds the configured backend. log receives fallback notices
// when the auto backend chains native and rsync; it may be nil.
func FromConfig(cfg *config.Config, log *logging.Logger) (Transferer, error) {
	backend := BackendAuto
	if cfg != nil {
		backend = ParseBackend(cfg.Transfer.Backend)
	}
	t, err := New(backend)
	if err != nil {
		return nil, err
	}
	if fb, ok := t.(*FallbackTransferer); ok && log != nil {
		fb.WithLogger(log)
	}
	return t, nil
}
