package hooks

import (
	"github.com/pkg/errors"

	"github.com/grigorimaxim422/atom/logger"
	"github.com/grigorimaxim422/atom/types"
)

// Hook names as reported to the inbound request server.
const (
	HookVerify    = "verify"
	HookBlacklist = "blacklist"
	HookPriority  = "priority"
	HookOnEntry   = "on_entry"
)

// Verifier is the optional authorization/integrity check run per inbound
// request. The platform default accepts everything.
type Verifier interface {
	Verify(req *types.Request) bool
}

// Blacklister is the optional known-bad-sender check. The platform default
// never blacklists.
type Blacklister interface {
	Blacklist(req *types.Request) (bool, string)
}

// Prioritizer is the optional ordering hint for queuing. The platform default
// is zero priority.
type Prioritizer interface {
	Priority(req *types.Request) float64
}

// OnEntryHandler handles an accepted request. It must append the request (or
// a derived sample) to the organic queue before returning a response; failing
// to do so is a bug in the handler, not something the scheduler detects.
type OnEntryHandler interface {
	OnEntry(req *types.Request) (*types.Response, error)
}

// Hooks is the capability set supplied at construction. Leave a field nil to
// mean "not installed": the inbound request server then applies its own
// baseline policy and the dispatcher is never consulted for that hook.
// OnEntry has no default and must always be set.
type Hooks struct {
	Verifier    Verifier
	Blacklister Blacklister
	Prioritizer Prioritizer
	OnEntry     OnEntryHandler
}

// Table maps hook names to whether a customized implementation is installed.
type Table map[string]bool

// Dispatcher evaluates admission hooks for inbound requests. It is safe for
// concurrent use; hook invocations may run concurrently with each other and
// with the scheduling loop.
type Dispatcher struct {
	Logger logger.Logger `inject:""`

	Hooks Hooks
}

func (d *Dispatcher) Start() error {
	if d.Hooks.OnEntry == nil {
		return errors.New("an on-entry handler is required but none was supplied")
	}
	d.Logger.Infof("admission hooks installed: %v", d.Installed())
	return nil
}

// Installed reports which hooks carry customized implementations. Only these
// are registered with the inbound request server; absent hooks impose zero
// dispatch overhead. OnEntry is always installed.
func (d *Dispatcher) Installed() Table {
	return Table{
		HookVerify:    d.Hooks.Verifier != nil,
		HookBlacklist: d.Hooks.Blacklister != nil,
		HookPriority:  d.Hooks.Prioritizer != nil,
		HookOnEntry:   true,
	}
}

// Verify runs the verify hook, or the always-accept default when none is
// installed.
func (d *Dispatcher) Verify(req *types.Request) bool {
	if d.Hooks.Verifier == nil {
		return true
	}
	return d.Hooks.Verifier.Verify(req)
}

// Blacklist runs the blacklist hook, or the never-blacklisted default when
// none is installed.
func (d *Dispatcher) Blacklist(req *types.Request) (bool, string) {
	if d.Hooks.Blacklister == nil {
		return false, ""
	}
	return d.Hooks.Blacklister.Blacklist(req)
}

// Priority runs the priority hook, or returns the zero default when none is
// installed.
func (d *Dispatcher) Priority(req *types.Request) float64 {
	if d.Hooks.Prioritizer == nil {
		return 0.0
	}
	return d.Hooks.Prioritizer.Priority(req)
}

// OnEntry runs the mandatory on-entry handler. Errors propagate to the
// inbound request server; the scheduling core never catches them.
func (d *Dispatcher) OnEntry(req *types.Request) (*types.Response, error) {
	return d.Hooks.OnEntry.OnEntry(req)
}
