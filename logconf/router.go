// Package logconf routes zap log output according to the [logfile <target>]
// rules of a settings file. Each rule reads "<level> = <domain pattern>": a
// logger for a matching domain writes entries at or above level to target.
//
// The target "console" is stderr; any other target is a file path.
// Rules are re-read on every settings reload, so editing the file changes
// log levels and destinations of already created loggers.
package logconf

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lixenwraith/settings"
)

// ConsoleTarget is the target name for stderr
const ConsoleTarget = "console"

// defaultRules apply when the settings file names no log rules at all
var defaultRules = []settings.LogRule{{Target: ConsoleTarget, Rule: "info = *"}}

type rule struct {
	level   zapcore.Level
	pattern string
}

// sink is one output and the rules that feed it
type sink struct {
	core  zapcore.Core
	rules []rule
	close func()
}

func (s *sink) allows(domain string, lvl zapcore.Level) bool {
	for _, r := range s.rules {
		if lvl < r.level {
			continue
		}
		if ok, _ := path.Match(r.pattern, domain); ok {
			return true
		}
	}
	return false
}

// accepts reports whether any rule takes lvl, whatever the domain
func (s *sink) accepts(lvl zapcore.Level) bool {
	for _, r := range s.rules {
		if lvl >= r.level {
			return true
		}
	}
	return false
}

// Router implements settings.LogConfigurator
type Router struct {
	mu      sync.RWMutex
	sinks   map[string]*sink
	console zapcore.WriteSyncer
	open    func(target string) (zapcore.WriteSyncer, func(), error)
	lastErr error
}

var _ settings.LogConfigurator = (*Router)(nil)

// New creates a Router writing console output to w (stderr when nil)
// with the default rule "info = *".
func New(w zapcore.WriteSyncer) *Router {
	if w == nil {
		w = zapcore.Lock(os.Stderr)
	}
	r := &Router{
		sinks:   make(map[string]*sink),
		console: w,
		open: func(target string) (zapcore.WriteSyncer, func(), error) {
			return zap.Open(target)
		},
	}
	r.ApplyLogRules(nil)
	return r
}

// ApplyLogRules replaces the rule set. Malformed rules and targets that cannot
// be opened are skipped; Err reports them until the next call.
func (r *Router) ApplyLogRules(rules []settings.LogRule) {
	if len(rules) == 0 {
		rules = defaultRules
	}

	parsed, errs := parseRules(rules)

	r.mu.Lock()
	old := r.sinks
	next := make(map[string]*sink, len(parsed))
	for target, targetRules := range parsed {
		if existing, ok := old[target]; ok {
			next[target] = &sink{core: existing.core, rules: targetRules, close: existing.close}
			continue
		}
		core, closeFn, err := r.newCore(target)
		if err != nil {
			errs = append(errs, fmt.Errorf("log target %q: %w", target, err))
			continue
		}
		next[target] = &sink{core: core, rules: targetRules, close: closeFn}
	}
	r.sinks = next
	r.lastErr = errors.Join(errs...)
	r.mu.Unlock()

	for target, s := range old {
		if _, kept := next[target]; !kept && s.close != nil {
			s.core.Sync()
			s.close()
		}
	}
}

// Err returns the problems found by the last ApplyLogRules, or nil
func (r *Router) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}

// Targets lists the active targets in sorted order
func (r *Router) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	targets := make([]string, 0, len(r.sinks))
	for t := range r.sinks {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Logger returns a logger for domain. Its output follows the rule set in
// force at the time of each entry. Children created with Named are routed by
// their full dotted name.
func (r *Router) Logger(domain string) *zap.Logger {
	return zap.New(&domainCore{router: r, domain: domain}).Named(domain)
}

// Sync flushes every sink
func (r *Router) Sync() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, s := range r.sinks {
		if err := s.core.Sync(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close flushes and closes all file sinks
func (r *Router) Close() error {
	err := r.Sync()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sinks {
		if s.close != nil {
			s.close()
		}
	}
	r.sinks = make(map[string]*sink)
	return err
}

func (r *Router) newCore(target string) (zapcore.Core, func(), error) {
	if target == ConsoleTarget {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		return zapcore.NewCore(enc, r.console, zapcore.DebugLevel), nil, nil
	}

	ws, closeFn, err := r.open(target)
	if err != nil {
		return nil, nil, err
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zapcore.NewCore(enc, ws, zapcore.DebugLevel), closeFn, nil
}

// parseRules groups rules by target. "<level> = <pattern>", pattern defaults to "*".
func parseRules(rules []settings.LogRule) (map[string][]rule, []error) {
	parsed := make(map[string][]rule)
	var errs []error

	for _, lr := range rules {
		target := strings.TrimSpace(lr.Target)
		if target == "" {
			errs = append(errs, fmt.Errorf("log rule %q has no target", lr.Rule))
			continue
		}

		levelText, pattern, found := strings.Cut(lr.Rule, "=")
		pattern = strings.TrimSpace(pattern)
		if !found || pattern == "" {
			pattern = "*"
		}

		lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(levelText)))
		if err != nil {
			errs = append(errs, fmt.Errorf("log rule %q for %q: %w", lr.Rule, target, err))
			continue
		}
		if _, err := path.Match(pattern, ""); err != nil {
			errs = append(errs, fmt.Errorf("log rule %q for %q: bad pattern: %w", lr.Rule, target, err))
			continue
		}

		parsed[target] = append(parsed[target], rule{level: lvl, pattern: pattern})
	}

	return parsed, errs
}
