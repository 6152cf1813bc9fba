package logconf

import (
	"errors"

	"go.uber.org/zap/zapcore"
)

// domainCore is the zapcore.Core behind Router.Logger. It holds no outputs of
// its own and asks the router on every entry.
//
// Entries are routed by their logger name, so a child from
// Logger("settings").Named("reload") matches rules for "settings.reload".
// domain is used only for entries without a name.
type domainCore struct {
	router *Router
	domain string
	fields []zapcore.Field
}

// Enabled cannot see the logger name, so it only rules out levels that no
// rule of any sink accepts; Check does the per-domain filtering.
func (c *domainCore) Enabled(lvl zapcore.Level) bool {
	c.router.mu.RLock()
	defer c.router.mu.RUnlock()

	for _, s := range c.router.sinks {
		if s.accepts(lvl) {
			return true
		}
	}
	return false
}

func (c *domainCore) entryDomain(ent zapcore.Entry) string {
	if ent.LoggerName != "" {
		return ent.LoggerName
	}
	return c.domain
}

func (c *domainCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &domainCore{router: c.router, domain: c.domain, fields: merged}
}

func (c *domainCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	c.router.mu.RLock()
	defer c.router.mu.RUnlock()

	domain := c.entryDomain(ent)
	for _, s := range c.router.sinks {
		if !s.allows(domain, ent.Level) {
			continue
		}
		core := s.core
		if len(c.fields) > 0 {
			core = core.With(c.fields)
		}
		ce = ce.AddCore(ent, core)
	}
	return ce
}

// Write is only reached when the core is used without Check
func (c *domainCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	c.router.mu.RLock()
	defer c.router.mu.RUnlock()

	all := append(append([]zapcore.Field{}, c.fields...), fields...)
	domain := c.entryDomain(ent)
	var errs []error
	for _, s := range c.router.sinks {
		if s.allows(domain, ent.Level) {
			if err := s.core.Write(ent, all); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (c *domainCore) Sync() error {
	return c.router.Sync()
}
