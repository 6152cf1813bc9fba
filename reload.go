// FILE: lixenwraith/settings/reload.go
package settings

import (
	"go.uber.org/zap"
)

// Reload outcomes, used as the metrics "result" label
const (
	reloadApplied   = "applied"
	reloadReadError = "read_error"
	reloadStale     = "stale"
	reloadEmpty     = "empty"
)

// poll runs the poll gate and, when due, the stat check.
// Lock order: pollMu is released before fileMu is taken, fileMu before mu.
func (s *Store) poll() {
	if !s.pollDue() {
		return
	}
	s.checkFile()
}

// pollDue reports whether this caller won the right to stat the file.
// Among concurrent callers past the deadline exactly one gets true.
func (s *Store) pollDue() bool {
	now := s.clock.Now()

	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	// Zero lastPoll means never polled, or reset by a path/period change
	if !s.lastPoll.IsZero() && now.Sub(s.lastPoll) < s.pollPeriod {
		return false
	}
	s.lastPoll = now
	s.metrics.poll()
	return true
}

// checkFile stats the config file and reloads it when its modification time
// moved forward. A missing or unreadable file counts as unchanged.
func (s *Store) checkFile() {
	s.fileMu.Lock()

	path := s.filePath
	info, err := s.fs.Stat(path)
	s.metrics.stat()
	if err != nil {
		s.fileMu.Unlock()
		s.logger.Debug("config file unavailable, keeping current settings",
			zap.String("path", path), zap.Error(err))
		return
	}
	if info.IsDir() || !info.ModTime().After(s.lastModTime) {
		s.fileMu.Unlock()
		return
	}

	// Group/world writable files are not trusted. lastModTime stays put so the
	// file loads once permissions are fixed.
	if s.verifyPermissions && info.Mode().Perm()&0o022 != 0 {
		s.fileMu.Unlock()
		s.logger.Warn("config file is group or world writable, not reloading",
			zap.String("path", path), zap.Stringer("mode", info.Mode()))
		return
	}

	s.lastModTime = info.ModTime()
	s.readGen++
	gen := s.readGen

	doc, err := s.readFile(path)
	s.fileMu.Unlock()

	if err != nil {
		s.metrics.reload(reloadReadError)
		s.logger.Warn("config file changed but could not be read, keeping current settings",
			zap.String("path", path), zap.Error(err))
		return
	}

	s.apply(gen, path, doc)
}

// apply installs the owned directives of a parsed file under the settings
// lock, then forwards log rules outside of it.
func (s *Store) apply(gen uint64, path string, doc *document) {
	for _, skipErr := range doc.skipped {
		s.logger.Warn("skipping config directive", zap.String("path", path), zap.Error(skipErr))
	}
	s.metrics.skipped(len(doc.skipped))

	// An empty file is most likely an editor mid-save
	if doc.empty() {
		s.metrics.reload(reloadEmpty)
		s.logger.Debug("config file is empty, keeping current settings", zap.String("path", path))
		return
	}

	s.mu.Lock()
	if gen <= s.appliedGen {
		s.mu.Unlock()
		s.metrics.reload(reloadStale)
		return
	}
	s.appliedGen = gen

	for _, d := range doc.directives {
		switch d.kind {
		case directiveNumThreads:
			s.numThreads.set(d.numThreads)
			s.metrics.observeNumThreads(d.numThreads)
		case directiveCacheSize:
			s.cacheSize.set(d.cacheSize)
			s.metrics.observeCacheSize(d.cacheSize)
		}
	}
	s.mu.Unlock()

	s.metrics.reload(reloadApplied)
	s.logger.Debug("config file reloaded",
		zap.String("path", path),
		zap.Int("directives", len(doc.directives)),
		zap.Int("log_rules", len(doc.logRules)))

	s.forwardLogRules(gen, doc.logRules)
}

// forwardLogRules hands log rules to the collaborator, dropping a set that
// lost the race against a newer reload.
func (s *Store) forwardLogRules(gen uint64, rules []LogRule) {
	if s.logConf == nil {
		return
	}

	s.rulesMu.Lock()
	defer s.rulesMu.Unlock()

	if gen <= s.rulesGen {
		return
	}
	s.rulesGen = gen
	s.logConf.ApplyLogRules(rules)
}
