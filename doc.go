// File: lixenwraith/settings/doc.go

// Package settings provides a process-wide settings store whose values can be
// overridden at runtime by editing a configuration file, without restarting.
//
// The store owns two typed settings: the default number of worker threads and
// the system cache budget in megabytes. Either can be set programmatically or
// by a directive in the config file (default ~/.settingsrc). The file is never
// watched. Instead every getter runs a cheap poll gate; once the poll period
// has elapsed the file is stat'd, and if its modification time moved forward
// it is re-read and the recognised directives are applied.
//
// Quick Start:
//
//	threads := settings.DefaultNumThreads()
//	cacheMB := settings.SystemCacheSize()
//
//	settings.Global().SetCacheSize(2048)
//
// Isolated instances (tests, embedding):
//
//	store, err := settings.NewBuilder().
//	    WithFile("/etc/myapp/myapprc").
//	    WithPollPeriod(time.Second).
//	    WithLogger(logger).
//	    Build()
//
// Config file (line-oriented, one directive per line):
//
//	# worker threads and cache budget
//	default_num_threads = 8
//	system_cache_size = "2GiB"
//
//	[logfile console]
//	debug = settings
//
// Precedence:
// There is none beyond recency. The latest write, whether an explicit setter
// call or a reload that names the setting, wins.
//
// Error Handling:
// Getters and setters never fail. A missing file, a malformed line or an
// invalid value is skipped and the previous value is kept. Only construction
// of the store can fail.
//
// Thread Safety:
// All methods are safe for concurrent use. Three independent locks keep the
// common path (poll not due) from contending with file I/O.
package settings
