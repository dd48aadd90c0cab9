package watcher

import "time"

type WatcherConfig struct {
	DebounceWindow time.Duration `yaml:"debounce_window" json:"debounce_window"`
	MaxBatchSize   int           `yaml:"max_batch_size" json:"max_batch_size"`
	IgnorePatterns []string      `yaml:"ignore_patterns" json:"ignore_patterns"`
	Extensions     []string      `yaml:"extensions" json:"extensions"`
	WatchHidden    bool          `yaml:"watch_hidden" json:"watch_hidden"`
}

func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		DebounceWindow: 300 * time.Millisecond,
		MaxBatchSize:   100,
		IgnorePatterns: []string{
			"**/.git/**",
			"**/node_modules/**",
			"**/.idea/**",
			"**/*.swp",
			"**/*~",
		},
		Extensions:  []string{".md"},
		WatchHidden: false,
	}
}
