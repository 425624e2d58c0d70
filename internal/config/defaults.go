package config

// GetDefaults returns the default configuration values.
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"docs_dir":       "./docs",
		"source_dir":     ".",
		"adapter_dir":    "",
		"skip_code_scan": false,
		"max_file_bytes": 1 << 20,
		"exclude_dirs":   []string{".git", "node_modules", "vendor", ".spectrace"},
		"format":         "",
	}
}
