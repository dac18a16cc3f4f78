package config

type Config struct {
	Wordlist string
	BSSID    string
	ESSID    string

	Engine EngineConfig
	Output OutputConfig
}

type EngineConfig struct {
	// ForceCPU disables GPU probing entirely.
	ForceCPU bool
	// ShaderPath locates the compiled SPIR-V for the GPU pipeline.
	ShaderPath string
	// Workers overrides the CPU worker count; 0 means one per core.
	Workers int
}

type OutputConfig struct {
	ResultsFile string
	Verbose     int
	NoTUI       bool
}

func DefaultConfig() *Config {
	return &Config{
		Wordlist: "/usr/share/wordlists/rockyou.txt",
		Output: OutputConfig{
			ResultsFile: "./wpacrack-results.json",
			Verbose:     1,
		},
	}
}
