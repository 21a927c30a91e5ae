package structs

// Config holds the overall configuration structure mapping to graphbench_config.toml
type Config struct {
	Server     ServerConfig    `toml:"server"`
	Database   DatabaseConfig  `toml:"database"`
	Redis      RedisConfig     `toml:"redis"`
	Etcd       EtcdConfig      `toml:"etcd"`
	Log        LogConfig       `toml:"log"`
	Benchmark  BenchmarkConfig `toml:"benchmark"`
	Algorithms []AlgorithmSeed `toml:"algorithm"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr                string `toml:"addr"`
	ReadTimeoutSeconds  int    `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `toml:"write_timeout_seconds"`
	MaxGraphSize        int    `toml:"max_graph_size"`
}

// DatabaseConfig holds database connection parameters.
// Driver is "mysql" (default) or "sqlite3"; Path is only read for sqlite3.
type DatabaseConfig struct {
	Driver   string `toml:"driver"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Host     string `toml:"host"`
	DBName   string `toml:"dbname"`
	Path     string `toml:"path"`
}

// RedisConfig selects the graph cache backend. An empty Address keeps at
// most MemoryEntries graphs in memory; TTLSeconds applies to both backends.
type RedisConfig struct {
	Address       string `toml:"address"`
	Password      string `toml:"password"`
	TTLSeconds    int    `toml:"ttl_seconds"`
	MaxIdle       int    `toml:"max_idle"`
	MemoryEntries int    `toml:"memory_entries"`
}

// EtcdConfig enables distributed benchmark dispatch
type EtcdConfig struct {
	Enabled            bool     `toml:"enabled"`
	Endpoints          []string `toml:"endpoints"`
	DialTimeoutSeconds int      `toml:"dial_timeout_seconds"`
	RunWorker          bool     `toml:"run_worker"`
}

type LogConfig struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"`
}

// BenchmarkConfig drives the measurement sweep
type BenchmarkConfig struct {
	GraphSizes      []int   `toml:"graph_sizes"`
	ProcessorCounts []int   `toml:"processor_counts"`
	Density         float64 `toml:"density"`
	Repeats         int     `toml:"repeats"`
	Seed            int64   `toml:"seed"`
	PoolSize        int     `toml:"pool_size"`
}

// AlgorithmSeed maps to one [[algorithm]] item in TOML
type AlgorithmSeed struct {
	Name               string `toml:"name"`
	AlgorithmType      string `toml:"algorithm_type"`
	ImplementationType string `toml:"implementation_type"`
	Description        string `toml:"description"`
	Code               string `toml:"code,omitempty"`
}
