package structs

// Algorithm type identifiers
const (
	Dijkstra      = "dijkstra"
	BellmanFord   = "bellman_ford"
	FloydWarshall = "floyd_warshall"
)

// Implementation type identifiers. Sequential is only valid for runs;
// catalogue rows are MPI or CUDA.
const (
	Sequential = "sequential"
	MPI        = "mpi"
	CUDA       = "cuda"
)

// Algorithm is one algorithm/implementation pairing of the catalogue.
type Algorithm struct {
	ID                 int64             `json:"id"`
	Name               string            `json:"name"`
	AlgorithmType      string            `json:"algorithm_type"`
	ImplementationType string            `json:"implementation_type"`
	Description        string            `json:"description"`
	Code               string            `json:"code"`
	PerformanceData    []PerformanceData `json:"performance_data"`
	SpeedupData        []SpeedupData     `json:"speedup_data"`
}

// PerformanceData is one measurement row per graph size
type PerformanceData struct {
	ID             int64   `json:"id"`
	GraphSize      int     `json:"graph_size"`
	SequentialTime float64 `json:"sequential_time"`
	ParallelTime   float64 `json:"parallel_time"`
	Speedup        float64 `json:"speedup"`
}

// SpeedupData is one measurement row per processor count
type SpeedupData struct {
	ID             int64   `json:"id"`
	ProcessorCount int     `json:"processor_count"`
	SpeedupFactor  float64 `json:"speedup_factor"`
}

// ComputeSpeedup returns sequential/parallel, or 0 when the parallel time is not positive.
func ComputeSpeedup(sequentialTime, parallelTime float64) float64 {
	if parallelTime <= 0 {
		return 0
	}
	return sequentialTime / parallelTime
}

// GraphRecord is a stored graph row. Data is the JSON encoded matrix.
type GraphRecord struct {
	ID      int64
	Size    int
	Density float64
	Data    string
}

// IsAlgorithmType reports whether t names one of the supported algorithms
func IsAlgorithmType(t string) bool {
	switch t {
	case Dijkstra, BellmanFord, FloydWarshall:
		return true
	}
	return false
}

// IsImplementationType reports whether t is a runnable implementation
func IsImplementationType(t string) bool {
	switch t {
	case Sequential, MPI, CUDA:
		return true
	}
	return false
}
