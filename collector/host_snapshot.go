package collector

import (
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	log "github.com/sirupsen/logrus"
)

type CPUInfo struct {
	Cores       int32   `json:"cores"`
	LogicalCPUs int     `json:"logical_cpus"`
	ModelName   string  `json:"model_name"`
	Mhz         float64 `json:"mhz"`
	Usage       float64 `json:"usage"`
}

// MemoryInfo sizes are in MB
type MemoryInfo struct {
	Total       uint64  `json:"total_mb"`
	Available   uint64  `json:"available_mb"`
	UsedPercent float64 `json:"used_percent"`
}

type HostInfo struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	Uptime          uint64 `json:"uptime"`
}

type LoadInfo struct {
	Load1  float64 `json:"load1"`
	Load5  float64 `json:"load5"`
	Load15 float64 `json:"load15"`
}

// Snapshot describes the machine a benchmark ran on.
type Snapshot struct {
	CPUInfo    CPUInfo    `json:"cpu"`
	MemoryInfo MemoryInfo `json:"memory"`
	HostInfo   HostInfo   `json:"host"`
	LoadInfo   LoadInfo   `json:"load"`
	GoMaxProcs int        `json:"gomaxprocs"`
	TakenAt    time.Time  `json:"taken_at"`
}

func GetCPUInfo() (CPUInfo, error) {
	info := CPUInfo{LogicalCPUs: runtime.NumCPU()}

	infos, err := cpu.Info()
	if err != nil {
		return info, fmt.Errorf("failed to get CPU Info: %w", err)
	}
	if len(infos) > 0 {
		info.Cores = infos[0].Cores
		info.ModelName = infos[0].ModelName
		info.Mhz = infos[0].Mhz
	}

	usage, err := cpu.Percent(0, false)
	if err != nil {
		return info, fmt.Errorf("failed to get CPU usage: %w", err)
	}
	if len(usage) > 0 {
		info.Usage = round2(usage[0])
	}
	return info, nil
}

func GetMemoryInfo() (MemoryInfo, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return MemoryInfo{}, fmt.Errorf("failed to get memory info: %w", err)
	}
	return MemoryInfo{
		Total:       toMB(v.Total),
		Available:   toMB(v.Available),
		UsedPercent: round2(v.UsedPercent),
	}, nil
}

func GetHostInfo() (HostInfo, error) {
	info, err := host.Info()
	if err != nil {
		return HostInfo{}, fmt.Errorf("failed to get host info: %w", err)
	}
	return HostInfo{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		Uptime:          info.Uptime,
	}, nil
}

func GetLoadInfo() (LoadInfo, error) {
	avg, err := load.Avg()
	if err != nil {
		return LoadInfo{}, fmt.Errorf("failed to get system load: %w", err)
	}
	return LoadInfo{
		Load1:  round2(avg.Load1),
		Load5:  round2(avg.Load5),
		Load15: round2(avg.Load15),
	}, nil
}

// Collect takes a best-effort snapshot. Parts that cannot be read are left
// zero and reported in the joined error; the snapshot is always usable.
func Collect() (Snapshot, error) {
	s := Snapshot{
		GoMaxProcs: runtime.GOMAXPROCS(0),
		TakenAt:    time.Now().UTC(),
	}

	var errs []error
	var err error
	if s.CPUInfo, err = GetCPUInfo(); err != nil {
		errs = append(errs, err)
	}
	if s.MemoryInfo, err = GetMemoryInfo(); err != nil {
		errs = append(errs, err)
	}
	if s.HostInfo, err = GetHostInfo(); err != nil {
		errs = append(errs, err)
	}
	if s.LoadInfo, err = GetLoadInfo(); err != nil {
		errs = append(errs, err)
	}

	if joined := errors.Join(errs...); joined != nil {
		log.Warnf("Host snapshot incomplete: %v", joined)
		return s, joined
	}
	return s, nil
}

func toMB(bytes uint64) uint64 {
	return bytes / (1024 * 1024)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
