package observability

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/process"
)

// ProcessStats is a snapshot of the relay process reported by /health.
type ProcessStats struct {
	PID        int32   `json:"pid"`
	Status     string  `json:"status"`
	CpuPercent float64 `json:"cpu_percent"`
	RamBytes   uint64  `json:"ram_bytes"`
	Goroutines int     `json:"goroutines"`
}

// SelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the current process.
func SelfStats() (ProcessStats, error) {
	pid := int32(os.Getpid())
	p, err := process.NewProcess(pid)
	if err != nil {
		return ProcessStats{}, err
	}

	memInfo, err := p.MemoryInfo()
	if err != nil {
		return ProcessStats{}, err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return ProcessStats{}, err
	}

	status, err := p.Status()
	if err != nil {
		return ProcessStats{}, err
	}

	return ProcessStats{
		PID:        pid,
		Status:     status,
		CpuPercent: cpuPercent,
		RamBytes:   memInfo.RSS,
		Goroutines: runtime.NumGoroutine(),
	}, nil
}
