package api

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ServerStats - снимок состояния процесса для /api/server
type ServerStats struct {
	Uptime      string  `json:"uptime"`
	HeapMB      float64 `json:"heap_mb"`
	Goroutines  int     `json:"goroutines"`
	NumGC       uint32  `json:"num_gc"`
	CPUPercent  float64 `json:"cpu_percent"`
	HostMemPct  float64 `json:"host_mem_pct"`
	ActiveGames int     `json:"active_games"`
}

// ServerMetrics собирает метрики процесса сервера
type ServerMetrics struct {
	startTime time.Time
	proc      *process.Process
}

// NewServerMetrics запоминает время старта. Если процесс недоступен gopsutil,
// CPU в снимке остается нулевым.
func NewServerMetrics() *ServerMetrics {
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &ServerMetrics{startTime: time.Now(), proc: proc}
}

// Snapshot снимает текущие значения. Ошибки gopsutil не прерывают ответ.
func (sm *ServerMetrics) Snapshot() ServerStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := ServerStats{
		Uptime:     time.Since(sm.startTime).Round(time.Second).String(),
		HeapMB:     float64(m.HeapAlloc) / 1024 / 1024,
		Goroutines: runtime.NumGoroutine(),
		NumGC:      m.NumGC,
	}
	if sm.proc != nil {
		if pct, err := sm.proc.CPUPercent(); err == nil {
			stats.CPUPercent = pct
		}
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		stats.HostMemPct = vm.UsedPercent
	}
	return stats
}
