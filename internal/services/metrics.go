package services

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

type MetricSample struct {
	CapturedAt         time.Time `json:"capturedAt" db:"captured_at"`
	ProcessMemoryBytes int64     `json:"processMemoryBytes" db:"process_memory_bytes"`
	SystemMemoryTotal  int64     `json:"systemMemoryTotalBytes" db:"system_memory_total_bytes"`
	SystemMemoryUsed   int64     `json:"systemMemoryUsedBytes" db:"system_memory_used_bytes"`
	DiskTotalBytes     int64     `json:"diskTotalBytes" db:"disk_total_bytes"`
	DiskUsedBytes      int64     `json:"diskUsedBytes" db:"disk_used_bytes"`
	ProcessCpuLoad     float64   `json:"processCpuLoad" db:"process_cpu_load"`
	SystemCpuLoad      float64   `json:"systemCpuLoad" db:"system_cpu_load"`
}

// CaptureMetrics samples process and host health plus the media volume's
// disk usage, and persists the sample for the history endpoint.
func CaptureMetrics(db *sqlx.DB, diskPath string) (MetricSample, error) {
	proc, _ := process.NewProcess(int32(os.Getpid()))
	memStat, _ := mem.VirtualMemory()
	diskStat, err := disk.Usage(diskPath)
	if err != nil {
		diskStat, _ = disk.Usage("/")
	}
	processRSS := int64(0)
	processCPU := float64(0)
	if proc != nil {
		rss, _ := proc.MemoryInfo()
		if rss != nil {
			processRSS = int64(rss.RSS)
		}
		cpuPerc, _ := proc.CPUPercent()
		processCPU = cpuPerc / 100.0
	}
	sysCPU, _ := cpu.Percent(0, false)
	sysCPUValue := 0.0
	if len(sysCPU) > 0 {
		sysCPUValue = sysCPU[0] / 100.0
	}
	sample := MetricSample{
		CapturedAt:         time.Now().UTC(),
		ProcessMemoryBytes: processRSS,
		SystemMemoryTotal:  int64(memStat.Total),
		SystemMemoryUsed:   int64(memStat.Total - memStat.Available),
		ProcessCpuLoad:     processCPU,
		SystemCpuLoad:      sysCPUValue,
	}
	if diskStat != nil {
		sample.DiskTotalBytes = int64(diskStat.Total)
		sample.DiskUsedBytes = int64(diskStat.Used)
	}

	_, err = db.Exec(`
INSERT INTO server_metric_samples (
  id, captured_at, process_memory_bytes, system_memory_total_bytes,
  system_memory_used_bytes, disk_total_bytes, disk_used_bytes, process_cpu_load, system_cpu_load
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, uuid.NewString(), sample.CapturedAt, sample.ProcessMemoryBytes, sample.SystemMemoryTotal,
		sample.SystemMemoryUsed, sample.DiskTotalBytes, sample.DiskUsedBytes, sample.ProcessCpuLoad, sample.SystemCpuLoad)
	if err != nil {
		return MetricSample{}, err
	}
	return sample, nil
}

// LatestMetrics returns the most recent samples in chronological order.
func LatestMetrics(db *sqlx.DB, limit int) ([]MetricSample, error) {
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	rows := []MetricSample{}
	if err := db.Select(&rows, `
SELECT captured_at, process_memory_bytes, system_memory_total_bytes,
       system_memory_used_bytes, disk_total_bytes, disk_used_bytes, process_cpu_load, system_cpu_load
FROM server_metric_samples
ORDER BY captured_at DESC
LIMIT ?
`, limit); err != nil {
		return nil, err
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// PruneMetrics drops samples older than the retention window.
func PruneMetrics(db *sqlx.DB, retention time.Duration) error {
	_, err := db.Exec(`DELETE FROM server_metric_samples WHERE captured_at < ?`,
		time.Now().UTC().Add(-retention))
	return err
}

// MetricsHub fans captured samples out to connected websocket clients.
type MetricsHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	ch      chan MetricSample
}

func NewMetricsHub() *MetricsHub {
	return &MetricsHub{
		clients: map[*websocket.Conn]bool{},
		ch:      make(chan MetricSample, 16),
	}
}

func (h *MetricsHub) Run(ctx context.Context) {
	for {
		select {
		case sample := <-h.ch:
			h.mu.Lock()
			for conn := range h.clients {
				if err := conn.WriteJSON(sample); err != nil {
					delete(h.clients, conn)
					_ = conn.Close()
				}
			}
			h.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// Broadcast queues a sample without blocking the sampler; slow consumers
// drop samples rather than stall capture.
func (h *MetricsHub) Broadcast(sample MetricSample) {
	select {
	case h.ch <- sample:
	default:
	}
}

func (h *MetricsHub) Add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
}

func (h *MetricsHub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}
