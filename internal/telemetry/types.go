package telemetry

import (
	"encoding/json"
	"time"
)

// Source names one metric endpoint on the agent.
type Source string

const (
	SourceRealtime  Source = "realtime"
	SourceCPU       Source = "cpu"
	SourceCPUInfo   Source = "cpu-all"
	SourceMemory    Source = "memory"
	SourceDisk      Source = "disk"
	SourceNetwork   Source = "network"
	SourceProcesses Source = "processes"
)

// Snapshot is a single point-in-time reading from one Source.
// Snapshots are values and are never modified after the Fetcher returns them.
type Snapshot interface {
	Source() Source
}

// Sample is one slot of a Buffer.
type Sample struct {
	Snapshot Snapshot
	// At is when the fetch completed, Seq the per-source tick number that produced it.
	At  time.Time
	Seq uint64
	// Absent marks a placeholder slot that holds no reading.
	Absent bool
}

// AbsentSample returns a placeholder sample.
func AbsentSample() Sample {
	return Sample{Absent: true}
}

// Present reports whether the sample carries a reading.
func (s Sample) Present() bool {
	return !s.Absent && s.Snapshot != nil
}

// As extracts the typed snapshot from a sample.
func As[T Snapshot](s Sample) (T, bool) {
	var zero T
	if !s.Present() {
		return zero, false
	}
	v, ok := s.Snapshot.(T)
	return v, ok
}

// Series maps samples to plot values. Absent samples (and samples of another
// type) are rendered as gap.
func Series[T Snapshot](samples []Sample, pick func(T) float64, gap float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		v, ok := As[T](s)
		if !ok {
			out[i] = gap
			continue
		}
		out[i] = pick(v)
	}
	return out
}

// Throughput is the agent's current network rate in bytes per second.
type Throughput struct {
	Sent float64 `json:"sent"`
	Recv float64 `json:"recv"`
}

// Frequency is a CPU clock reading in MHz.
type Frequency struct {
	Current float64 `json:"current"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// VirtualMemory mirrors the agent's virtual memory block.
type VirtualMemory struct {
	Total     uint64  `json:"total"`
	Available uint64  `json:"available"`
	Used      uint64  `json:"used"`
	Free      uint64  `json:"free"`
	Percent   float64 `json:"percent"`
}

// SwapMemory mirrors the agent's swap block.
type SwapMemory struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Free    uint64  `json:"free"`
	Percent float64 `json:"percent"`
	SwapIn  uint64  `json:"sin"`
	SwapOut uint64  `json:"sout"`
}

// RealtimeSnapshot is the combined reading served by /realtime.
type RealtimeSnapshot struct {
	Throughput      Throughput `json:"throughput"`
	CPUUsage        float64    `json:"cpu_usage"`
	CPUFrequency    Frequency  `json:"cpu_frequency"`
	Uptime          float64    `json:"uptime"`
	MemoryUsage     uint64     `json:"memory_usage"`
	MemoryTotal     uint64     `json:"memory_total"`
	MemoryPercent   float64    `json:"memory_percent"`
	MemoryAvailable uint64     `json:"memory_available"`
	MemorySwap      SwapMemory `json:"memory_swap"`
	DiskActiveTime  float64    `json:"disk_active_time"`
}

func (RealtimeSnapshot) Source() Source { return SourceRealtime }

// UptimeDuration converts the agent's uptime seconds.
func (r RealtimeSnapshot) UptimeDuration() time.Duration {
	return time.Duration(r.Uptime * float64(time.Second))
}

// CPUUsageSnapshot is served by /cpu/usage.
type CPUUsageSnapshot struct {
	CPUUsage float64 `json:"cpu_usage"`
}

func (CPUUsageSnapshot) Source() Source { return SourceCPU }

// CPUSnapshot is the detailed CPU block served by /cpu/all.
type CPUSnapshot struct {
	CPUUsage        float64            `json:"cpu_usage"`
	PerCPUUsage     []float64          `json:"per_cpu_usage"`
	CPUFrequency    Frequency          `json:"cpu_frequency"`
	CPUCount        int                `json:"cpu_count"`
	LoadAverage     [3]float64         `json:"load_average"`
	CoreUtilization []float64          `json:"core_utilization"`
	CPUTemperature  float64            `json:"cpu_temperature"`
	CPUTimes        map[string]float64 `json:"cpu_times"`
}

func (CPUSnapshot) Source() Source { return SourceCPUInfo }

// MemorySnapshot is served by /memory/all.
type MemorySnapshot struct {
	VirtualMemory   VirtualMemory `json:"virtual_memory"`
	SwapMemory      SwapMemory    `json:"swap_memory"`
	MemoryPercent   float64       `json:"memory_percent"`
	MemoryUsage     uint64        `json:"memory_usage"`
	MemoryAvailable uint64        `json:"memory_available"`
	MemoryTotal     uint64        `json:"memory_total"`
}

func (MemorySnapshot) Source() Source { return SourceMemory }

// Partition is one mounted filesystem.
type Partition struct {
	Device     string `json:"device"`
	Mountpoint string `json:"mountpoint"`
	FSType     string `json:"fstype"`
	Opts       string `json:"opts"`
}

// DiskUsage is capacity usage for one path.
type DiskUsage struct {
	Total   uint64  `json:"total"`
	Used    uint64  `json:"used"`
	Free    uint64  `json:"free"`
	Percent float64 `json:"percent"`
}

// IOCounters are cumulative disk I/O counters.
type IOCounters struct {
	ReadCount  uint64 `json:"read_count"`
	WriteCount uint64 `json:"write_count"`
	ReadBytes  uint64 `json:"read_bytes"`
	WriteBytes uint64 `json:"write_bytes"`
	ReadTime   uint64 `json:"read_time"`
	WriteTime  uint64 `json:"write_time"`
}

// DiskSnapshot is served by /disk/all.
type DiskSnapshot struct {
	Partitions        []Partition           `json:"partitions"`
	Usage             DiskUsage             `json:"usage"`
	IOCounters        IOCounters            `json:"io_counters"`
	IOCountersPerDisk map[string]IOCounters `json:"io_counters_per_disk"`
	ActiveTime        float64               `json:"active_time"`
}

func (DiskSnapshot) Source() Source { return SourceDisk }

// Bandwidth holds cumulative interface counters.
type Bandwidth struct {
	BytesSent       uint64 `json:"bytes_sent"`
	BytesReceived   uint64 `json:"bytes_received"`
	PacketsSent     uint64 `json:"packets_sent"`
	PacketsReceived uint64 `json:"packets_received"`
}

// NetworkSnapshot is served by /network/all.
type NetworkSnapshot struct {
	Bandwidth      Bandwidth `json:"bandwidth_usage"`
	IPv4           string    `json:"ipv4"`
	IPv6           string    `json:"ipv6"`
	ConnectionType string    `json:"type"`
}

func (NetworkSnapshot) Source() Source { return SourceNetwork }

// ProcessInfo is one row of the agent's process list.
type ProcessInfo struct {
	PID         int     `json:"pid"`
	Name        string  `json:"name"`
	Status      string  `json:"status"`
	CPUUsage    float64 `json:"cpu_usage"`
	MemoryUsage string  `json:"memory_usage"`
	StartTime   string  `json:"start_time"`
}

// ProcessListSnapshot is served by /processes as a bare JSON array.
type ProcessListSnapshot struct {
	Processes []ProcessInfo
}

func (ProcessListSnapshot) Source() Source { return SourceProcesses }

// UnmarshalJSON accepts the agent's top-level array.
func (p *ProcessListSnapshot) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &p.Processes)
}

// MarshalJSON writes the list back as an array.
func (p ProcessListSnapshot) MarshalJSON() ([]byte, error) {
	if p.Processes == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(p.Processes)
}
