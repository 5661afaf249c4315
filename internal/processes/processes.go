// Package processes wraps the agent's process endpoints: listing, lookup by
// PID, and termination.
package processes

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rileyhilliard/vitals/internal/agentapi"
	"github.com/rileyhilliard/vitals/internal/errors"
	"github.com/rileyhilliard/vitals/internal/telemetry"
)

// Client is the subset of the agent client used here.
type Client interface {
	GetJSON(ctx context.Context, path string, out any) error
	PostJSON(ctx context.Context, path string, body, out any) error
}

// List returns the agent's current process table.
func List(ctx context.Context, c Client) ([]telemetry.ProcessInfo, error) {
	var list telemetry.ProcessListSnapshot
	if err := c.GetJSON(ctx, "/processes", &list); err != nil {
		return nil, err
	}
	return list.Processes, nil
}

// Get returns one process. A missing PID yields an error whose message says so.
func Get(ctx context.Context, c Client, pid int) (telemetry.ProcessInfo, error) {
	if err := checkPID(pid); err != nil {
		return telemetry.ProcessInfo{}, err
	}

	var p telemetry.ProcessInfo
	err := c.GetJSON(ctx, fmt.Sprintf("/processes/%d", pid), &p)
	if agentapi.IsNotFound(err) {
		return telemetry.ProcessInfo{}, errors.WrapWithCode(err, errors.ErrFetch,
			fmt.Sprintf("Process %d not found", pid),
			"Run 'vitals processes' to see running PIDs")
	}
	if err != nil {
		return telemetry.ProcessInfo{}, err
	}
	return p, nil
}

// killResponse is the agent's reply to a kill request.
type killResponse struct {
	Result string `json:"res"`
}

// Kill asks the agent to terminate pid and returns the agent's result text.
func Kill(ctx context.Context, c Client, pid int) (string, error) {
	if err := checkPID(pid); err != nil {
		return "", err
	}

	var resp killResponse
	if err := c.PostJSON(ctx, fmt.Sprintf("/killprocess/%d", pid), nil, &resp); err != nil {
		return "", err
	}
	return resp.Result, nil
}

func checkPID(pid int) error {
	if pid <= 0 {
		return errors.New(errors.ErrValidation,
			fmt.Sprintf("Invalid PID %d", pid), "PIDs are positive integers")
	}
	return nil
}

// SortKey orders a process list.
type SortKey string

const (
	SortCPU    SortKey = "cpu"
	SortMemory SortKey = "memory"
	SortPID    SortKey = "pid"
	SortName   SortKey = "name"
)

// SortKeys lists the accepted sort keys in cycle order.
var SortKeys = []SortKey{SortCPU, SortMemory, SortPID, SortName}

// ParseSortKey validates a sort key name.
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range SortKeys {
		if string(k) == strings.ToLower(s) {
			return k, nil
		}
	}
	return "", errors.New(errors.ErrConfig,
		fmt.Sprintf("Unknown sort key '%s'", s), "Use cpu, memory, pid, or name")
}

// Next returns the key after k in SortKeys, wrapping around.
func (k SortKey) Next() SortKey {
	for i, key := range SortKeys {
		if key == k {
			return SortKeys[(i+1)%len(SortKeys)]
		}
	}
	return SortCPU
}

// SortBy returns a sorted copy of list. CPU and memory sort descending,
// PID and name ascending.
func SortBy(list []telemetry.ProcessInfo, key SortKey) []telemetry.ProcessInfo {
	out := make([]telemetry.ProcessInfo, len(list))
	copy(out, list)

	var less func(a, b telemetry.ProcessInfo) bool
	switch key {
	case SortMemory:
		less = func(a, b telemetry.ProcessInfo) bool {
			return ParseMemory(a.MemoryUsage) > ParseMemory(b.MemoryUsage)
		}
	case SortPID:
		less = func(a, b telemetry.ProcessInfo) bool { return a.PID < b.PID }
	case SortName:
		less = func(a, b telemetry.ProcessInfo) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	default:
		less = func(a, b telemetry.ProcessInfo) bool { return a.CPUUsage > b.CPUUsage }
	}

	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

var memoryUnits = map[string]float64{
	"B":  1,
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
	"TB": 1 << 40,
}

// ParseMemory converts the agent's "12.34 MB" strings to bytes. Unparseable
// values return 0.
func ParseMemory(s string) float64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0
	}
	if len(fields) == 1 {
		return n
	}
	mult, ok := memoryUnits[strings.ToUpper(fields[1])]
	if !ok {
		return 0
	}
	return n * mult
}

// Columns are the headers of a process table, in Row order.
var Columns = []string{"PID", "Name", "Status", "CPU%", "Memory", "Started"}

// Row formats p for a table with Columns.
func Row(p telemetry.ProcessInfo) []string {
	return []string{
		strconv.Itoa(p.PID),
		p.Name,
		p.Status,
		fmt.Sprintf("%.1f", p.CPUUsage),
		p.MemoryUsage,
		p.StartTime,
	}
}
