package portscan

import (
	"fmt"
	"time"
)

// PortState 端口最终状态
type PortState string

const (
	StateOpen     PortState = "open"     // 连接成功
	StateClosed   PortState = "closed"   // 对端明确拒绝 (RST)
	StateFiltered PortState = "filtered" // 重试耗尽仍无明确答复
	StateError    PortState = "error"    // 扫描框架自身故障
)

// ProbeResult 单个端口的探测结果, 生成后不再修改
type ProbeResult struct {
	Port  int       `json:"port" yaml:"port"`
	State PortState `json:"state" yaml:"state"`
	Info  string    `json:"info,omitempty" yaml:"info,omitempty"`
}

// Policy 单次扫描的探测策略
type Policy struct {
	Timeout     time.Duration // 每次连接(及 banner 读取前)的超时
	Retries     int           // 首次尝试之外的额外次数
	Concurrency int           // 同时在途的最大探测数
	GrabBanner  bool          // 连接成功后是否读取 banner
}

// DefaultPolicy 返回默认策略: 1s 超时, 重试 1 次, 并发 200, 不抓 banner
func DefaultPolicy() Policy {
	return Policy{
		Timeout:     time.Second,
		Retries:     1,
		Concurrency: 200,
	}
}

// Validate 检查策略是否可用
func (p Policy) Validate() error {
	switch {
	case p.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidPolicy, p.Timeout)
	case p.Retries < 0:
		return fmt.Errorf("%w: retries must be >= 0, got %d", ErrInvalidPolicy, p.Retries)
	case p.Concurrency <= 0:
		return fmt.Errorf("%w: concurrency must be > 0, got %d", ErrInvalidPolicy, p.Concurrency)
	}
	return nil
}

// ScanReport 一次扫描的完整结果, Results 按端口升序
type ScanReport struct {
	ID              string        `json:"id" yaml:"id"`
	Target          string        `json:"target" yaml:"target"`
	ResolvedAddress string        `json:"resolved_address" yaml:"resolved_address"`
	StartedAt       time.Time     `json:"started_at" yaml:"started_at"`
	ElapsedSeconds  float64       `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	Results         []ProbeResult `json:"results" yaml:"results"`
}

// OpenPorts 返回所有开放端口的结果
func (r *ScanReport) OpenPorts() []ProbeResult {
	var open []ProbeResult
	for _, res := range r.Results {
		if res.State == StateOpen {
			open = append(open, res)
		}
	}
	return open
}

// Counts 按状态统计端口数
func (r *ScanReport) Counts() map[PortState]int {
	counts := make(map[PortState]int, 4)
	for _, res := range r.Results {
		counts[res.State]++
	}
	return counts
}
