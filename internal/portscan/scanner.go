package portscan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Scanner 扫描协调器: 解析目标一次, 用固定大小的 worker 池并发探测, 汇总后排序
type Scanner struct {
	policy   Policy
	resolver Resolver
	dial     DialFunc
	log      logrus.FieldLogger
	progress func(ProbeResult)
}

// Option 扫描器可选配置
type Option func(*Scanner)

// WithResolver 替换目标解析器
func WithResolver(r Resolver) Option {
	return func(s *Scanner) { s.resolver = r }
}

// WithDialer 替换连接原语
func WithDialer(d DialFunc) Option {
	return func(s *Scanner) { s.dial = d }
}

// WithLogger 设置日志
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Scanner) { s.log = l }
}

// WithProgress 每收到一个结果回调一次, 只在汇总协程中调用
func WithProgress(fn func(ProbeResult)) Option {
	return func(s *Scanner) { s.progress = fn }
}

// NewScanner 创建一个新的扫描器实例
func NewScanner(policy Policy, opts ...Option) *Scanner {
	s := &Scanner{
		policy:   policy,
		resolver: DNSResolver{},
		log:      discardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy 返回扫描器使用的策略
func (s *Scanner) Policy() Policy {
	return s.policy
}

// Scan 探测 target 上的全部端口.
// 只有策略/端口非法或目标解析失败时返回 error 且报告为 nil;
// ctx 被取消导致端口未完成时返回完整报告(未完成端口记为 error)以及 ctx.Err().
func (s *Scanner) Scan(ctx context.Context, target string, ports []int) (*ScanReport, error) {
	if err := s.policy.Validate(); err != nil {
		return nil, err
	}
	if err := validatePorts(ports); err != nil {
		return nil, err
	}

	addr, err := s.resolver.Resolve(ctx, target)
	if err != nil {
		var re *ResolveError
		if !errors.As(err, &re) {
			err = &ResolveError{Target: target, Err: err}
		}
		return nil, err
	}

	log := s.log.WithFields(logrus.Fields{"target": target, "addr": addr})
	log.WithFields(logrus.Fields{
		"ports":       len(ports),
		"concurrency": s.policy.Concurrency,
		"timeout":     s.policy.Timeout,
		"retries":     s.policy.Retries,
	}).Info("scan started")

	start := time.Now()
	collected := s.run(ctx, addr, ports)

	// 被取消时补齐未派发的端口
	for _, p := range ports {
		if _, ok := collected[p]; !ok {
			collected[p] = ProbeResult{Port: p, State: StateError, Info: infoCancelled}
		}
	}

	// 全部端口都已正常完成时, 迟到的取消不算中断
	interrupted := false
	results := make([]ProbeResult, 0, len(collected))
	for _, r := range collected {
		if r.State == StateError && r.Info == infoCancelled {
			interrupted = true
		}
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Port < results[j].Port })

	report := &ScanReport{
		ID:              uuid.NewString(),
		Target:          target,
		ResolvedAddress: addr,
		StartedAt:       start,
		ElapsedSeconds:  time.Since(start).Seconds(),
		Results:         results,
	}
	log.WithFields(logrus.Fields{
		"open":    len(report.OpenPorts()),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("scan finished")

	if interrupted {
		return report, ctx.Err()
	}
	return report, nil
}

// run 启动 worker 池并在当前协程汇总结果
func (s *Scanner) run(ctx context.Context, addr string, ports []int) map[int]ProbeResult {
	collected := make(map[int]ProbeResult, len(ports))
	if len(ports) == 0 {
		return collected
	}

	prober := NewProber(s.policy, s.dial, s.log)
	workers := min(s.policy.Concurrency, len(ports))
	jobs := make(chan int)
	results := make(chan ProbeResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for port := range jobs {
				results <- safeProbe(ctx, prober, addr, port)
			}
		}()
	}

	// 分发任务
	go func() {
		defer close(jobs)
		for _, p := range ports {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for r := range results {
		collected[r.Port] = r
		if s.progress != nil {
			s.progress(r)
		}
	}
	return collected
}

// safeProbe 将探测过程中的 panic 转为 error 状态, 不影响其他端口
func safeProbe(ctx context.Context, p *Prober, addr string, port int) (res ProbeResult) {
	defer func() {
		if r := recover(); r != nil {
			p.log.WithFields(logrus.Fields{"port": port, "panic": r}).Error("probe panicked")
			res = ProbeResult{Port: port, State: StateError, Info: fmt.Sprintf("probe panic: %v", r)}
		}
	}()
	return p.Probe(ctx, addr, port)
}

func validatePorts(ports []int) error {
	seen := make(map[int]struct{}, len(ports))
	for _, p := range ports {
		if p < 1 || p > 65535 {
			return fmt.Errorf("%w: %d out of range 1-65535", ErrInvalidPort, p)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %d listed more than once", ErrInvalidPort, p)
		}
		seen[p] = struct{}{}
	}
	return nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
