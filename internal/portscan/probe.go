package portscan

import (
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	bannerReadTimeout = time.Second
	bannerMaxBytes    = 1024

	infoRefused   = "connection refused"
	infoTimeout   = "timeout"
	infoCancelled = "scan cancelled"
)

// DialFunc 建立 TCP 连接的原语, 测试中可替换
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// dialOutcome 单次连接尝试的结果分类
type dialOutcome int

const (
	outcomeConnected dialOutcome = iota
	outcomeRefused
	outcomeTimedOut
	outcomeTransportError
)

func classifyDial(err error) dialOutcome {
	if err == nil {
		return outcomeConnected
	}
	if isRefused(err) {
		return outcomeRefused
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return outcomeTimedOut
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return outcomeTimedOut
	}
	return outcomeTransportError
}

// isRefused Windows 上拨号返回 WSAECONNREFUSED, 与 syscall.ECONNREFUSED 不相等, 按错误文本兜底
func isRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "actively refused")
}

// Prober 探测单元: 对一个端口做有限次、有超时的连接尝试并分类
type Prober struct {
	policy        Policy
	dial          DialFunc
	bannerTimeout time.Duration
	log           logrus.FieldLogger
}

// NewProber 创建探测单元, dial 为空时使用禁用 KeepAlive 的 net.Dialer
func NewProber(policy Policy, dial DialFunc, log logrus.FieldLogger) *Prober {
	if dial == nil {
		d := &net.Dialer{
			Timeout:   policy.Timeout,
			KeepAlive: -1, // 扫描不需要保持连接
		}
		dial = d.DialContext
	}
	if log == nil {
		log = discardLogger()
	}
	return &Prober{
		policy:        policy,
		dial:          dial,
		bannerTimeout: bannerReadTimeout,
		log:           log,
	}
}

// Probe 探测 address:port, 所有失败都归入 PortState, 不返回 error
func (p *Prober) Probe(ctx context.Context, address string, port int) ProbeResult {
	target := net.JoinHostPort(address, strconv.Itoa(port))
	attempts := p.policy.Retries + 1
	lastErr := infoTimeout

	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ProbeResult{Port: port, State: StateError, Info: infoCancelled}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, p.policy.Timeout)
		conn, err := p.dial(attemptCtx, "tcp", target)
		cancel()

		entry := p.log.WithFields(logrus.Fields{"addr": target, "attempt": attempt})
		switch classifyDial(err) {
		case outcomeConnected:
			banner := ""
			if p.policy.GrabBanner {
				banner = p.readBanner(conn)
			}
			_ = conn.Close()
			entry.Debug("connected")
			return ProbeResult{Port: port, State: StateOpen, Info: banner}
		case outcomeRefused:
			entry.Debug("refused")
			return ProbeResult{Port: port, State: StateClosed, Info: infoRefused}
		case outcomeTimedOut:
			// 父 context 被取消时 DialContext 同样返回超时类错误
			if ctx.Err() != nil {
				return ProbeResult{Port: port, State: StateError, Info: infoCancelled}
			}
			entry.Debug("timed out")
		case outcomeTransportError:
			if ctx.Err() != nil {
				return ProbeResult{Port: port, State: StateError, Info: infoCancelled}
			}
			lastErr = err.Error()
			entry.WithError(err).Debug("transport error")
		}
	}

	return ProbeResult{Port: port, State: StateFiltered, Info: lastErr}
}

// readBanner 读取服务主动发送的首批数据, 失败时返回空串
func (p *Prober) readBanner(conn net.Conn) string {
	if err := conn.SetReadDeadline(time.Now().Add(p.bannerTimeout)); err != nil {
		return ""
	}
	buf := make([]byte, bannerMaxBytes)
	n, _ := conn.Read(buf)
	if n <= 0 {
		return ""
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(buf[:n]), ""))
}
