package portscan

import (
	"context"
	"errors"
	"net"
)

// Resolver 将目标名解析为单个可探测地址
type Resolver interface {
	Resolve(ctx context.Context, target string) (string, error)
}

// ResolverFunc 函数适配器
type ResolverFunc func(ctx context.Context, target string) (string, error)

func (f ResolverFunc) Resolve(ctx context.Context, target string) (string, error) {
	return f(ctx, target)
}

// DNSResolver 默认解析器, 优先返回 IPv4, 只有 IPv6 记录时退回 IPv6
type DNSResolver struct {
	// LookupIPAddr 为空时使用 net.DefaultResolver
	LookupIPAddr func(ctx context.Context, host string) ([]net.IPAddr, error)
}

func (r DNSResolver) Resolve(ctx context.Context, target string) (string, error) {
	if target == "" {
		return "", &ResolveError{Target: target, Err: errors.New("empty target")}
	}
	// IP 字面量不走 DNS
	if ip := net.ParseIP(target); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4.String(), nil
		}
		return ip.String(), nil
	}

	lookup := r.LookupIPAddr
	if lookup == nil {
		lookup = net.DefaultResolver.LookupIPAddr
	}
	addrs, err := lookup(ctx, target)
	if err != nil {
		return "", &ResolveError{Target: target, Err: err}
	}

	var firstV6 net.IP
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
		if firstV6 == nil {
			firstV6 = a.IP
		}
	}
	if firstV6 != nil {
		return firstV6.String(), nil
	}
	return "", &ResolveError{Target: target, Err: errors.New("no address records")}
}
