package portscan

import (
	"context"
	"errors"
	"net"
	"testing"
)

func TestDNSResolver(t *testing.T) {
	lookup := func(addrs []net.IPAddr, err error) func(context.Context, string) ([]net.IPAddr, error) {
		return func(context.Context, string) ([]net.IPAddr, error) { return addrs, err }
	}

	t.Run("IPv4Literal", func(t *testing.T) {
		r := DNSResolver{LookupIPAddr: lookup(nil, errors.New("must not be called"))}
		got, err := r.Resolve(context.Background(), "10.0.0.5")
		if err != nil || got != "10.0.0.5" {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("IPv6Literal", func(t *testing.T) {
		got, err := DNSResolver{}.Resolve(context.Background(), "::1")
		if err != nil || got != "::1" {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("PrefersIPv4", func(t *testing.T) {
		r := DNSResolver{LookupIPAddr: lookup([]net.IPAddr{
			{IP: net.ParseIP("2001:db8::1")},
			{IP: net.ParseIP("192.0.2.7")},
		}, nil)}
		got, err := r.Resolve(context.Background(), "dual.example")
		if err != nil || got != "192.0.2.7" {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("IPv6Only", func(t *testing.T) {
		r := DNSResolver{LookupIPAddr: lookup([]net.IPAddr{{IP: net.ParseIP("2001:db8::1")}}, nil)}
		got, err := r.Resolve(context.Background(), "v6.example")
		if err != nil || got != "2001:db8::1" {
			t.Fatalf("got %q, %v", got, err)
		}
	})

	t.Run("LookupError", func(t *testing.T) {
		r := DNSResolver{LookupIPAddr: lookup(nil, &net.DNSError{Err: "no such host", Name: "bad.example", IsNotFound: true})}
		_, err := r.Resolve(context.Background(), "bad.example")
		if !errors.Is(err, ErrResolve) {
			t.Fatalf("expected ErrResolve, got %v", err)
		}
		var dnsErr *net.DNSError
		if !errors.As(err, &dnsErr) {
			t.Fatalf("expected wrapped *net.DNSError, got %v", err)
		}
	})

	t.Run("NoRecords", func(t *testing.T) {
		r := DNSResolver{LookupIPAddr: lookup(nil, nil)}
		if _, err := r.Resolve(context.Background(), "empty.example"); !errors.Is(err, ErrResolve) {
			t.Fatalf("expected ErrResolve, got %v", err)
		}
	})

	t.Run("EmptyTarget", func(t *testing.T) {
		if _, err := (DNSResolver{}).Resolve(context.Background(), ""); !errors.Is(err, ErrResolve) {
			t.Fatalf("expected ErrResolve, got %v", err)
		}
	})
}
