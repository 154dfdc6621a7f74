// Package portspec 将用户输入的端口描述解析为去重、升序的端口列表.
//
// 支持的写法:
//   - 单个端口: "80"
//   - 列表: "22,80,443"
//   - 范围: "1-1024"
//   - 混合: "22,80,8000-8100"
package portspec

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	MinPort = 1
	MaxPort = 65535
)

// ErrInvalidSpec 端口描述格式错误
var ErrInvalidSpec = errors.New("invalid port spec")

// Parse 解析端口描述
func Parse(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSpec)
	}

	seen := make(map[int]struct{})
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return nil, fmt.Errorf("%w: empty token in %q", ErrInvalidSpec, spec)
		}
		lo, hi, err := parseToken(tok)
		if err != nil {
			return nil, err
		}
		for p := lo; p <= hi; p++ {
			seen[p] = struct{}{}
		}
	}

	ports := make([]int, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	sort.Ints(ports)
	return ports, nil
}

// Range 返回 [start, end] 区间内的全部端口
func Range(start, end int) ([]int, error) {
	if err := checkBounds(start, end, fmt.Sprintf("%d-%d", start, end)); err != nil {
		return nil, err
	}
	ports := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		ports = append(ports, p)
	}
	return ports, nil
}

func parseToken(tok string) (int, int, error) {
	lo, hi, isRange := strings.Cut(tok, "-")
	start, err := atoi(lo, tok)
	if err != nil {
		return 0, 0, err
	}
	end := start
	if isRange {
		if end, err = atoi(hi, tok); err != nil {
			return 0, 0, err
		}
	}
	if err := checkBounds(start, end, tok); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func atoi(s, tok string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: bad number in %q", ErrInvalidSpec, tok)
	}
	return n, nil
}

func checkBounds(start, end int, tok string) error {
	if start < MinPort || end < MinPort || start > MaxPort || end > MaxPort {
		return fmt.Errorf("%w: %q outside %d-%d", ErrInvalidSpec, tok, MinPort, MaxPort)
	}
	if start > end {
		return fmt.Errorf("%w: range start greater than end in %q", ErrInvalidSpec, tok)
	}
	return nil
}
