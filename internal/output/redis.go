package output

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"PscannerGo/internal/portscan"
)

// RedisSink 将扫描报告写入 Redis: <prefix>:<id> 存 JSON, <prefix>:index 记录 id 列表(最新在前)
type RedisSink struct {
	client    redis.Cmdable
	keyPrefix string
	ttl       time.Duration
}

// NewRedisClient 创建客户端并 Ping 确认可用
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisSink ttl 为 0 时报告不过期
func NewRedisSink(client redis.Cmdable, keyPrefix string, ttl time.Duration) *RedisSink {
	return &RedisSink{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

// ReportKey 报告在 Redis 中的键
func (s *RedisSink) ReportKey(id string) string {
	return s.keyPrefix + ":" + id
}

// IndexKey 报告 id 列表的键
func (s *RedisSink) IndexKey() string {
	return s.keyPrefix + ":index"
}

// Publish 写入报告并登记到索引
func (s *RedisSink) Publish(ctx context.Context, report *portscan.ScanReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.ReportKey(report.ID), payload, s.ttl)
		pipe.LPush(ctx, s.IndexKey(), report.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish report %s: %w", report.ID, err)
	}
	return nil
}

// Fetch 按 id 读取报告
func (s *RedisSink) Fetch(ctx context.Context, id string) (*portscan.ScanReport, error) {
	data, err := s.client.Get(ctx, s.ReportKey(id)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("fetch report %s: %w", id, err)
	}
	report := &portscan.ScanReport{}
	if err := json.Unmarshal(data, report); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return report, nil
}
