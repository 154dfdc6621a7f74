package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"PscannerGo/internal/config"
	"PscannerGo/internal/logger"
	"PscannerGo/internal/output"
	"PscannerGo/internal/portscan"
	"PscannerGo/internal/portspec"
)

const (
	exitOK      = 0
	exitUsage   = 2
	exitConfig  = 3
	exitRuntime = 4
	exitSignal  = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	target := flag.String("ip", "", "目标主机名或IP地址")
	portsSpec := flag.String("p", "", "端口, 例如 22,80,443 或 1-1024 (优先于 -start/-end)")
	startPort := flag.Int("start", 1, "起始端口")
	endPort := flag.Int("end", 1024, "结束端口")
	threads := flag.Int("t", 200, "并发数")
	timeout := flag.Float64("timeout", 1.0, "每次连接超时(秒)")
	retries := flag.Int("retries", 1, "超时后的重试次数")
	banner := flag.Bool("banner", false, "连接成功后读取 banner")
	outFile := flag.String("o", "", "结果文件名 (写入 -dir 目录)")
	outDir := flag.String("dir", "result", "结果目录")
	format := flag.String("format", "json", "结果格式 json|yaml")
	cfgPath := flag.String("config", "", "YAML 配置文件")
	table := flag.Bool("table", false, "打印全部端口表格")
	publish := flag.Bool("redis", false, "将报告写入 Redis")
	verbose := flag.Bool("v", false, "显示调试日志")
	flag.Parse()

	cfg, err := config.Load(*cfgPath, ".env")
	if err != nil {
		color.Red("[-]配置加载失败: %v", err)
		return exitConfig
	}

	// 命令行显式指定的参数覆盖配置
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.Scanner.Concurrency = *threads
		case "timeout":
			cfg.Scanner.Timeout = *timeout
		case "retries":
			cfg.Scanner.Retries = *retries
		case "banner":
			cfg.Scanner.Banner = *banner
		case "o":
			cfg.Output.File = *outFile
		case "dir":
			cfg.Output.Dir = *outDir
		case "format":
			cfg.Output.Format = *format
		case "redis":
			cfg.Redis.Enabled = *publish
		case "v":
			if *verbose {
				cfg.Log.Level = "debug"
			}
		}
	})

	if *target == "" && flag.NArg() > 0 {
		*target = flag.Arg(0)
	}
	if *target == "" {
		color.Red("[-]缺少目标, 使用 -ip 指定")
		flag.Usage()
		return exitUsage
	}

	var ports []int
	if *portsSpec != "" {
		ports, err = portspec.Parse(*portsSpec)
	} else {
		ports, err = portspec.Range(*startPort, *endPort)
	}
	if err != nil {
		color.Red("[-]端口参数错误: %v", err)
		return exitUsage
	}

	policy, err := cfg.Scanner.Policy()
	if err != nil {
		color.Red("[-]扫描参数错误: %v", err)
		return exitConfig
	}
	fmtOut, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		color.Red("[-]%v", err)
		return exitConfig
	}
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		color.Red("[-]日志配置错误: %v", err)
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	color.Cyan("--- 开始扫描 %s [%d 个端口] ---\n", *target, len(ports))
	color.Cyan("--- 并发数: %d | 超时: %s | 重试: %d ---\n", policy.Concurrency, policy.Timeout, policy.Retries)

	bar := progressbar.NewOptions(len(ports),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription("[cyan][扫描中][reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	scanner := portscan.NewScanner(policy,
		portscan.WithLogger(log),
		portscan.WithProgress(func(r portscan.ProbeResult) {
			_ = bar.Add(1)
			if r.State == portscan.StateOpen {
				_ = bar.Clear()
				color.Green("\r[+]Port: %s:%d Open!\n", *target, r.Port)
			}
		}),
	)

	report, err := scanner.Scan(ctx, *target, ports)
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	if report == nil {
		if errors.Is(err, portscan.ErrResolve) {
			color.Red("[-]目标解析失败: %v", err)
			return exitRuntime
		}
		color.Red("[-]扫描失败: %v", err)
		return exitUsage
	}
	interrupted := err != nil
	if interrupted {
		color.Yellow("[!]扫描被中断, 未完成的端口记为 error")
	}

	fmt.Println("============================")
	output.PrintSummary(os.Stdout, report)
	if *table {
		output.PrintTable(os.Stdout, report)
	}

	code := exitOK
	if cfg.Output.File != "" {
		path := filepath.Join(cfg.Output.Dir, cfg.Output.File)
		if filepath.Ext(path) == "" {
			path += fmtOut.Ext()
		}
		if err := output.SaveReport(path, report, fmtOut); err != nil {
			color.Red("[-]结果保存失败: %v", err)
			code = exitRuntime
		} else {
			color.Cyan("[+]结果已保存到 %s\n", path)
		}
	}

	if cfg.Redis.Enabled {
		if err := publishReport(cfg.Redis, report); err != nil {
			log.WithError(err).Error("redis publish failed")
			code = exitRuntime
		} else {
			color.Cyan("[+]报告已写入 Redis: %s\n", cfg.Redis.KeyPrefix+":"+report.ID)
		}
	}

	if interrupted && code == exitOK {
		code = exitSignal
	}
	return code
}

func publishReport(rc config.RedisConfig, report *portscan.ScanReport) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := output.NewRedisClient(ctx, rc.Addr, rc.Password, rc.DB)
	if err != nil {
		return err
	}
	defer client.Close()

	return output.NewRedisSink(client, rc.KeyPrefix, rc.TTLDuration()).Publish(ctx, report)
}
