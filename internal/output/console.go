package output

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"PscannerGo/internal/portscan"
)

var (
	okColor   = color.New(color.FgGreen)
	infoColor = color.New(color.FgCyan)
	warnColor = color.New(color.FgYellow)
)

// PrintSummary 打印耗时、开放端口数以及每个开放端口一行
func PrintSummary(w io.Writer, report *portscan.ScanReport) {
	open := report.OpenPorts()
	infoColor.Fprintf(w, "[+] Done in %.2fs - Open ports: %d\n", report.ElapsedSeconds, len(open))
	for _, r := range open {
		okColor.Fprintf(w, "  - %d open  info: %s\n", r.Port, r.Info)
	}

	counts := report.Counts()
	if n := counts[portscan.StateError]; n > 0 {
		warnColor.Fprintf(w, "[!] %d port(s) could not be probed\n", n)
	}
}

// PrintTable 打印全部端口的表格
func PrintTable(w io.Writer, report *portscan.ScanReport) {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	fmt.Fprintf(tw, "TARGET\tADDRESS\tPORT\tSTATE\tINFO\n")
	for _, r := range report.Results {
		fmt.Fprintf(tw, "%s\t%s\t%d/tcp\t%s\t%s\n",
			report.Target, report.ResolvedAddress, r.Port, r.State, r.Info)
	}
	_ = tw.Flush()
}
