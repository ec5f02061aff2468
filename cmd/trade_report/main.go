package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"stock-exchange-go/market"
	"stock-exchange-go/posttrade"
)

// report 从 JSON 日志中汇总的结果
type report struct {
	analyzer *posttrade.Analyzer
	rejects  map[string]int // reason -> 次数
	failed   int
}

func main() {
	logPath := flag.String("log", "logs/exchange.log", "交易所 JSON 日志路径")
	symbol := flag.String("symbol", "", "仅统计指定股票 (默认全量)")
	sinceStr := flag.String("since", "", "仅统计此时间之后的记录 (RFC3339，例如 2025-11-22T00:00:00Z)")
	flag.Parse()

	var since time.Time
	var err error
	if *sinceStr != "" {
		since, err = time.Parse(time.RFC3339Nano, *sinceStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "解析 since 参数失败: %v\n", err)
			os.Exit(1)
		}
	}

	f, err := os.Open(*logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法读取日志: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	rep, err := parse(f, *symbol, since)
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取日志出错: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("统计文件: %s\n", *logPath)
	if !since.IsZero() {
		fmt.Printf("起始时间: %s\n", since.Format(time.RFC3339))
	}
	for _, st := range rep.analyzer.All() {
		fmt.Printf("%-8s 成交 %d 笔  数量 %d  金额 %s  VWAP %s  区间 [%s, %s]  最新 %s\n",
			st.Symbol, st.Trades, st.Volume, st.Notional.StringFixed(2), st.VWAP.StringFixed(4),
			st.Low, st.High, st.Last)
	}
	fmt.Printf("结算失败: %d\n", rep.failed)
	reasons := make([]string, 0, len(rep.rejects))
	for r := range rep.rejects {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("拒单 %-40s %d\n", r, rep.rejects[r])
	}
}

func parse(r io.Reader, symbol string, since time.Time) (*report, error) {
	rep := &report{
		analyzer: posttrade.NewAnalyzer(nil),
		rejects:  make(map[string]int),
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		idx := strings.Index(line, "{")
		if idx == -1 {
			continue
		}
		var evt map[string]interface{}
		if err := json.Unmarshal([]byte(line[idx:]), &evt); err != nil {
			continue
		}
		sym, _ := evt["symbol"].(string)
		if symbol != "" && sym != symbol {
			continue
		}
		ts := parseTs(evt["ts"])
		if !since.IsZero() && !ts.IsZero() && ts.Before(since) {
			continue
		}

		switch evt["msg"] {
		case "trade_event":
			price, err := decimal.NewFromString(fmt.Sprint(evt["price"]))
			if err != nil {
				continue
			}
			qty, _ := evt["qty"].(float64)
			rep.analyzer.OnTrade(market.Trade{Symbol: sym, Price: price, Qty: int64(qty), Ts: ts})
		case "reject_event":
			reason, _ := evt["reason"].(string)
			rep.rejects[reason]++
		case "settlement failed":
			rep.failed++
		}
	}
	return rep, scanner.Err()
}

func parseTs(v interface{}) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
