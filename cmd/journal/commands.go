package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"trade-journal-go/internal/client"
	"trade-journal-go/internal/export"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/models"
)

var errUsage = errors.New("usage")

var timeNow = time.Now

type cli struct {
	client *client.Client
	out    io.Writer
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add":
		return c.add(ctx, rest)
	case "list":
		trades, err := c.client.ListTrades(ctx)
		if err != nil {
			return err
		}
		return c.printTrades(trades)
	case "delete":
		id, err := idArg(rest)
		if err != nil {
			return err
		}
		if err := c.client.DeleteTrade(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Deleted trade %d\n", id)
		return nil
	case "recent":
		return c.recent(ctx, rest)
	case "stats":
		return c.stats(ctx)
	case "calendar":
		return c.calendar(ctx, rest)
	case "equity":
		return c.equity(ctx)
	case "report":
		return c.report(ctx, rest)
	case "export":
		return c.export(ctx, rest)
	case "restore":
		return c.restore(ctx, rest)
	case "todo":
		return c.todo(ctx, rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (c *cli) add(ctx context.Context, args []string) error {
	var raw journal.RawTradeInput
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.StringVar(&raw.Date, "date", "", "trade date, YYYY-MM-DDTHH:MM (default now)")
	fs.StringVar(&raw.Market, "market", models.MarketStock, "Stock, Forex, Crypto, ...")
	fs.StringVar(&raw.Symbol, "symbol", "", "instrument symbol")
	fs.StringVar(&raw.Style, "style", "", "trading style label")
	fs.StringVar(&raw.Type, "type", string(models.TradeTypeLong), "Long or Short")
	fs.StringVar(&raw.Qty, "qty", "", "quantity")
	fs.StringVar(&raw.EntryPrice, "entry", "", "entry price")
	fs.StringVar(&raw.ExitPrice, "exit", "", "exit price, blank leaves the trade open")
	fs.StringVar(&raw.Fees, "fees", "", "fees")
	fs.StringVar(&raw.Leverage, "leverage", "", "leverage (default 1)")
	fs.StringVar(&raw.Investment, "investment", "", "capital committed")
	fs.StringVar(&raw.Notes, "notes", "", "free text")
	fs.StringVar(&raw.ManualPnL, "pnl", "", "manual P&L override")
	if err := fs.Parse(args); err != nil {
		return err
	}

	trade, err := c.client.AddTrade(ctx, raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Added trade %d: %s %s %s", trade.ID, trade.Symbol, trade.Type, trade.Status)
	if trade.IsClosed() {
		fmt.Fprintf(c.out, " %s (ROI %s)", export.FormatUSD(trade.PnL), trade.ROI)
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *cli) recent(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("recent", flag.ContinueOnError)
	n := fs.Int("n", 5, "number of trades")
	if err := fs.Parse(args); err != nil {
		return err
	}
	trades, err := c.client.RecentTrades(ctx, *n)
	if err != nil {
		return err
	}
	return c.printTrades(trades)
}

func (c *cli) stats(ctx context.Context) error {
	kpis, err := c.client.Statistics(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Total P&L\t%s\n", export.FormatUSD(kpis.TotalPnL))
	fmt.Fprintf(tw, "Win Rate\t%.1f%%\n", kpis.WinRate)
	fmt.Fprintf(tw, "Profit Factor\t%.2f\n", kpis.ProfitFactor)
	fmt.Fprintf(tw, "Trades\t%d (%d wins, %d losses)\n", kpis.TradeCount, kpis.Wins, kpis.Losses)
	return tw.Flush()
}

func (c *cli) calendar(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("calendar", flag.ContinueOnError)
	month := fs.String("month", "", "YYYY-MM (default current month)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cal, err := c.client.Calendar(ctx, *month)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "%04d-%02d  total %s\n", cal.Year, cal.Month, export.FormatUSD(cal.TotalPnL))
	tw := tabwriter.NewWriter(c.out, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Sun\tMon\tTue\tWed\tThu\tFri\tSat\t")
	cell := 0
	for ; cell < cal.LeadingBlanks; cell++ {
		fmt.Fprint(tw, "\t")
	}
	for _, day := range cal.Days {
		label := strconv.Itoa(day.Day)
		if day.HasPnL {
			label += " " + export.FormatUSD(day.PnL)
		}
		fmt.Fprint(tw, label+"\t")
		cell++
		if cell%7 == 0 {
			fmt.Fprintln(tw)
		}
	}
	if cell%7 != 0 {
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func (c *cli) equity(ctx context.Context) error {
	curve, err := c.client.Equity(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Date\tTrade\tP&L\tCumulative")
	for _, p := range curve {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", p.Date, p.TradeID, export.FormatUSD(p.PnL), export.FormatUSD(p.Cumulative))
	}
	return tw.Flush()
}

func periodFlags(name string) (*flag.FlagSet, *string, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	kind := fs.String("kind", "day", "day, week or month")
	value := fs.String("value", "", "YYYY-MM-DD, YYYY-Www or YYYY-MM")
	return fs, kind, value
}

func (c *cli) report(ctx context.Context, args []string) error {
	fs, kind, value := periodFlags("report")
	if err := fs.Parse(args); err != nil {
		return err
	}
	report, err := c.client.Report(ctx, *kind, *value)
	if err != nil {
		return err
	}
	doc := export.NewDocument(report, timeNow())
	return doc.WriteText(c.out)
}

func (c *cli) export(ctx context.Context, args []string) error {
	fs, kind, value := periodFlags("export")
	format := fs.String("format", "csv", "csv or text")
	dir := fs.String("o", ".", "output directory")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filename, body, err := c.client.Export(ctx, *kind, *value, *format)
	if err != nil {
		return err
	}
	if filename == "" {
		filename = "Trade_Review" + export.Format(*format).Extension()
	}
	path := filepath.Join(*dir, filepath.Base(filename))
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	fmt.Fprintf(c.out, "Saved %s\n", path)
	return nil
}

func (c *cli) restore(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: restore <file.json>", errUsage)
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	var trades []models.Trade
	if err := json.Unmarshal(data, &trades); err != nil {
		return fmt.Errorf("failed to decode %s: %w", args[0], err)
	}

	n, err := c.client.RestoreTrades(ctx, trades)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Restored %d trades\n", n)
	return nil
}

func (c *cli) todo(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: todo add|list|toggle|rm", errUsage)
	}

	switch args[0] {
	case "add":
		todo, err := c.client.AddTodo(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Added todo %d\n", todo.ID)
	case "list":
		todos, err := c.client.Todos(ctx)
		if err != nil {
			return err
		}
		for _, todo := range todos {
			mark := " "
			if todo.Completed {
				mark = "x"
			}
			fmt.Fprintf(c.out, "[%s] %d %s\n", mark, todo.ID, todo.Text)
		}
	case "toggle":
		id, err := idArg(args[1:])
		if err != nil {
			return err
		}
		todo, err := c.client.ToggleTodo(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Todo %d completed=%t\n", todo.ID, todo.Completed)
	case "rm":
		id, err := idArg(args[1:])
		if err != nil {
			return err
		}
		if err := c.client.DeleteTodo(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "Deleted todo %d\n", id)
	default:
		return fmt.Errorf("%w: unknown todo command %q", errUsage, args[0])
	}
	return nil
}

func (c *cli) printTrades(trades []models.Trade) error {
	tw := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDate\tMarket\tSymbol\tType\tStatus\tP&L\tROI")
	for _, t := range trades {
		pnl, roi := "-", "-"
		if t.IsClosed() {
			pnl = export.FormatUSD(t.PnL)
			roi = t.ROI.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Date.DateKey(), t.DisplayMarket(), t.Symbol, t.Type, t.Status, pnl, roi)
	}
	return tw.Flush()
}

func idArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: expected one id", errUsage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}
