package quote

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/sig-0/btcrates/cmd/env"
	"github.com/sig-0/btcrates/provider/coinbase"
	"github.com/sig-0/btcrates/provider/currencies"
	"github.com/sig-0/btcrates/server/config"
	"github.com/sig-0/btcrates/storage/types"
)

var errNoCurrencies = errors.New("at least one term currency is required")

// quoteCfg wraps the quote configuration
type quoteCfg struct {
	out io.Writer

	baseURL  string
	logLevel string
	timeout  time.Duration
	json     bool
}

// NewQuoteCmd creates the quote subcommand, writing quotes to out
func NewQuoteCmd(out io.Writer) *ffcli.Command {
	cfg := &quoteCfg{
		out: out,
	}

	fs := flag.NewFlagSet("quote", flag.ExitOnError)
	cfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "quote",
		ShortUsage: "quote [flags] <TERM>...",
		LongHelp:   "Quotes the current BTC exchange rate in each given currency, using Coinbase",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *quoteCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.baseURL,
		"coinbase-url",
		config.DefaultCoinbaseBaseURL,
		"the Coinbase v2 API root",
	)

	fs.DurationVar(
		&c.timeout,
		"coinbase-timeout",
		config.DefaultCoinbaseTimeout,
		"the timeout for Coinbase API requests",
	)

	fs.StringVar(
		&c.logLevel,
		"log-level",
		"warn",
		"the minimum log level (debug, info, warn, error)",
	)

	fs.BoolVar(
		&c.json,
		"json",
		false,
		"print the quotes as JSON lines",
	)
}

// exec executes the quote command.
// Every currency is quoted, failures are reported after all quotes
func (c *quoteCfg) exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errNoCurrencies
	}

	level, err := config.ParseLogLevel(c.logLevel)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	p, err := coinbase.New(
		ctx,
		coinbase.WithLogger(logger),
		coinbase.WithBaseURL(c.baseURL),
		coinbase.WithTimeout(c.timeout),
	)
	if err != nil {
		return fmt.Errorf("unable to create coinbase provider: %w", err)
	}

	var errs []error

	for _, arg := range args {
		pair := types.Pair{
			Base:   currencies.BTC,
			Target: types.Currency(strings.ToUpper(strings.TrimSpace(arg))),
		}

		rate, err := p.ExchangeRate(ctx, pair)
		if err != nil {
			errs = append(errs, err)

			continue
		}

		if err := c.print(rate); err != nil {
			return fmt.Errorf("unable to write quote: %w", err)
		}
	}

	return errors.Join(errs...)
}

func (c *quoteCfg) print(rate *types.ExchangeRate) error {
	if c.json {
		return json.NewEncoder(c.out).Encode(rate)
	}

	_, err := fmt.Fprintf(
		c.out,
		"%s/%s %s (%s, %s)\n",
		rate.Base,
		rate.Target,
		formatRate(rate.Rate),
		rate.Source,
		rate.FetchedAt.Format(time.RFC3339),
	)

	return err
}

// formatRate formats the rate in plain decimal notation, with the fewest
// digits that round-trip to the same float64
func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64)
}
