package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/outofforest/hashfinder"
	"github.com/outofforest/hashfinder/batch"
	"github.com/outofforest/hashfinder/termination"
	"github.com/outofforest/logger"
)

const (
	envPrefix = "HASHFINDER"

	flagBatchSize   = "batch-size"
	flagBatchMode   = "batch-mode"
	flagCounterMode = "counter-mode"
	flagTimeout     = "timeout"
	flagConfig      = "config"
)

func main() {
	ctx, cancel := signal.NotifyContext(
		logger.WithLogger(context.Background(), logger.New(logger.DefaultConfig)),
		os.Interrupt, syscall.SIGTERM,
	)

	err := newCommand(os.Stdout).ExecuteContext(ctx)
	cancel()
	if err != nil {
		for _, e := range multierr.Errors(err) {
			fmt.Fprintln(os.Stderr, e)
		}
		os.Exit(1)
	}
}

func newCommand(out io.Writer) *cobra.Command {
	args := newArguments()
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "hashfinder -N <zeros> -F <count> [-T <threads>]",
		Short: "Finds numbers whose SHA-256 digest ends with the requested number of zeros",
		Example: "  hashfinder -N 4 -F 100\n" +
			"  hashfinder -N 3 -F 6 -T 8 --batch-mode grow --counter-mode serialized",
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, rawArgs []string) error {
			parseErr := parseFlags(cmd.Flags(), rawArgs)
			if help, _ := cmd.Flags().GetBool("help"); help {
				return cmd.Help()
			}

			viperErr := configureViper(v, cmd)
			config, err := searchConfig(args, v)
			if err := multierr.Combine(parseErr, viperErr, err); err != nil {
				return err
			}
			config.Output = out

			ctx := cmd.Context()
			if timeout := v.GetDuration(flagTimeout); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			start := time.Now()
			if _, err := hashfinder.Search(ctx, config); err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "\nCompleted in %s\n", time.Since(start))
			return errors.WithStack(err)
		},
	}

	flags := cmd.Flags()
	flags.VarP(&args.zeros, "zeros", args.zeros.shorthand, args.zeros.description)
	flags.VarP(&args.count, "count", args.count.shorthand, args.count.description)
	flags.VarP(&args.threads, "threads", args.threads.shorthand, args.threads.description)
	flags.Uint64(flagBatchSize, batch.DefaultUnit, "number of candidates added by each batch")
	flags.String(flagBatchMode, string(batch.ModeCursor),
		"cursor scans only new candidates in each batch, grow rescans each batch from zero")
	flags.String(flagCounterMode, string(termination.ModeAtomic),
		"atomic hashes in parallel, serialized holds the lock for the whole processing of a candidate")
	flags.Duration(flagTimeout, 0, "aborts the search after the duration, 0 means no limit")
	flags.String(flagConfig, "", "path to the config file with the values of the flags above")

	return cmd
}

func configureViper(v *viper.Viper, cmd *cobra.Command) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return errors.WithStack(err)
	}

	if path := v.GetString(flagConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading config file %q failed", path)
		}
	}
	return nil
}

// searchConfig builds search configuration, reporting all the argument errors together.
func searchConfig(args *arguments, v *viper.Viper) (hashfinder.Config, error) {
	config := hashfinder.DefaultConfig()
	config.ZeroCount = args.zeros.value
	config.TargetCount = args.count.value
	config.ThreadCount = args.threads.value
	config.BatchSize = v.GetUint64(flagBatchSize)
	config.BatchMode = batch.Mode(v.GetString(flagBatchMode))
	config.CounterMode = termination.Mode(v.GetString(flagCounterMode))

	// Malformed values never overwrite defaults, so they are not reported twice.
	return config, multierr.Append(args.check(), config.Validate())
}
