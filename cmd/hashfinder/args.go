package main

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"github.com/outofforest/hashfinder/types"
)

// uintArg is the flag value collecting parse errors instead of aborting the parsing,
// so all the malformed arguments are reported at once.
type uintArg struct {
	shorthand   string
	description string
	required    bool
	value       uint64
	set         bool
	err         error
}

func (a *uintArg) String() string {
	return strconv.FormatUint(a.value, 10)
}

func (a *uintArg) Set(s string) error {
	a.set = true
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		a.err = errors.Wrapf(types.ErrArgument, "value %q of -%s (%s) is not a non-negative integer",
			s, a.shorthand, a.description)
		return nil
	}
	a.value = v
	a.err = nil
	return nil
}

func (a *uintArg) Type() string {
	return "uint"
}

func (a *uintArg) check() error {
	if a.err != nil {
		return a.err
	}
	if a.required && !a.set {
		return errors.Wrapf(types.ErrArgument, "-%s (%s) is required, e.g. -%s 3", a.shorthand, a.description,
			a.shorthand)
	}
	return nil
}

type arguments struct {
	zeros   uintArg
	count   uintArg
	threads uintArg
}

func newArguments() *arguments {
	return &arguments{
		zeros: uintArg{
			shorthand:   "N",
			description: "number of trailing zeros in the digest",
			required:    true,
		},
		count: uintArg{
			shorthand:   "F",
			description: "number of matches to find",
			required:    true,
		},
		threads: uintArg{
			shorthand:   "T",
			description: "number of parallel workers",
			value:       1,
		},
	}
}

func (a *arguments) check() error {
	return multierr.Combine(a.zeros.check(), a.count.check(), a.threads.check())
}

// parseFlags applies command line arguments to the flags. Unlike pflag it doesn't stop on the first problem,
// so missing values, unknown flags and positional arguments are reported together with malformed values.
// Missing value of the uint argument is stored in the argument itself, so it is not reported as required too.
func parseFlags(flags *pflag.FlagSet, args []string) error {
	var err error
	for i := 0; i < len(args); i++ {
		token := args[i]
		if token == "--" {
			for _, arg := range args[i+1:] {
				err = multierr.Append(err, errors.Wrapf(types.ErrArgument, "unexpected argument %q", arg))
			}
			break
		}

		var flag *pflag.Flag
		var value string
		var hasValue bool
		switch {
		case strings.HasPrefix(token, "--"):
			var name string
			name, value, hasValue = strings.Cut(token[2:], "=")
			flag = flags.Lookup(name)
		case len(token) > 1 && token[0] == '-':
			flag = shorthandLookup(flags, token[1:2])
			if rest := token[2:]; rest != "" {
				value = strings.TrimPrefix(rest, "=")
				hasValue = true
			}
		default:
			err = multierr.Append(err, errors.Wrapf(types.ErrArgument, "unexpected argument %q", token))
			continue
		}

		if flag == nil {
			err = multierr.Append(err, errors.Wrapf(types.ErrArgument, "unknown flag %q", token))
			continue
		}

		if !hasValue {
			switch {
			case flag.NoOptDefVal != "":
				value = flag.NoOptDefVal
			case i+1 < len(args) && !isFlag(flags, args[i+1]):
				i++
				value = args[i]
			default:
				missingErr := errors.Wrapf(types.ErrArgument, "%s needs a value", flagName(flag))
				if arg, ok := flag.Value.(*uintArg); ok {
					arg.set = true
					arg.err = missingErr
					continue
				}
				err = multierr.Append(err, missingErr)
				continue
			}
		}

		if setErr := flags.Set(flag.Name, value); setErr != nil {
			err = multierr.Append(err, errors.Wrapf(types.ErrArgument, "value %q of %s is invalid: %s",
				value, flagName(flag), setErr))
		}
	}
	return err
}

func isFlag(flags *pflag.FlagSet, token string) bool {
	switch {
	case token == "--":
		return true
	case strings.HasPrefix(token, "--"):
		name, _, _ := strings.Cut(token[2:], "=")
		return flags.Lookup(name) != nil
	case len(token) > 1 && token[0] == '-':
		return shorthandLookup(flags, token[1:2]) != nil
	default:
		return false
	}
}

// shorthandLookup exists because pflag panics on shorthands longer than one byte.
func shorthandLookup(flags *pflag.FlagSet, shorthand string) *pflag.Flag {
	if len(shorthand) != 1 {
		return nil
	}
	return flags.ShorthandLookup(shorthand)
}

func flagName(flag *pflag.Flag) string {
	if flag.Shorthand == "" {
		return "--" + flag.Name
	}
	return "-" + flag.Shorthand + "/--" + flag.Name
}
