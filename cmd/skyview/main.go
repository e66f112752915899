// Command skyview reports how much of the sky an observer sees around their zenith.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/owlpinetech/skyview"
	"github.com/owlpinetech/skyview/internal/config"
	"github.com/owlpinetech/skyview/internal/logging"
	"github.com/owlpinetech/skyview/internal/observe"
)

type observer interface {
	Observe(ctx context.Context, resolution int, dir skyview.Direction) (observe.Report, error)
}

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitBadInput = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	flags := flag.NewFlagSet("skyview", flag.ContinueOnError)
	flags.SetOutput(stderr)
	resolution := flags.Int("resolution", 0, "HEALPix resolution (nside), a power of 2; prompted for when absent")
	lon := flags.String("lon", "", "observer longitude in degrees; prompted for when absent")
	lat := flags.String("lat", "", "observer latitude in degrees; prompted for when absent")
	aperture := flags.Float64("aperture", 0, "cone search radius in degrees, overriding SKYVIEW_APERTURE_DEG")
	asJSON := flags.Bool("json", false, "print the full report as JSON")
	if err := flags.Parse(args); err != nil {
		return exitBadInput
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "configuration: %v\n", err)
		return exitFailure
	}
	if *aperture != 0 {
		cfg.ApertureDegrees = *aperture
	}

	log := logging.New(logging.Config{
		Level:  envOr("LOG_LEVEL", "warn"),
		Format: envOr("LOG_FORMAT", "text"),
		Output: stderr,
	})
	obs, err := observe.NewFromConfig(cfg, log, nil)
	if err != nil {
		fmt.Fprintf(stderr, "configuration: %v\n", err)
		return exitFailure
	}

	c := &cli{
		observer: obs,
		in:       bufio.NewScanner(stdin),
		out:      stdout,
		errOut:   stderr,
		asJSON:   *asJSON,
	}
	return c.run(ctx, *resolution, *lon, *lat)
}

type cli struct {
	observer observer
	in       *bufio.Scanner
	out      io.Writer
	errOut   io.Writer
	asJSON   bool
}

// run observes once. Values given on the command line are used as is and an invalid one
// ends the program; missing values are prompted for until they parse.
func (c *cli) run(ctx context.Context, resolution int, lonArg string, latArg string) int {
	interactive := resolution == 0
	if interactive {
		res, err := c.promptResolution()
		if err != nil {
			fmt.Fprintln(c.errOut, err)
			return exitBadInput
		}
		resolution = int(res)
	}

	lon, err := c.coordinate(lonArg, "Enter longitude: ", validLongitude)
	if err != nil {
		fmt.Fprintln(c.errOut, err)
		return exitBadInput
	}
	lat, err := c.coordinate(latArg, "Enter latitude: ", validLatitude)
	if err != nil {
		fmt.Fprintln(c.errOut, err)
		return exitBadInput
	}

	report, err := c.observer.Observe(ctx, resolution, skyview.NewDirection(lon, lat))
	if err != nil {
		fmt.Fprintln(c.errOut, err)
		if observe.IsInputError(err) {
			return exitBadInput
		}
		return exitFailure
	}

	if c.asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintln(c.errOut, err)
			return exitFailure
		}
		return exitOK
	}
	for _, line := range report.Lines() {
		fmt.Fprintln(c.out, line)
	}
	return exitOK
}

func (c *cli) promptResolution() (skyview.Resolution, error) {
	for {
		line, err := c.prompt("Enter resolution (must be a power of 2): ")
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintf(c.out, "Resolution must be an integer, got %q.\n", line)
			continue
		}
		res, err := skyview.ValidateResolution(n)
		if err != nil {
			fmt.Fprintf(c.out, "%v. Try again.\n", err)
			continue
		}
		return res, nil
	}
}

// coordinate parses arg when present, otherwise prompts until a valid value is entered.
func (c *cli) coordinate(arg string, question string, check func(float64) error) (float64, error) {
	if arg != "" {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid coordinate %q", arg)
		}
		return v, check(v)
	}
	for {
		line, err := c.prompt(question)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(line, 64)
		if err == nil {
			err = check(v)
		}
		if err != nil {
			fmt.Fprintf(c.out, "Invalid coordinate %q. Try again.\n", line)
			continue
		}
		return v, nil
	}
}

func (c *cli) prompt(question string) (string, error) {
	fmt.Fprint(c.out, question)
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no more input")
	}
	return strings.TrimSpace(c.in.Text()), nil
}

func validLongitude(v float64) error {
	return skyview.NewDirection(v, 0).Validate()
}

func validLatitude(v float64) error {
	return skyview.NewDirection(0, v).Validate()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
