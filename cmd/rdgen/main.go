package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gocloud.dev/gcerrors"

	"github.com/ligustah/rdgen/internal/address"
	"github.com/ligustah/rdgen/internal/downloader"
	"github.com/ligustah/rdgen/internal/generator"
	rdhttp "github.com/ligustah/rdgen/internal/http"
	"github.com/ligustah/rdgen/internal/links"
	"github.com/ligustah/rdgen/internal/logging"
	"github.com/ligustah/rdgen/internal/poller"
	"github.com/ligustah/rdgen/internal/scrape"
)

// Exit codes
const (
	ExitSuccess            = 0
	ExitGeneralError       = 1
	ExitInvalidArgs        = 2
	ExitServerError        = 3
	ExitUnexpectedResponse = 4
	ExitStorageError       = 5
	ExitTimeout            = 6
	ExitBuildFailed        = 7
	ExitDownloadIncomplete = 8
	ExitInterrupted        = 130
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		logging.Fatal(stderr, errors.New("interrupted"))
		return ExitInterrupted
	}
	logging.Fatal(stderr, err)
	return exitCode(err)
}

// usageError marks errors caused by the command line or settings.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// storageError marks failures of the download destination.
type storageError struct {
	err error
}

func (e *storageError) Error() string { return e.err.Error() }
func (e *storageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var (
		usageErr    *usageError
		configErr   *generator.ConfigError
		addrErr     *address.Error
		statusErr   *rdhttp.StatusError
		parseErr    *scrape.ParseError
		titleErr    *scrape.UnknownTitleError
		platformErr *links.UnsupportedPlatformError
		storageErr  *storageError
		downloadErr *downloader.DownloadError
	)

	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &usageErr), errors.As(err, &configErr), errors.As(err, &addrErr):
		return ExitInvalidArgs
	case errors.Is(err, rdhttp.ErrTransport), errors.As(err, &statusErr):
		return ExitServerError
	case errors.As(err, &parseErr), errors.As(err, &titleErr), errors.As(err, &platformErr):
		return ExitUnexpectedResponse
	case errors.As(err, &storageErr), errors.Is(err, downloader.ErrPrefixExists):
		return ExitStorageError
	case errors.Is(err, poller.ErrTimeout):
		return ExitTimeout
	case errors.Is(err, poller.ErrNoFileGenerated):
		return ExitBuildFailed
	case errors.As(err, &downloadErr):
		return ExitDownloadIncomplete
	case gcerrors.Code(err) != gcerrors.Unknown:
		return ExitStorageError
	default:
		return ExitGeneralError
	}
}
