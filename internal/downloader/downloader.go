package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/flytam/filenamify"
	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"

	rdhttp "github.com/ligustah/rdgen/internal/http"
	"github.com/ligustah/rdgen/internal/links"
	"github.com/ligustah/rdgen/internal/progress"
)

// DefaultChunkSize is the buffer size used to stream each artifact.
const DefaultChunkSize = 8192

// ErrPrefixExists is returned by Prepare when the run directory already has content.
var ErrPrefixExists = errors.New("downloader: destination already exists")

// Streamer opens artifact bodies.
type Streamer interface {
	Stream(ctx context.Context, rawURL string, auth *rdhttp.Credentials) (io.ReadCloser, error)
}

// Options configures the downloader.
type Options struct {
	// Workers is the number of links downloaded in parallel.
	// Default: 1 (sequential)
	Workers int

	// ChunkSize is the size of each read from the response body.
	// Default: 8192
	ChunkSize int

	// Auth is sent with every download request when set.
	Auth *rdhttp.Credentials

	Logger logrus.FieldLogger
}

// FailedLink records a link that could not be downloaded.
type FailedLink struct {
	Link  links.DownloadLink
	Error error
}

// Result reports the outcome of a download pass.
type Result struct {
	Total     int
	Succeeded int
	// Saved holds the bucket keys written, in link order.
	Saved  []string
	Failed []FailedLink
}

// Err returns a *DownloadError unless every link was downloaded.
func (r Result) Err() error {
	if r.Succeeded == r.Total {
		return nil
	}
	return &DownloadError{Succeeded: r.Succeeded, Total: r.Total, Failed: r.Failed}
}

// DownloadError is returned when some or all artifacts failed to download.
// Use errors.As to inspect Failed for the individual causes.
type DownloadError struct {
	Succeeded int
	Total     int
	Failed    []FailedLink
}

func (e *DownloadError) Error() string {
	if e.Succeeded == 0 {
		return fmt.Sprintf("no files were downloaded (%d/%d)", e.Succeeded, e.Total)
	}
	return fmt.Sprintf("not all files have been downloaded (%d/%d)", e.Succeeded, e.Total)
}

// RunPrefix returns the per-run directory name {filename}_{uuid}, made safe
// for use as a path segment.
func RunPrefix(filename, uuid string) string {
	return safeName(filename + "_" + uuid)
}

// Prepare fails with ErrPrefixExists if prefix already holds objects.
func Prepare(ctx context.Context, bucket *blob.Bucket, prefix string) error {
	iter := bucket.List(&blob.ListOptions{Prefix: prefix + "/"})
	_, err := iter.Next(ctx)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("list %s: %w", prefix, err)
	}
	return fmt.Errorf("%w: %s", ErrPrefixExists, prefix)
}

// Download fetches every link into bucket under prefix. Per-link failures
// are logged and collected in the Result; they never stop the remaining
// downloads. The returned error is non-nil only when ctx is done.
func Download(ctx context.Context, client Streamer, bucket *blob.Bucket, prefix string, list []links.DownloadLink, opts Options) (Result, error) {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "downloader")

	total := len(list)
	keys := make([]string, total)
	errs := make([]error, total)

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, opts.ChunkSize)
			for idx := range jobs {
				link := list[idx]
				preamble := fmt.Sprintf("[%d/%d]", idx+1, total)

				name, err := localName(link)
				if err != nil {
					errs[idx] = err
					log.WithField("url", link.URL).Errorf("%s Error downloading %s: %v", preamble, link.URL, err)
					continue
				}

				log.Debugf("%s Downloading: %s ...", preamble, name)

				key := path.Join(prefix, name)
				n, err := downloadLink(ctx, client, bucket, key, link.URL, opts.Auth, buf)
				if err != nil {
					errs[idx] = err
					log.WithField("url", link.URL).Errorf("%s Error downloading %s: %v", preamble, link.URL, err)
					continue
				}

				keys[idx] = key
				log.Infof("%s File saved locally: %s (%s)", preamble, name, progress.FormatBytes(n))
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range list {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()

	result := Result{Total: total}
	for i, link := range list {
		switch {
		case keys[i] != "":
			result.Succeeded++
			result.Saved = append(result.Saved, keys[i])
		case errs[i] != nil:
			result.Failed = append(result.Failed, FailedLink{Link: link, Error: errs[i]})
		default:
			result.Failed = append(result.Failed, FailedLink{Link: link, Error: ctx.Err()})
		}
	}

	if ctx.Err() != nil {
		return result, ctx.Err()
	}
	return result, nil
}

// localName takes the artifact name from the link's filename query
// parameter rather than the URL path.
func localName(link links.DownloadLink) (string, error) {
	name, err := links.FilenameFromURL(link.URL)
	if err != nil {
		return "", err
	}
	return safeName(name), nil
}

// safeName replaces characters that are not allowed in a path segment. Names
// are never shortened, so distinct artifacts keep distinct keys.
func safeName(name string) string {
	safe, err := filenamify.FilenamifyV2(name, func(o *filenamify.Options) {
		o.MaxLength = len(name) + 1
	})
	if err != nil || safe == "" {
		return name
	}
	return safe
}

// downloadLink streams one artifact into bucket. A failed transfer aborts
// the writer so no partial object is left behind.
func downloadLink(ctx context.Context, client Streamer, bucket *blob.Bucket, key, rawURL string, auth *rdhttp.Credentials, buf []byte) (int64, error) {
	body, err := client.Stream(ctx, rawURL, auth)
	if err != nil {
		return 0, err
	}
	defer body.Close()

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := bucket.NewWriter(wctx, key, &blob.WriterOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", key, err)
	}

	written, err := writeChunks(w, body, buf)
	if err != nil {
		cancel()
		w.Close()
		return 0, err
	}

	if err := w.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", key, err)
	}
	return written, nil
}

func writeChunks(w io.Writer, r io.Reader, buf []byte) (int64, error) {
	var written int64
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			nw, writeErr := w.Write(buf[:n])
			written += int64(nw)
			if writeErr != nil {
				return written, fmt.Errorf("write: %w", writeErr)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("read: %w", readErr)
		}
	}
}
