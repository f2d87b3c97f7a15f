// Package downloader fetches build artifacts into a gocloud.dev/blob bucket.
//
// Locally the bucket is a fileblob directory, so artifacts land on disk as
// {output}/{filename}_{uuid}/{artifact}. Any other registered bucket URL
// (mem://, s3://, gs://) works the same way.
//
// # Usage
//
//	bkt, err := downloader.OpenBucket(ctx, "downloads")
//	prefix := downloader.RunPrefix(id.Filename, id.UUID)
//	if err := downloader.Prepare(ctx, bkt, prefix); err != nil { ... }
//
//	result, err := downloader.Download(ctx, client, bkt, prefix, list, downloader.Options{})
//	if err == nil {
//	    err = result.Err()
//	}
//
// # Failures
//
// A link that fails (transport error, HTTP error status, storage error) is
// logged and skipped. Result.Err reports a *DownloadError when any link
// failed; the caller decides what that means for the run.
package downloader
