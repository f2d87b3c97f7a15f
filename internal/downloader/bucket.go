package downloader

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
)

// OpenBucket opens the download destination. A value containing "://" is
// treated as a bucket URL for any registered driver; anything else is a
// local directory, created on demand.
func OpenBucket(ctx context.Context, output string) (*blob.Bucket, error) {
	if strings.Contains(output, "://") {
		bkt, err := blob.OpenBucket(ctx, output)
		if err != nil {
			return nil, fmt.Errorf("open bucket %s: %w", output, err)
		}
		return bkt, nil
	}

	dir, err := filepath.Abs(output)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", output, err)
	}

	bkt, err := fileblob.OpenBucket(dir, &fileblob.Options{
		CreateDir: true,
		NoTempDir: true,
		Metadata:  fileblob.MetadataDontWrite,
	})
	if err != nil {
		return nil, fmt.Errorf("open directory %s: %w", dir, err)
	}
	return bkt, nil
}
