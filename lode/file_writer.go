package lode

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// FileWriter writes sidecar files to a Lode Store.
// Files land at Hive-partitioned paths under files/, bypassing Dataset
// segment/manifest machinery entirely.
type FileWriter interface {
	// PutFile writes a file to the Hive-partitioned files/ prefix.
	// The filename must not contain path separators or "..".
	PutFile(ctx context.Context, filename, contentType string, data []byte) error
}

// Verify LodeClient implements FileWriter.
var _ FileWriter = (*LodeClient)(nil)

// PutFile writes a sidecar file to the Lode Store at the computed Hive path.
func (c *LodeClient) PutFile(ctx context.Context, filename, _ string, data []byte) error {
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return fmt.Errorf("%w: bad sidecar file name %q", ErrInvalidConfig, filename)
	}

	store, err := c.getOrCreateStore()
	if err != nil {
		return WrapInitError(err, c.config.Dataset)
	}

	path := c.FilePath(filename)
	if err := store.Put(ctx, path, bytes.NewReader(data)); err != nil {
		return WrapPutError(err, path)
	}
	return nil
}

// getOrCreateStore lazily initializes the Store from the factory.
func (c *LodeClient) getOrCreateStore() (lode.Store, error) {
	c.storeOnce.Do(func() {
		c.store, c.storeErr = c.storeFactory()
	})
	return c.store, c.storeErr
}

// FilePath computes the store path for a sidecar file.
// Format: datasets/<dataset>/partitions/source=<s>/image=<i>/day=<d>/session_id=<id>/files/<filename>
func (c *LodeClient) FilePath(filename string) string {
	return c.PartitionPath() + "/files/" + filename
}
