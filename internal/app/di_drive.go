package app

import (
	"context"
	"fmt"

	"gocloud.dev/blob"

	driveService "github.com/allisson/peertransfer/internal/drive/service"
	"github.com/allisson/peertransfer/internal/multipart"
)

// Bucket returns the blob bucket backing drive storage.
func (c *Container) Bucket() (*blob.Bucket, error) {
	var err error
	c.bucketInit.Do(func() {
		c.bucket, err = driveService.OpenBucket(context.Background(), c.config.DriveBucketURL)
		if err != nil {
			c.initErrors["bucket"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["bucket"]; exists {
		return nil, storedErr
	}
	return c.bucket, nil
}

// DriveStorage returns the drive file storage.
func (c *Container) DriveStorage() (*driveService.Storage, error) {
	var err error
	c.driveStorageInit.Do(func() {
		var bucket *blob.Bucket
		bucket, err = c.Bucket()
		if err != nil {
			err = fmt.Errorf("failed to get bucket for drive storage: %w", err)
			c.initErrors["driveStorage"] = err
			return
		}
		c.driveStorage = driveService.NewStorage(bucket)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["driveStorage"]; exists {
		return nil, storedErr
	}
	return c.driveStorage, nil
}

// Assembler returns the multipart assembler staging streamed parts on disk.
func (c *Container) Assembler() *multipart.Assembler {
	c.assemblerInit.Do(func() {
		c.assembler = multipart.NewAssembler(c.config.MultipartStagingDir)
	})
	return c.assembler
}
