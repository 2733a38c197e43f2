// Package labels archives booking label manifests to a cloud blob bucket
// via gocloud.dev, supporting S3, GCS, Azure Blob Storage, and
// S3-compatible stores.
package labels

import (
	"context"
	"encoding/json"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/courierhq/dispatch/pkg/api"
)

type (
	// Archive persists one manifest per booked shipment, keyed by tracking
	// number
	Archive struct {
		bucket *blob.Bucket
		prefix string
	}

	// Manifest is the archived record of a booking
	Manifest struct {
		TrackingNumber string              `json:"tracking_number"`
		LabelURL       string              `json:"label_url"`
		Provider       api.ProviderID      `json:"provider"`
		Request        api.ShipmentRequest `json:"request"`
		BookedAt       time.Time           `json:"booked_at"`
	}
)

// Open opens the archive bucket at the given gocloud URL
func Open(ctx context.Context, bucketURL, prefix string) (*Archive, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &Archive{bucket: bucket, prefix: prefix}, nil
}

// Save writes the manifest for a booked shipment
func (a *Archive) Save(
	ctx context.Context, label *api.LabelResponse, req *api.ShipmentRequest,
) error {
	manifest := Manifest{
		TrackingNumber: label.TrackingNumber,
		LabelURL:       label.LabelURL,
		Provider:       label.Provider,
		Request:        *req,
		BookedAt:       time.Now().UTC(),
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	return a.bucket.WriteAll(ctx, a.keyFor(label.TrackingNumber), data, nil)
}

// Get reads the manifest for a tracking number, or nil if none is archived
func (a *Archive) Get(
	ctx context.Context, trackingNumber string,
) (*Manifest, error) {
	data, err := a.bucket.ReadAll(ctx, a.keyFor(trackingNumber))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, nil
		}
		return nil, err
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// Close releases the underlying bucket
func (a *Archive) Close() error {
	return a.bucket.Close()
}

func (a *Archive) keyFor(trackingNumber string) string {
	if a.prefix == "" {
		return trackingNumber + ".json"
	}
	return a.prefix + "/" + trackingNumber + ".json"
}
