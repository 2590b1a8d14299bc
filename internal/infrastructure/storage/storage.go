// Package storage keeps product images and archived invoices in object
// storage.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when a key does not exist
var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage is the object store used by the application services
type ObjectStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) (*Object, error)
	DeleteObject(ctx context.Context, key string) error
	ObjectExists(ctx context.Context, key string) (bool, error)
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

// Object is a downloaded object
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// InvoiceKey is where the PDF of an order is archived
func InvoiceKey(orderNumber string) string {
	return "invoices/" + orderNumber + ".pdf"
}

// ProductImageKey names the image of a product. The extension is kept so
// the content type survives a download through a plain URL.
func ProductImageKey(productID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return "products/" + productID + ext
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("storage key is required")
	}
	return nil
}
