// Package backend is the console's only gateway to the platform services:
// the job/query service, the storage (upload) service, the camera and
// stream-control service, and the violence-detection service. Every response
// is mapped onto the canonical records in internal/models, whatever field
// naming the service used, and every failure surfaces as *Error.
package backend

import (
	"net/http"
	"time"
)

type Options struct {
	QueryURL      string
	StorageURL    string
	CameraURL     string
	ViolenceURL   string
	HTTPClient    *http.Client
	UploadTimeout time.Duration
	Validator     PayloadValidator
}

// Client groups the four service clients.
type Client struct {
	Query    *QueryService
	Storage  *StorageService
	Cameras  *CameraService
	Violence *ViolenceService
}

func New(opts Options) *Client {
	return &Client{
		Query:    NewQueryService(opts.QueryURL, opts.HTTPClient),
		Storage:  NewStorageService(opts.StorageURL, opts.HTTPClient, opts.UploadTimeout),
		Cameras:  NewCameraService(opts.CameraURL, opts.HTTPClient, opts.Validator),
		Violence: NewViolenceService(opts.ViolenceURL, opts.HTTPClient),
	}
}
