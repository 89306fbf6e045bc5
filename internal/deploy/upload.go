package deploy

import (
	"context"
	"path"
	"strconv"
	"strings"

	"github.com/cdf-tools/streamlit-deploy/internal/cdf"
	"github.com/cdf-tools/streamlit-deploy/internal/domain"
	"github.com/cdf-tools/streamlit-deploy/internal/platform/objectstore"
)

// Naming rules the Streamlit app host in CDF relies on.
const (
	ExternalIDPrefix = "stapp-"
	FileNameSuffix   = "-source.json"
	Directory        = "/streamlit-apps/"
	ContentType      = "application/json"
)

// Request is one bundle upload.
type Request struct {
	ExternalID string
	Name       string
	Directory  string
	Metadata   map[string]string
	DataSetID  *int64
	Overwrite  bool
}

// NewRequest derives the upload request for app.
func NewRequest(app domain.AppDescriptor) Request {
	return Request{
		ExternalID: ExternalIDPrefix + app.ExternalID,
		Name:       app.ExternalID + FileNameSuffix,
		Directory:  Directory,
		Metadata: map[string]string{
			"name":        app.Name,
			"description": app.Description,
			"creator":     app.Creator,
			"published":   strconv.FormatBool(app.Published),
			"version":     app.Version,
		},
		DataSetID: app.DataSetID,
		Overwrite: true,
	}
}

// FileUploader stores an encoded bundle and returns the external id the
// backend assigned.
type FileUploader interface {
	UploadFile(ctx context.Context, req Request, content []byte) (string, error)
}

// CDFUploader uploads bundles through the CDF Files API.
type CDFUploader struct {
	Client *cdf.Client
}

func (u CDFUploader) UploadFile(ctx context.Context, req Request, content []byte) (string, error) {
	file, err := u.Client.UploadBytes(ctx, cdf.FileCreate{
		ExternalID: req.ExternalID,
		Name:       req.Name,
		Directory:  req.Directory,
		Metadata:   req.Metadata,
		DataSetID:  req.DataSetID,
		MimeType:   ContentType,
	}, content, req.Overwrite)
	if err != nil {
		return "", err
	}
	return file.ExternalID, nil
}

type objectPutter interface {
	Put(ctx context.Context, obj objectstore.Object) error
}

// ObjectStoreUploader writes bundles to an S3-compatible bucket under the
// same directory layout. Objects are always replaced.
type ObjectStoreUploader struct {
	Store objectPutter
}

func (u ObjectStoreUploader) UploadFile(ctx context.Context, req Request, content []byte) (string, error) {
	meta := make(map[string]string, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		meta[k] = v
	}
	meta["external-id"] = req.ExternalID
	if req.DataSetID != nil {
		meta["data-set-id"] = strconv.FormatInt(*req.DataSetID, 10)
	}

	err := u.Store.Put(ctx, objectstore.Object{
		Key:          strings.TrimPrefix(path.Join("/", req.Directory, req.Name), "/"),
		ContentType:  ContentType,
		UserMetadata: meta,
		Body:         content,
	})
	if err != nil {
		return "", domain.RemoteError("put object", err)
	}
	return req.ExternalID, nil
}
