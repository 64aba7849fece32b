package photo

import (
	"context"
	"fmt"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveLister lists photo folders through the Drive API.
type DriveLister struct {
	svc *drive.Service
}

// NewDriveLister builds a lister from a service account key file.
func NewDriveLister(ctx context.Context, serviceAccountKeyPath string) (*DriveLister, error) {
	svc, err := drive.NewService(ctx, option.WithCredentialsFile(serviceAccountKeyPath))
	if err != nil {
		return nil, fmt.Errorf("error creating drive service: %w", err)
	}
	return &DriveLister{svc: svc}, nil
}

// ListFolder returns every file in the folder as name -> direct URL.
func (d *DriveLister) ListFolder(ctx context.Context, folderID string) (map[string]string, error) {
	files := make(map[string]string)
	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)

	pageToken := ""
	for {
		call := d.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name)").
			PageSize(1000).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("error listing drive folder %s: %w", folderID, err)
		}
		for _, f := range resp.Files {
			files[f.Name] = "https://drive.google.com/uc?id=" + f.Id
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return files, nil
}
