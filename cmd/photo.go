package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zzenonn/partyphoto/internal/domain"
	"github.com/zzenonn/partyphoto/internal/service"
)

var quiet bool

var photoCmd = &cobra.Command{
	Use:   "photo",
	Short: "Photo commands",
	Long:  "List, upload and soft-delete party photos",
}

var photoListCmd = &cobra.Command{
	Use:   "list [party]",
	Short: "List a page of a party's photos with download URLs",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cursor, _ := cmd.Flags().GetString("cursor")
		limit, _ := cmd.Flags().GetString("limit")

		list, err := deps.Photos.ListPhotos(context.Background(), domain.ListPhotosQuery{
			PartyKey: args[0],
			Cursor:   cursor,
			Limit:    service.ParseLimit(limit),
		})
		if err != nil {
			fmt.Printf("Error listing photos: %v\n", err)
			return
		}

		for _, photo := range list.Photos {
			fmt.Printf("%s\t%s\n%s\n", photo.UploadedAt.Format("2006-01-02 15:04:05"), photo.PhotoKey, photo.URL)
		}
		if list.NextCursor != nil {
			fmt.Printf("Next cursor: %s\n", *list.NextCursor)
		}
	},
}

var photoUploadCmd = &cobra.Command{
	Use:   "upload [party] [file-path...]",
	Short: "Upload photos to a party through signed upload URLs",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		uploadPhotos(context.Background(), deps.Photos, deps.Transfer, args[0], args[1:])
	},
}

type uploadIssuer interface {
	BatchUpload(ctx context.Context, req domain.BatchUploadRequest) (domain.BatchUploadResult, error)
}

type objectPutter interface {
	Put(ctx context.Context, url, contentType string, reader io.Reader, size int64, quiet bool) error
}

// uploadPhotos requests one upload URL per file and sends the file straight
// away, so no URL waits behind earlier transfers. It returns the number of
// files uploaded.
func uploadPhotos(ctx context.Context, issuer uploadIssuer, putter objectPutter, partyKey string, paths []string) int {
	uploaded := 0
	for _, path := range paths {
		contentType := contentTypeFor(path)
		result, err := issuer.BatchUpload(ctx, domain.BatchUploadRequest{
			PartyKey: partyKey,
			Files:    []domain.FileDescriptor{{FileName: filepath.Base(path), ContentType: contentType}},
		})
		if err != nil {
			fmt.Printf("Error requesting upload URL for %s: %v\n", path, err)
			continue
		}
		for _, failed := range result.Errors {
			fmt.Printf("Skipped %s: %s\n", path, failed.Error)
		}
		if len(result.Uploads) == 0 {
			continue
		}

		grant := result.Uploads[0]
		if err := uploadFile(ctx, putter, path, contentType, grant); err != nil {
			fmt.Printf("Error uploading %s: %v\n", path, err)
			continue
		}
		uploaded++
		fmt.Printf("File uploaded successfully: %s -> %s\n", path, grant.PhotoKey)
	}
	return uploaded
}

func uploadFile(ctx context.Context, putter objectPutter, path, contentType string, grant domain.UploadGrant) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return err
	}
	return putter.Put(ctx, grant.PresignedURL, contentType, file, stat.Size(), quiet)
}

func contentTypeFor(path string) string {
	if contentType := mime.TypeByExtension(filepath.Ext(path)); contentType != "" {
		return contentType
	}
	return "application/octet-stream"
}

var photoDeleteCmd = &cobra.Command{
	Use:   "delete [party] [photo-key]",
	Short: "Soft-delete a photo",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		partyKey, photoKey := args[0], args[1]

		if err := deps.Photos.SoftDeletePhoto(context.Background(), partyKey, photoKey); err != nil {
			fmt.Printf("Error deleting photo: %v\n", err)
			return
		}
		fmt.Printf("Photo soft-deleted successfully: %s/%s\n", partyKey, photoKey)
	},
}

func init() {
	photoListCmd.Flags().String("cursor", "", "photo key to continue after")
	photoListCmd.Flags().String("limit", "", "page size (1-100, default 20)")
	photoUploadCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress bars")
	photoCmd.AddCommand(photoListCmd)
	photoCmd.AddCommand(photoUploadCmd)
	photoCmd.AddCommand(photoDeleteCmd)
	rootCmd.AddCommand(photoCmd)
}
