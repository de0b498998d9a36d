package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"threadkeeper/internal/config"
	svc "threadkeeper/internal/domain/services/assistant"
	"threadkeeper/internal/imageprep"
)

func filesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage images uploaded for vision",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List uploaded images, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			files, err := a.services.Files.List(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFILENAME\tBYTES\tCREATED")
			for _, f := range files {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.ID, f.Filename, f.Bytes, f.CreatedAt.Local().Format(time.DateTime))
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "upload PATH",
		Short: "Normalize and upload an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.Size() > config.MaxUploadBytes {
				return fmt.Errorf("%s is larger than %d bytes", path, config.MaxUploadBytes)
			}

			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			data, _, err := imageprep.Normalize(f)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			stored, err := a.services.Files.Upload(cmd.Context(), &svc.UploadFileRequest{
				Data:        data,
				MIMEType:    imageprep.OutputMIMEType,
				DisplayName: filepath.Base(path),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), stored.ID)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete ID",
		Short: "Delete an uploaded image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			return a.services.Files.Delete(cmd.Context(), args[0])
		},
	})

	return cmd
}
