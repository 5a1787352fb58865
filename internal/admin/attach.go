package admin

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/medlogbook/internal/netx"
	"github.com/spf13/cobra"
)

func (a *App) newAttachCmd() *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "attach ENTRY FILE",
		Short: "Upload FILE as the attachment of a DRAFT entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}

			c, err := a.dialAs(as)
			if err != nil {
				return err
			}
			defer c.Close()

			p, err := c.PresignUpload(cmd.Context(), args[0], filepath.Base(args[1]))
			if err != nil {
				return err
			}
			if err := netx.PutPresigned(cmd.Context(), p.URL, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %d bytes to %s\n", len(data), p.Key)
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "owner actor id")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}

func (a *App) newFetchCmd() *cobra.Command {
	var (
		as  string
		out string
	)

	cmd := &cobra.Command{
		Use:   "fetch ENTRY",
		Short: "Download the attachment of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.dialAs(as)
			if err != nil {
				return err
			}
			defer c.Close()

			url, err := c.PresignDownload(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return err
			}
			n, err := netx.GetPresigned(cmd.Context(), url, f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %d bytes to %s\n", n, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&as, "as", "", "actor id allowed to view the entry")
	cmd.Flags().StringVarP(&out, "output", "o", "attachment.bin", "output file")
	_ = cmd.MarkFlagRequired("as")
	return cmd
}
