package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/davfs/webdav-go/internal/dav"
	"github.com/davfs/webdav-go/internal/urn"
)

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List files and directories",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}

	cmd.Flags().BoolP("long", "l", false, "long listing with metadata")
	cmd.Flags().BoolP("recursive", "R", false, "recursive listing")

	return cmd
}

func runLs(cmd *cobra.Command, args []string) error {
	client, err := newDavClient()
	if err != nil {
		return err
	}

	path := dav.Root
	if len(args) == 1 {
		path = args[0]
	}

	long, _ := cmd.Flags().GetBool("long")
	recursive, _ := cmd.Flags().GetBool("recursive")

	if long {
		entries, listErr := client.ListInfo(cmd.Context(), path, recursive)
		if listErr != nil {
			return listErr
		}

		for _, entry := range entries {
			fmt.Println(formatEntry(entry))
		}

		return nil
	}

	names, err := client.List(cmd.Context(), path, recursive)
	if err != nil {
		return err
	}

	for _, name := range names {
		fmt.Println(name)
	}

	return nil
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <remote-path>... <local-path>",
		Short: "Download files or directories",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runGet,
	}
}

func runGet(cmd *cobra.Command, args []string) error {
	client, err := newDavClient()
	if err != nil {
		return err
	}

	remotes, localTarget := args[:len(args)-1], args[len(args)-1]

	return forEachTransfer(cmd.Context(), remotes, func(ctx context.Context, remote string) error {
		local := localTarget
		if len(remotes) > 1 || isLocalDir(localTarget) {
			local = filepath.Join(localTarget, urn.New(remote, false).Filename())
		}

		return client.Download(ctx, remote, local, progressPrinter(remote))
	})
}

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <local-path>... <remote-path>",
		Short: "Upload files or directories",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runPut,
	}

	cmd.Flags().BoolP("force", "f", false, "create missing remote parent directories")

	return cmd
}

func runPut(cmd *cobra.Command, args []string) error {
	client, err := newDavClient()
	if err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	locals, remoteTarget := args[:len(args)-1], args[len(args)-1]

	return forEachTransfer(cmd.Context(), locals, func(ctx context.Context, local string) error {
		remote := remoteTarget
		if len(locals) > 1 || strings.HasSuffix(remoteTarget, urn.Separator) {
			remote = urn.New(remoteTarget, true).Path() + filepath.Base(local)
		}

		if info, statErr := os.Stat(local); statErr == nil && !info.IsDir() {
			return client.UploadFile(ctx, local, remote, progressPrinter(local), force)
		}

		return client.Upload(ctx, local, remote, progressPrinter(local))
	})
}

// forEachTransfer runs one transfer per source, bounded-parallel when
// several sources are given. A single source runs inline so progress output
// stays ordered.
func forEachTransfer(ctx context.Context, sources []string, fn func(context.Context, string) error) error {
	if len(sources) == 1 {
		return fn(ctx, sources[0])
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(resolvedCfg.Parallel)

	for _, source := range sources {
		source := source
		group.Go(func() error {
			return fn(groupCtx, source)
		})
	}

	return group.Wait()
}

func isLocalDir(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete a remote file or directory (recursive on the server)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newDavClient()
			if err != nil {
				return err
			}

			return client.Clean(cmd.Context(), args[0])
		},
	}
}

func newMvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mv <from> <to>",
		Short: "Move or rename a remote resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newDavClient()
			if err != nil {
				return err
			}

			overwrite, _ := cmd.Flags().GetBool("overwrite")

			return client.Move(cmd.Context(), args[0], args[1], overwrite)
		},
	}

	cmd.Flags().Bool("overwrite", false, "overwrite the destination if it exists")

	return cmd
}

func newCpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp <from> <to>",
		Short: "Copy a remote resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newDavClient()
			if err != nil {
				return err
			}

			return client.Copy(cmd.Context(), args[0], args[1], 1)
		},
	}
}

func newMkdirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a remote directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newDavClient()
			if err != nil {
				return err
			}

			recursive, _ := cmd.Flags().GetBool("parents")

			return client.MkDir(cmd.Context(), args[0], recursive)
		},
	}

	cmd.Flags().BoolP("parents", "p", false, "create missing ancestors")

	return cmd
}

func newStatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Display remote resource metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newDavClient()
			if err != nil {
				return err
			}

			info, err := client.Info(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			printInfo(info)

			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <path>",
		Short: "Check whether a remote resource exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newDavClient()
			if err != nil {
				return err
			}

			exists, err := client.Check(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if !exists {
				fmt.Println("absent")
				os.Exit(1)
			}

			fmt.Println("exists")

			return nil
		},
	}
}

func newFreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "free",
		Short: "Show free space on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newDavClient()
			if err != nil {
				return err
			}

			free, err := client.Free(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println(formatSize(free))

			return nil
		},
	}
}

func newPropCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prop",
		Short: "Read and write resource properties",
	}

	get := &cobra.Command{
		Use:   "get <path> <name>",
		Short: "Read a property value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newDavClient()
			if err != nil {
				return err
			}

			namespace, _ := cmd.Flags().GetString("namespace")

			value, err := client.GetProperty(cmd.Context(), args[0], dav.Property{
				Namespace: namespace,
				Name:      args[1],
			})
			if err != nil {
				return err
			}

			fmt.Println(value)

			return nil
		},
	}
	get.Flags().String("namespace", "", "property XML namespace")

	set := &cobra.Command{
		Use:   "set <path> <name> <value>",
		Short: "Write a property value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newDavClient()
			if err != nil {
				return err
			}

			namespace, _ := cmd.Flags().GetString("namespace")

			return client.SetProperty(cmd.Context(), args[0], dav.Property{
				Namespace: namespace,
				Name:      args[1],
				Value:     args[2],
			})
		},
	}
	set.Flags().String("namespace", "", "property XML namespace")

	cmd.AddCommand(get, set)

	return cmd
}
