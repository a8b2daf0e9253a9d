package main

import (
	"fmt"

	"github.com/spf13/cobra"

	isync "github.com/davfs/webdav-go/internal/sync"
)

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push <remote-dir> <local-dir>",
		Short: "Upload local changes into a remote directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSyncOp(cmd, args, "push")
		},
	}
}

func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull <remote-dir> <local-dir>",
		Short: "Download remote changes into a local directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSyncOp(cmd, args, "pull")
		},
	}
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <remote-dir> <local-dir>",
		Short: "Reconcile both directions: pull, then push",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSyncOp(cmd, args, "sync")
		},
	}
}

func runSyncOp(cmd *cobra.Command, args []string, op string) error {
	client, err := newDavClient()
	if err != nil {
		return err
	}

	syncer := isync.New(client)
	remoteDir, localDir := args[0], args[1]

	var updated bool

	switch op {
	case "push":
		updated, err = syncer.Push(cmd.Context(), remoteDir, localDir)
	case "pull":
		updated, err = syncer.Pull(cmd.Context(), remoteDir, localDir)
	default:
		updated, err = syncer.Sync(cmd.Context(), remoteDir, localDir)
	}

	if err != nil {
		return err
	}

	if updated {
		fmt.Println("updated")
	} else {
		fmt.Println("up to date")
	}

	return nil
}
