// Copyright 2026 The Apolo Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive moves reported epoch folders out of the live
// telemetry tree into a backup directory.
package archive

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Archive moves every folder under devicesRoot into backupRoot. A
// folder already present in the backup is replaced. Failures are
// logged per folder and never abort the sweep: the archiver runs
// after report generation and a stuck folder must not block the rest.
func Archive(devicesRoot, backupRoot string, logger *slog.Logger) {
	if err := os.MkdirAll(backupRoot, 0o755); err != nil {
		logger.Error("creating backup root", "path", backupRoot, "error", err)
		return
	}

	entries, err := os.ReadDir(devicesRoot)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no telemetry folders to archive", "path", devicesRoot)
			return
		}
		logger.Error("listing telemetry folders", "path", devicesRoot, "error", err)
		return
	}

	moved := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		src := filepath.Join(devicesRoot, entry.Name())
		dst := filepath.Join(backupRoot, entry.Name())
		if err := moveDir(src, dst); err != nil {
			logger.Error("archiving folder", "folder", entry.Name(), "error", err)
			continue
		}
		logger.Info("archived folder", "folder", entry.Name())
		moved++
	}
	logger.Info("archive sweep finished", "folders", moved)
}

// moveDir relocates src to dst, replacing any previous dst. Rename is
// tried first; when src and dst sit on different filesystems the tree
// is copied and the source removed.
func moveDir(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("clearing previous backup: %w", err)
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	if err := copyTree(src, dst); err != nil {
		return err
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("removing source after copy: %w", err)
	}
	return nil
}

// copyTree copies the directory at src to dst recursively.
func copyTree(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("listing %s: %w", src, err)
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
