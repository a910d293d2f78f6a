// Command sfse is a thin, non-interactive demonstration harness around
// the core packages: each invocation opens (or formats) an image, runs
// one subcommand, and exits. It is not part of the core's contract —
// spec.md explicitly places the interactive shell out of scope — the
// same role the teacher's examples/ programs play for go-diskfs.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/Jaime-Moranchel/sfse/backend"
	"github.com/Jaime-Moranchel/sfse/backend/file"
	"github.com/Jaime-Moranchel/sfse/backup"
	"github.com/Jaime-Moranchel/sfse/blockdevice"
	"github.com/Jaime-Moranchel/sfse/blocklayer"
	"github.com/Jaime-Moranchel/sfse/filesystem"
	"github.com/Jaime-Moranchel/sfse/sectorcipher"
	"github.com/Jaime-Moranchel/sfse/util"
)

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, imagePath := args[0], args[1]
	if err := run(cmd, imagePath, args[2:]); err != nil {
		log.Fatalf("sfse: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: sfse <command> <image> [args...]

commands:
  format  IMAGE
  list    IMAGE
  create  IMAGE NAME SOURCE
  read    IMAGE NAME
  delete  IMAGE NAME
  rename  IMAGE OLD NEW
  backup  IMAGE OUT
  fsck    IMAGE
  dump    IMAGE NAME`)
}

func run(cmd, imagePath string, rest []string) error {
	readOnly := cmd == "read" || cmd == "list" || cmd == "fsck" || cmd == "backup" || cmd == "dump"
	storage, err := file.OpenFromPath(imagePath, readOnly)
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer storage.Close()

	// backup operates on raw image bytes and needs no credentials.
	if cmd == "backup" {
		return cmdBackup(storage, rest)
	}

	password, pin, err := readCredentials()
	if err != nil {
		return err
	}

	dev, err := blockdevice.OpenPath(storage, imagePath, blockdevice.DefaultSectorSize)
	if err != nil {
		return err
	}
	cipher := sectorcipher.New(password, pin)
	layer, err := blocklayer.New(dev, cipher, filesystem.DefaultBlockSize)
	if err != nil {
		return err
	}

	var fsys *filesystem.FileSystem
	if cmd == "format" {
		fsys, err = filesystem.Format(layer, cipher, imagePath)
	} else {
		fsys, err = filesystem.Mount(layer, cipher, imagePath)
	}
	if err != nil {
		return err
	}
	defer fsys.Close()

	switch cmd {
	case "format":
		fmt.Println("formatted", imagePath)
	case "list":
		return cmdList(fsys)
	case "create":
		return cmdCreate(fsys, rest)
	case "read":
		return cmdRead(fsys, rest)
	case "delete":
		return cmdDelete(fsys, rest)
	case "rename":
		return cmdRename(fsys, rest)
	case "fsck":
		return cmdFsck(fsys)
	case "dump":
		return cmdDump(fsys, rest)
	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func cmdList(fsys *filesystem.FileSystem) error {
	files, err := fsys.ListFiles()
	if err != nil {
		return err
	}
	for _, f := range files {
		fmt.Printf("%s\t%d\n", f.Name, f.Size)
	}
	return nil
}

func cmdCreate(fsys *filesystem.FileSystem, rest []string) error {
	if len(rest) != 2 {
		return fmt.Errorf("create requires NAME and SOURCE")
	}
	return fsys.CreateFileFromPath(rest[0], rest[1])
}

func cmdRead(fsys *filesystem.FileSystem, rest []string) error {
	if len(rest) != 1 {
		return fmt.Errorf("read requires NAME")
	}
	data, err := fsys.ReadFile(rest[0])
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func cmdDelete(fsys *filesystem.FileSystem, rest []string) error {
	if len(rest) != 1 {
		return fmt.Errorf("delete requires NAME")
	}
	return fsys.DeleteFile(rest[0])
}

func cmdRename(fsys *filesystem.FileSystem, rest []string) error {
	if len(rest) != 2 {
		return fmt.Errorf("rename requires OLD and NEW")
	}
	return fsys.RenameFile(rest[0], rest[1])
}

func cmdBackup(storage backend.Storage, rest []string) error {
	if len(rest) != 1 {
		return fmt.Errorf("backup requires OUT")
	}
	out, err := os.Create(rest[0])
	if err != nil {
		return fmt.Errorf("creating backup output %q: %w", rest[0], err)
	}
	defer out.Close()

	codec := backup.LZ4
	if strings.HasSuffix(rest[0], ".xz") {
		codec = backup.XZ
	}
	return backup.Export(storage, out, codec)
}

func cmdDump(fsys *filesystem.FileSystem, rest []string) error {
	if len(rest) != 1 {
		return fmt.Errorf("dump requires NAME")
	}
	data, err := fsys.ReadFile(rest[0])
	if err != nil {
		return err
	}
	fmt.Print(util.DumpByteSlice(data, 16, true, true, false, nil))
	return nil
}

func cmdFsck(fsys *filesystem.FileSystem) error {
	divergences, err := fsys.Check()
	if err != nil {
		return err
	}
	if len(divergences) == 0 {
		fmt.Println("ok: bitmap matches inode table")
		return nil
	}
	for _, d := range divergences {
		fmt.Printf("divergence: block %d bitmap_set=%v referenced_by=%q\n", d.Block, d.BitmapSet, d.ReferencedBy)
		diag, err := fsys.Diagnose(d)
		if err != nil {
			return err
		}
		fmt.Print(diag)
	}
	return nil
}

func readCredentials() (password, pin string, err error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		// Piped input: read "password\npin\n" from stdin.
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(os.Stdin); err != nil {
			return "", "", fmt.Errorf("reading credentials from stdin: %w", err)
		}
		lines := bytes.SplitN(buf.Bytes(), []byte("\n"), 2)
		if len(lines) != 2 {
			return "", "", fmt.Errorf("expected password and PIN on separate lines")
		}
		return string(bytes.TrimSpace(lines[0])), string(bytes.TrimSpace(lines[1])), nil
	}

	fmt.Fprint(os.Stderr, "password: ")
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprint(os.Stderr, "pin: ")
	pinBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", "", fmt.Errorf("reading pin: %w", err)
	}
	return string(passwordBytes), string(pinBytes), nil
}
