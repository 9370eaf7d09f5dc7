// Command sdflash inspects and serves a disk image through the flash
// adapter, the same way a flash-based store would see an SD card.
//
// Usage:
//
//	sdflash [flags] info
//	sdflash [flags] read <offset> <len>
//	sdflash [flags] write <offset> <hex bytes>
//	sdflash [flags] erase <from> <to>
//	sdflash [flags] serve
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"

	log "github.com/fclairamb/go-log"
	logrus "github.com/fclairamb/go-log/logrus"
	"github.com/spf13/afero"

	"github.com/OffBroadway/sdflash/pkg/blockdev"
	"github.com/OffBroadway/sdflash/pkg/flash"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, logrus.New()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() string {
	return `usage: sdflash [flags] <command>

commands:
  info                      print the flash geometry
  read <offset> <len>       hex dump len bytes at offset
  write <offset> <hex>      write hex-encoded bytes at offset
  erase <from> <to>         zero-fill the blocks in [from, to)
  serve                     expose the flash over HTTP`
}

func run(ctx context.Context, args []string, stdout io.Writer, logger log.Logger) error {
	cfg, rest, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return errors.New(usage())
	}
	if rest[0] == "help" {
		fmt.Fprintln(stdout, usage())
		return nil
	}

	dev, closer, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := blockdev.InitWithRetry(ctx, dev, cfg.InitAttempts, blockdev.InitRetryDelay, logger); err != nil {
		return err
	}
	logger.Info("Card initialized", "image", cfg.Image, "backend", cfg.Backend)

	geo := flash.DefaultGeometry(cfg.Capacity)
	geo.Alignment = cfg.Alignment
	sd, err := flash.New(dev, geo, flash.WithLogger(logger))
	if err != nil {
		return err
	}

	switch rest[0] {
	case "info":
		return cmdInfo(sd, stdout)
	case "read":
		return cmdRead(ctx, sd, rest[1:], stdout)
	case "write":
		return cmdWrite(ctx, sd, rest[1:])
	case "erase":
		return cmdErase(ctx, sd, rest[1:])
	case "serve":
		return cmdServe(ctx, sd, cfg, logger)
	default:
		return fmt.Errorf("unknown command: %s\n%s", rest[0], usage())
	}
}

// openDevice opens the image with the configured backend, sized to hold
// the configured capacity.
func openDevice(cfg Config) (blockdev.Device, io.Closer, error) {
	blocks := uint32(cfg.Capacity / blockdev.DefaultBlockSize)

	switch cfg.Backend {
	case backendMmap:
		m, err := blockdev.NewMmapFile(cfg.Image, blocks)
		if err != nil {
			return nil, nil, err
		}
		return m, m, nil
	default:
		img, err := blockdev.NewImageFile(afero.NewOsFs(), cfg.Image, blocks)
		if err != nil {
			return nil, nil, err
		}
		return img, img, nil
	}
}

func cmdInfo(sd *flash.Adapter, stdout io.Writer) error {
	geo := sd.Geometry()
	fmt.Fprintf(stdout, "capacity:   %d\n", sd.Capacity())
	fmt.Fprintf(stdout, "blocks:     %d\n", geo.Blocks())
	fmt.Fprintf(stdout, "read size:  %d\n", sd.ReadSize())
	fmt.Fprintf(stdout, "write size: %d\n", sd.WriteSize())
	fmt.Fprintf(stdout, "erase size: %d\n", sd.EraseSize())
	fmt.Fprintf(stdout, "alignment:  %d\n", geo.Alignment)
	return nil
}

func cmdRead(ctx context.Context, sd *flash.Adapter, args []string, stdout io.Writer) error {
	if len(args) != 2 {
		return errors.New("read: expected <offset> <len>")
	}
	offset, err := parseUint32(args[0])
	if err != nil {
		return err
	}
	length, err := parseUint32(args[1])
	if err != nil {
		return err
	}
	if int(length) > sd.EraseSize() {
		return fmt.Errorf("read: %w", flash.ErrSpansBlocks)
	}

	out := make([]byte, length)
	if err := sd.Read(ctx, offset, out); err != nil {
		return err
	}

	_, err = io.WriteString(stdout, hex.Dump(out))
	return err
}

func cmdWrite(ctx context.Context, sd *flash.Adapter, args []string) error {
	if len(args) != 2 {
		return errors.New("write: expected <offset> <hex>")
	}
	offset, err := parseUint32(args[0])
	if err != nil {
		return err
	}
	data, err := hex.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("write: invalid hex data: %w", err)
	}

	return sd.Write(ctx, offset, data)
}

func cmdErase(ctx context.Context, sd *flash.Adapter, args []string) error {
	if len(args) != 2 {
		return errors.New("erase: expected <from> <to>")
	}
	from, err := parseUint32(args[0])
	if err != nil {
		return err
	}
	to, err := parseUint32(args[1])
	if err != nil {
		return err
	}

	return sd.Erase(ctx, from, to)
}

func cmdServe(ctx context.Context, sd *flash.Adapter, cfg Config, logger log.Logger) error {
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return err
	}
	defer ln.Close()

	logger.Info("Serving flash", "addr", ln.Addr().String(), "max_conns", cfg.MaxConns)
	return Serve(ctx, ln, flash.NewLocked(sd), cfg.MaxConns, logger)
}
