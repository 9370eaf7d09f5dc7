package main

import (
	"context"
	"os"

	logrus "github.com/fclairamb/go-log/logrus"
	"github.com/spf13/afero"

	"github.com/OffBroadway/sdflash/pkg/blockdev"
	"github.com/OffBroadway/sdflash/pkg/flash"
)

const cardCapacity = 10_240

func main() {
	ctx := context.Background()
	logger := logrus.New()

	path := "sdcard.img"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	img, err := blockdev.NewImageFile(afero.NewOsFs(), path, cardCapacity/blockdev.DefaultBlockSize)
	if err != nil {
		panic(err)
	}
	defer img.Close()

	sd, err := flash.New(img, flash.DefaultGeometry(cardCapacity), flash.WithLogger(logger))
	if err != nil {
		panic(err)
	}

	// retry forever, the card may still be powering up
	if err := blockdev.InitWithRetry(ctx, img, 0, blockdev.InitRetryDelay, logger); err != nil {
		panic(err)
	}
	logger.Info("SD card initialized")

	data := make([]byte, 128)

	if err := sd.Write(ctx, 0, []byte{0, 1, 2, 4}); err != nil {
		panic(err)
	}
	if err := sd.Read(ctx, 0, data); err != nil {
		panic(err)
	}
	logger.Info("Read SD card", "data", data[:16])

	if err := sd.Erase(ctx, 0, 512); err != nil {
		panic(err)
	}
	if err := sd.Read(ctx, 0, data); err != nil {
		panic(err)
	}
	logger.Info("Read SD card", "data", data[:16])

	if err := sd.Write(ctx, 10, []byte{0, 1, 2, 4}); err != nil {
		panic(err)
	}
	if err := sd.Read(ctx, 0, data); err != nil {
		panic(err)
	}
	logger.Info("Read SD card", "data", data[:16])
}
