// blpconv converts BLP textures to raster images or DX10 DDS mip chains.
//
// Usage:
//
//	blpconv [flags] convert input.blp output.dds   # BLP → DDS (BC1/BC3/BC7)
//	blpconv -to raster convert input.blp out.png   # BLP → PNG/BMP/TIFF
//	blpconv [flags] batch input_dir output_dir     # Convert every *.blp
//	blpconv info file                              # Show BLP or DDS info
//
// Inputs wrapped with -archive (zstd or lz4) are unwrapped transparently.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/EchoTools/blpconv/pkg/archive"
	"github.com/EchoTools/blpconv/pkg/convert"
	"github.com/EchoTools/blpconv/pkg/encoder"
	"github.com/EchoTools/blpconv/pkg/raster"
	"github.com/EchoTools/blpconv/pkg/texture"
)

var (
	outputKind     string
	targetName     string
	rasterName     string
	backendName    string
	archiveName    string
	mipIndex       int
	regenMipmaps   bool
	alphaThreshold int
	workers        int
	verbose        bool
)

func init() {
	flag.StringVar(&outputKind, "to", "dds", "Output kind: dds, raster")
	flag.StringVar(&targetName, "format", "bc3", "Block format for DDS output: bc1, bc3, bc7")
	flag.StringVar(&rasterName, "raster", "png", "Raster format: png, bmp, tiff")
	flag.StringVar(&backendName, "backend", "cpu", "Encoder backend: cpu, parallel")
	flag.StringVar(&archiveName, "archive", "none", "Wrap outputs: none, zstd, lz4")
	flag.IntVar(&mipIndex, "mip", 0, "Mip level to export as raster")
	flag.BoolVar(&regenMipmaps, "regen-mipmaps", true, "Synthesize missing mip levels down to 1x1")
	flag.IntVar(&alphaThreshold, "alpha-threshold", encoder.DefaultAlphaThreshold, "BC1 alpha cutoff (0-255)")
	flag.IntVar(&workers, "workers", 0, "Parallel backend workers (0 = GOMAXPROCS)")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
}

// config is the validated flag set.
type config struct {
	raster    bool
	target    texture.Target
	format    raster.Format
	codec     archive.Codec
	converter *convert.Converter
	logger    *slog.Logger
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return fmt.Errorf("command is required")
	}

	cfg, err := validateFlags()
	if err != nil {
		flag.Usage()
		return err
	}

	switch args[0] {
	case "convert":
		if len(args) != 3 {
			return fmt.Errorf("usage: blpconv [flags] convert input.blp output")
		}
		return runConvert(cfg, args[1], args[2])
	case "batch":
		if len(args) != 3 {
			return fmt.Errorf("usage: blpconv [flags] batch input_dir output_dir")
		}
		return runBatch(cfg, args[1], args[2])
	case "info":
		if len(args) != 2 {
			return fmt.Errorf("usage: blpconv info file")
		}
		return runInfo(args[1])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func validateFlags() (*config, error) {
	cfg := &config{}

	switch outputKind {
	case "dds":
	case "raster":
		cfg.raster = true
	default:
		return nil, fmt.Errorf("-to must be 'dds' or 'raster'")
	}

	var err error
	if cfg.target, err = texture.ParseTarget(targetName); err != nil {
		return nil, err
	}
	if cfg.format, err = raster.ParseFormat(rasterName); err != nil {
		return nil, err
	}
	if cfg.codec, err = archive.ParseCodec(archiveName); err != nil {
		return nil, err
	}
	backend, err := encoder.ParseKind(backendName)
	if err != nil {
		return nil, err
	}
	if alphaThreshold < 0 || alphaThreshold > 255 {
		return nil, fmt.Errorf("-alpha-threshold must be in 0-255, got %d", alphaThreshold)
	}
	if mipIndex < 0 {
		return nil, fmt.Errorf("-mip must not be negative")
	}
	if workers < 0 {
		return nil, fmt.Errorf("-workers must not be negative")
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	cfg.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	convert.SetLogger(cfg.logger)

	cfg.converter = convert.New(
		convert.WithBackend(backend),
		convert.WithRasterFormat(cfg.format),
		convert.WithAlphaThreshold(uint8(alphaThreshold)),
		convert.WithWorkers(workers),
		convert.WithLogger(cfg.logger),
	)
	return cfg, nil
}
