package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/EchoTools/blpconv/pkg/archive"
	"github.com/EchoTools/blpconv/pkg/blp"
	"github.com/EchoTools/blpconv/pkg/convert"
	"github.com/EchoTools/blpconv/pkg/dds"
	"github.com/EchoTools/blpconv/pkg/raster"
)

// readInput loads a file, unwrapping it if it is an archive.
func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	out, err := archive.Unwrap(data)
	if err != nil {
		return nil, fmt.Errorf("unwrap %s: %w", path, err)
	}
	return out, nil
}

// writeOutput writes data to path, wrapped with the configured codec.
func writeOutput(cfg *config, path string, data []byte) error {
	if cfg.codec == archive.CodecStore {
		return os.WriteFile(path, data, 0644)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	kind := archive.KindDDS
	if cfg.raster {
		kind = archive.KindRaster
	}
	if err := archive.Encode(f, cfg.codec, kind, data); err != nil {
		f.Close()
		return fmt.Errorf("wrap %s: %w", path, err)
	}
	return f.Close()
}

// outputPath maps an input file name to its output name.
func outputPath(cfg *config, inputDir, outputDir, path string) string {
	rel, err := filepath.Rel(inputDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = trimArchiveExt(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))

	ext := ".dds"
	if cfg.raster {
		ext = cfg.format.Ext()
	}
	return filepath.Join(outputDir, rel) + ext + cfg.codec.Ext()
}

func convertData(cfg *config, data []byte) ([]byte, error) {
	if cfg.raster {
		return cfg.converter.RasterFromBLP(data, mipIndex)
	}
	return cfg.converter.CompressedFromBLP(data, cfg.target, regenMipmaps)
}

func runConvert(cfg *config, input, output string) error {
	data, err := readInput(input)
	if err != nil {
		return err
	}
	out, err := convertData(cfg, data)
	if err != nil {
		return fmt.Errorf("convert %s: %w", input, err)
	}
	if err := writeOutput(cfg, output, out); err != nil {
		return err
	}
	fmt.Printf("Converted %s → %s (%d bytes)\n", input, output, len(out))
	return nil
}

func runBatch(cfg *config, inputDir, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	count, failed := 0, 0
	err := filepath.WalkDir(inputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isBLPName(path) {
			return nil
		}

		outPath := outputPath(cfg, inputDir, outputDir, path)
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			cfg.logger.Error("create directory", "path", filepath.Dir(outPath), "err", err)
			failed++
			return nil
		}

		data, err := readInput(path)
		if err == nil {
			var out []byte
			if out, err = convertData(cfg, data); err == nil {
				err = writeOutput(cfg, outPath, out)
			}
		}
		if err != nil {
			cfg.logger.Error("convert failed", "path", path, "kind", convert.KindOf(err), "err", err)
			failed++
			return nil
		}

		count++
		cfg.logger.Debug("converted", "path", path, "out", outPath)
		if count%100 == 0 {
			cfg.logger.Info("progress", "converted", count)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk %s: %w", inputDir, err)
	}

	cfg.logger.Info("batch complete", "converted", count, "failed", failed)
	return nil
}

// trimArchiveExt drops a trailing .zst or .lz4, in any case.
func trimArchiveExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range []string{".zst", ".lz4"} {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}

// isBLPName matches *.blp plus archive-wrapped *.blp.zst and *.blp.lz4.
func isBLPName(path string) bool {
	return strings.HasSuffix(strings.ToLower(trimArchiveExt(path)), ".blp")
}

func runInfo(path string) error {
	data, err := readInput(path)
	if err != nil {
		return err
	}

	if bytes.HasPrefix(data, []byte("DDS ")) {
		info, err := dds.ReadInfo(bytes.NewReader(data))
		if err != nil {
			return err
		}
		fmt.Printf("File:       %s\n", path)
		fmt.Printf("Dimensions: %dx%d\n", info.Width, info.Height)
		fmt.Printf("Mip Levels: %d\n", info.MipCount)
		fmt.Printf("Format:     %s (%d)\n", dds.FormatName(info.DXGIFormat), info.DXGIFormat)
		fmt.Printf("Data Size:  %d bytes\n", info.DataSize)
		return nil
	}

	if f, err := raster.ParseFormat(filepath.Ext(trimArchiveExt(path))); err == nil {
		c, err := raster.ReadConfig(bytes.NewReader(data), f)
		if err != nil {
			return err
		}
		fmt.Printf("File:       %s\n", path)
		fmt.Printf("Format:     %s\n", f)
		fmt.Printf("Dimensions: %dx%d\n", c.Width, c.Height)
		return nil
	}

	h, err := blp.ReadHeader(data)
	if err != nil {
		return err
	}
	fmt.Printf("File:       %s\n", path)
	fmt.Printf("Version:    BLP%d\n", h.Version)
	fmt.Printf("Dimensions: %dx%d\n", h.Width, h.Height)
	fmt.Printf("Encoding:   %s\n", h.Encoding)
	fmt.Printf("Alpha Bits: %d\n", h.AlphaBits)
	fmt.Printf("Mip Levels: %d\n", h.Levels())
	return nil
}
