// exrcheck validates scanline OpenEXR files by parsing their header and
// decoding every chunk.
//
// Usage:
//
//	exrcheck [-q|--quiet] [-s|--strict] [-j N] <filename> [<filename> ...]
//
// Options:
//
//	-q, --quiet   Only output errors. Exit code indicates pass/fail.
//	-s, --strict  Also warn about questionable but readable content.
//	-j N          Decode with N goroutines (0 decodes sequentially).
//	-h, --help    Show this help message.
//	--version     Show version information.
//
// Exit codes:
//
//	0: All files valid
//	1: One or more files invalid
//	2: Error (file not found, bad arguments, etc.)
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/mrjoshuak/go-exrio/exr"
	"github.com/mrjoshuak/go-exrio/half"
)

const version = "1.0.0"

// slabHeight is the number of scanlines decoded per partial read.
const slabHeight = 64

// ValidationIssue represents a single validation problem found in a file.
type ValidationIssue struct {
	Severity string // "error" or "warning"
	Message  string
}

// ValidationResult contains all validation results for a file.
type ValidationResult struct {
	Filename string
	Issues   []ValidationIssue
	Checks   []string
}

// IsValid returns true if there are no errors (warnings are ok).
func (r *ValidationResult) IsValid() bool {
	for _, issue := range r.Issues {
		if issue.Severity == "error" {
			return false
		}
	}
	return true
}

func (r *ValidationResult) addErrorf(format string, args ...any) {
	r.Issues = append(r.Issues, ValidationIssue{Severity: "error", Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) addWarningf(format string, args ...any) {
	r.Issues = append(r.Issues, ValidationIssue{Severity: "warning", Message: fmt.Sprintf(format, args...)})
}

func main() {
	quiet := false
	strict := false
	files := []string{}

	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		switch arg {
		case "-q", "--quiet":
			quiet = true
		case "-s", "--strict":
			strict = true
		case "-j":
			i++
			var n int
			err := errors.New("missing value")
			if i < len(os.Args) {
				n, err = strconv.Atoi(os.Args[i])
			}
			if err == nil {
				err = exr.SetGlobalThreadCount(n)
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error: -j needs a non-negative thread count")
				os.Exit(2)
			}
		case "-h", "--help":
			printUsage()
			os.Exit(0)
		case "--version":
			fmt.Printf("exrcheck version %s\n", version)
			os.Exit(0)
		default:
			if strings.HasPrefix(arg, "-") {
				fmt.Fprintf(os.Stderr, "Unknown option: %s\n", arg)
				printUsage()
				os.Exit(2)
			}
			files = append(files, arg)
		}
	}

	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: No input files specified")
		printUsage()
		os.Exit(2)
	}

	validCount := 0
	errorOccurred := false
	for _, filename := range files {
		result, err := validateFile(filename, strict)
		if err != nil {
			if !quiet {
				fmt.Fprintf(os.Stderr, "%s: error: %v\n", filename, err)
			}
			errorOccurred = true
			continue
		}
		if result.IsValid() {
			validCount++
		}
		if !quiet {
			printResult(result)
		} else {
			for _, issue := range result.Issues {
				if issue.Severity == "error" {
					fmt.Fprintf(os.Stderr, "%s: %s\n", filename, issue.Message)
				}
			}
		}
	}

	if len(files) > 1 && !quiet {
		fmt.Printf("\nSummary: %d of %d files valid\n", validCount, len(files))
	}
	if errorOccurred {
		os.Exit(2)
	}
	if validCount < len(files) {
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: exrcheck [options] <filename> [<filename> ...]

Validate scanline OpenEXR files by decoding every chunk.

Options:
  -q, --quiet    Only output errors. Exit code indicates pass/fail.
  -s, --strict   Also warn about questionable but readable content.
  -j N           Decode with N goroutines (0 decodes sequentially).
  -h, --help     Show this help message.
  --version      Show version information.`)
}

func printResult(result *ValidationResult) {
	if result.IsValid() {
		fmt.Printf("%s: OK\n", result.Filename)
	} else {
		fmt.Printf("%s: INVALID\n", result.Filename)
	}
	for _, issue := range result.Issues {
		fmt.Printf("  [%s] %s\n", strings.ToUpper(issue.Severity), issue.Message)
	}
	if len(result.Issues) > 0 {
		fmt.Printf("  Checks performed: %s\n", strings.Join(result.Checks, ", "))
	}
}

// validateFile checks one file. Failures to access the file are returned
// as errors; problems with its content are recorded in the result.
func validateFile(filename string, strict bool) (*ValidationResult, error) {
	result := &ValidationResult{Filename: filename}

	result.Checks = append(result.Checks, "header")
	in, err := exr.OpenInputFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, err
		}
		result.addErrorf("failed to open: %v", err)
		return result, nil
	}
	defer in.Close()

	h := in.Header()
	result.Checks = append(result.Checks, "windows")
	validateWindows(h, result, strict)

	result.Checks = append(result.Checks, "chunk data")
	validatePixels(in, result, strict)
	return result, nil
}

func validateWindows(h exr.HeaderView, result *ValidationResult, strict bool) {
	if !strict {
		return
	}
	dw, disp := h.DataWindow(), h.DisplayWindow()
	if dw.Min.X > disp.Max.X || dw.Max.X < disp.Min.X || dw.Min.Y > disp.Max.Y || dw.Max.Y < disp.Min.Y {
		result.addWarningf("data window %v does not overlap display window %v", dw, disp)
	}
	if r := h.PixelAspectRatio(); r < 1e-6 || r > 1e6 {
		result.addWarningf("unusual pixel aspect ratio %g", r)
	}
}

// validatePixels decodes the image in slabs of full-resolution channels.
// Subsampled channels are left out of the frame buffer; their chunks are
// still decompressed.
func validatePixels(in *exr.InputFile, result *ValidationResult, strict bool) {
	h := in.Header()
	width, height := h.DataDimensions()

	fb, err := exr.NewFrameBufferMut(width, slabHeight)
	if err != nil {
		result.addErrorf("%v", err)
		return
	}
	type buffer struct {
		name   string
		floats []float32
		halfs  []half.Half
	}
	var bufs []buffer
	for name, c := range h.Channels() {
		if c.XSampling != 1 || c.YSampling != 1 {
			continue
		}
		b := buffer{name: name}
		switch c.Type {
		case exr.PixelTypeFloat:
			b.floats = make([]float32, width*slabHeight)
			err = exr.InsertChannelMut(fb, name, 0, b.floats)
		case exr.PixelTypeHalf:
			b.halfs = make([]half.Half, width*slabHeight)
			err = exr.InsertChannelMut(fb, name, 0, b.halfs)
		default:
			err = exr.InsertChannelMut(fb, name, 0, make([]uint32, width*slabHeight))
		}
		if err != nil {
			result.addErrorf("%v", err)
			return
		}
		bufs = append(bufs, b)
	}

	nonFinite := make(map[string]int)
	for start := 0; start < height; start += slabHeight {
		n, err := in.ReadPixelsPartial(start, fb)
		if err != nil {
			result.addErrorf("scanlines %d-%d: %v", start, min(start+slabHeight, height)-1, err)
			return
		}
		if !strict {
			continue
		}
		for _, b := range bufs {
			for _, v := range b.floats[:min(len(b.floats), n*width)] {
				if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
					nonFinite[b.name]++
				}
			}
			for _, v := range b.halfs[:min(len(b.halfs), n*width)] {
				if !v.IsFinite() {
					nonFinite[b.name]++
				}
			}
		}
	}
	for _, name := range h.ChannelNames() {
		if c := nonFinite[name]; c > 0 {
			result.addWarningf("channel '%s' has %d NaN or infinite samples", name, c)
		}
	}
}

