package converter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"remsync/internal/faults"
	"remsync/internal/logging"
)

var commandContext = exec.CommandContext

// DefaultBinary is the converter tool looked up on PATH when no explicit
// binary is configured.
const DefaultBinary = "ebook-convert"

// outputTailLimit bounds how much tool output a failure error carries.
const outputTailLimit = 500

// ebook-convert reports progress as lines like "33% Converting input...".
var percentPattern = regexp.MustCompile(`(\d+)%`)

// Options tunes one conversion. Zero margin or font size means use the
// model profile's default; an empty font family leaves the tool's serif
// default in place.
type Options struct {
	Model         string
	MarginPt      int
	FontSizePt    int
	FontFamily    string
	EmbedAllFonts bool
}

// Client defines EPUB to PDF conversion behaviour.
type Client interface {
	Convert(ctx context.Context, inputPath string, options Options, progress func(float64)) (string, error)
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithLogger attaches a logger to the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CLI) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// CLI wraps the ebook-convert command-line tool.
type CLI struct {
	binary string
	logger *slog.Logger
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: DefaultBinary, logger: slog.Default()}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Convert renders inputPath to a device-sized PDF and returns the path of a
// temporary output file the caller owns. The context carries the wall-clock
// budget; a deadline hit kills the tool and surfaces a timeout fault.
func (c *CLI) Convert(ctx context.Context, inputPath string, options Options, progress func(float64)) (string, error) {
	if inputPath == "" {
		return "", errors.New("input path required")
	}

	out, err := os.CreateTemp("", "remsync-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create output file: %w", err)
	}
	outputPath := out.Name()
	out.Close()

	args := buildArgs(inputPath, outputPath, options)
	c.logger.Info("converting to pdf",
		logging.String("input", inputPath),
		logging.String("model", options.Model))

	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("start %s: %w", c.binary, err)
	}

	var tail strings.Builder
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		recordTail(&tail, line)
		if progress == nil {
			continue
		}
		if match := percentPattern.FindStringSubmatch(line); match != nil {
			if percent, err := strconv.Atoi(match[1]); err == nil {
				progress(float64(percent) / 100.0)
			}
		}
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		os.Remove(outputPath)
		if ctx.Err() != nil {
			return "", faults.Wrap(faults.ErrTimeout, "converter", "convert",
				fmt.Sprintf("%s exceeded its time budget", c.binary), ctx.Err())
		}
		detail := strings.TrimSpace(tail.String())
		if detail == "" {
			detail = "no output captured"
		}
		return "", faults.Wrap(faults.ErrFormat, "converter", "convert",
			fmt.Sprintf("%s failed: %s", c.binary, detail), waitErr)
	}

	c.logger.Info("converted to pdf",
		logging.String("output", outputPath),
		logging.String("model", options.Model))
	return outputPath, nil
}

func buildArgs(inputPath, outputPath string, options Options) []string {
	profile := ProfileFor(options.Model)
	margin := profile.MarginPt
	if options.MarginPt > 0 {
		margin = options.MarginPt
	}
	fontSize := profile.FontSizePt
	if options.FontSizePt > 0 {
		fontSize = options.FontSizePt
	}

	marginArg := strconv.Itoa(margin)
	args := []string{
		inputPath, outputPath,
		"--output-profile", "generic_eink_hd",
		"--custom-size", fmt.Sprintf("%gx%g", profile.PageWidth, profile.PageHeight),
		"--pdf-page-margin-top", marginArg,
		"--pdf-page-margin-bottom", marginArg,
		"--pdf-page-margin-left", marginArg,
		"--pdf-page-margin-right", marginArg,
		"--pdf-default-font-size", strconv.Itoa(fontSize),
	}
	if options.EmbedAllFonts {
		args = append(args, "--embed-all-fonts")
	}
	if options.FontFamily != "" {
		args = append(args, "--pdf-serif-family", options.FontFamily)
	}
	return args
}

// recordTail keeps the most recent output within the tail limit, dropping
// whole leading lines as needed.
func recordTail(tail *strings.Builder, line string) {
	if tail.Len() > 0 {
		tail.WriteByte('\n')
	}
	tail.WriteString(line)
	if tail.Len() <= outputTailLimit {
		return
	}
	text := tail.String()
	if cut := strings.IndexByte(text[len(text)-outputTailLimit:], '\n'); cut >= 0 {
		text = text[len(text)-outputTailLimit+cut+1:]
	} else {
		text = text[len(text)-outputTailLimit:]
	}
	tail.Reset()
	tail.WriteString(text)
}

var _ Client = (*CLI)(nil)
