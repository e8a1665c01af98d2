package main

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theSolTrain/nse-policy-generator/answers"
	"github.com/theSolTrain/nse-policy-generator/attachment"
	"github.com/theSolTrain/nse-policy-generator/document"
	"github.com/theSolTrain/nse-policy-generator/generate"
	"github.com/theSolTrain/nse-policy-generator/render"
)

// Output formats for compose.
const (
	formatPDF      = "pdf"
	formatHTML     = "html"
	formatMarkdown = "markdown"
)

type composeOptions struct {
	answersPath string
	outPath     string
	format      string
	logoPath    string
	mapPath     string
}

func composeCmd(flags *globalFlags) *cobra.Command {
	opts := &composeOptions{}

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose a policy document from an answers file",
		Long: `Compose reads a JSON Answer Set and writes the admission arrangements.

The pdf format validates the answers and renders through a headless
Chromium. The html and markdown formats skip validation and never start
a browser, which makes them useful for previewing partial answers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			renderer := render.NewChrome(render.ChromeConfig{
				ExecPath:      cfg.Render.ChromePath,
				Timeout:       cfg.Render.Timeout,
				MaxConcurrent: 1,
				NoSandbox:     cfg.Render.NoSandbox,
				Page:          cfg.Render.Page,
			}, logger)
			registry := attachment.NewRegistry(cfg.Attachments.MaxBytes, cfg.Attachments.Types...)
			return runCompose(cmd, opts, generate.New(renderer, logger), registry)
		},
	}

	cmd.Flags().StringVarP(&opts.answersPath, "answers", "a", "", "Answer Set JSON file (- for stdin)")
	cmd.Flags().StringVarP(&opts.outPath, "out", "o", "", "Output file (default: derived from school name, - for stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatPDF, "Output format (pdf, html, markdown)")
	cmd.Flags().StringVar(&opts.logoPath, "logo", "", "School logo image")
	cmd.Flags().StringVar(&opts.mapPath, "map", "", "Catchment area map image")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func runCompose(cmd *cobra.Command, opts *composeOptions, gen *generate.Generator, registry *attachment.Registry) error {
	switch opts.format {
	case formatPDF, formatHTML, formatMarkdown:
	default:
		return fmt.Errorf("unknown format %q (want pdf, html or markdown)", opts.format)
	}

	a, err := readAnswers(cmd.InOrStdin(), opts.answersPath)
	if err != nil {
		return err
	}
	if a.SchoolLogo, err = readImage(registry, attachment.FieldSchoolLogo, opts.logoPath); err != nil {
		return err
	}
	if a.CatchmentMap, err = readImage(registry, attachment.FieldCatchmentMap, opts.mapPath); err != nil {
		return err
	}

	var (
		out      []byte
		filename string
	)
	switch opts.format {
	case formatPDF:
		res, err := gen.Generate(contextOrBackground(cmd), generate.Request{Answers: a})
		if err != nil {
			return describeFailure(err)
		}
		out, filename = res.PDF, res.Filename
	default:
		comp, err := generate.Compose(a, nil)
		if err != nil {
			return err
		}
		base := strings.TrimSuffix(generate.Filename(a.SchoolName, a.AdmissionYear), ".pdf")
		if opts.format == formatHTML {
			out, err = document.HTML(comp.Document)
			filename = base + ".html"
		} else {
			var md string
			md, err = document.Markdown(comp.Document)
			out, filename = []byte(md), base+".md"
		}
		if err != nil {
			return err
		}
	}

	path := opts.outPath
	if path == "" {
		path = filename
	}
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes)\n", path, len(out))
	return nil
}

func readAnswers(stdin io.Reader, path string) (*answers.Answers, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	return answers.Decode(data)
}

// readImage loads an optional attachment, typing it by extension and then
// by content.
func readImage(registry *attachment.Registry, field, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", field, err)
	}
	defer f.Close()

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		head := make([]byte, 512)
		n, _ := io.ReadFull(f, head)
		contentType = http.DetectContentType(head[:n])
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("rewind %s: %w", field, err)
		}
	}
	return registry.Read(field, contentType, f)
}

// describeFailure flattens validation errors into one line per field.
func describeFailure(err error) error {
	var verr *answers.ValidationError
	if !errors.As(err, &verr) {
		return err
	}
	keys := make([]string, 0, len(verr.Fields))
	for k := range verr.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("answers are incomplete:")
	for _, k := range keys {
		fmt.Fprintf(&sb, "\n  %s: %s", k, verr.Fields[k])
	}
	return errors.New(sb.String())
}
