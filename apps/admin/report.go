package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/trezcool/matokeo/core/report"
)

var reportRenderers = map[string]func(io.Writer, report.AssessmentReport) error{
	"pdf":  report.RenderPDF,
	"xlsx": report.RenderXLSX,
	"html": report.RenderHTML,
}

func (cl *commandLine) reportCommand() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "write the results report of an assessment to a file",
		UsageText: "admin report -assessment ID [-format pdf|xlsx|html] [-output FILE]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "assessment", Aliases: []string{"a"}, Usage: "the assessment ID"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "pdf", Usage: "pdf, xlsx or html"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "the file to write (defaults to results-<title>.<format>)"},
		},
		Action: cl.writeReport,
	}
}

func (cl *commandLine) writeReport(c *cli.Context) error {
	id := c.String("assessment")
	if id == "" {
		return usage(c)
	}
	format := c.String("format")
	render, ok := reportRenderers[format]
	if !ok {
		return errors.Errorf("unsupported format %q", format)
	}

	rep, err := cl.reports.AssessmentReportOf(c.Context, id)
	if err != nil {
		return err
	}

	output := c.String("output")
	if output == "" {
		output = rep.Filename() + "." + format
	}
	output = filepath.Clean(output)
	f, err := os.Create(output)
	if err != nil {
		return errors.Wrap(err, "creating report file")
	}
	if err = render(f, rep); err != nil {
		_ = f.Close()
		_ = os.Remove(output)
		return errors.Wrapf(err, "rendering %s report", format)
	}
	if err = f.Close(); err != nil {
		_ = os.Remove(output)
		return err
	}
	cl.printf("%d results written to %s\n", len(rep.Results), output)
	return nil
}
